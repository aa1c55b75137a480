package dto

// ── 考勤报表 DTO ──

// 每日状态
const (
	StatusManualAttendance   = "Manual Attendance"
	StatusCompleteAttendance = "Complete Attendance"
	StatusAutomaticCheckout  = "Automatic Checkout"
	StatusPending            = "Pending"
	StatusAbsence            = "Absence"
	StatusOtherSite          = "Other Site"
)

// NoTime 缺勤时的时间占位
const NoTime = "—"

// DayRecord 员工某一天的考勤结论
type DayRecord struct {
	Date        string `json:"date"`
	Entrada     string `json:"entrada"`
	Salida      string `json:"salida"`
	SiteEvent   string `json:"site_event"`
	WorkerEvent string `json:"worker_event"`
	Status      string `json:"status"`
	Sites       []int  `json:"sites"`
}

// ReportRequest 报表查询参数
type ReportRequest struct {
	Start string `form:"start" binding:"required"`
	End   string `form:"end"   binding:"required"`
	Scope string `form:"scope" binding:"omitempty,oneof=principal-only principal-plus-foreign unrestricted"`
}

// WorkerReportResponse 员工报表
type WorkerReportResponse struct {
	WorkerID        string      `json:"worker_id"`
	CheckerID       string      `json:"checker_id"`
	Name            string      `json:"name"`
	PrincipalSiteID *int        `json:"principal_site_id,omitempty"`
	Scope           string      `json:"scope"`
	Start           string      `json:"start"`
	End             string      `json:"end"`
	Days            []DayRecord `json:"days"`
}

// SiteReportResponse 站点汇总报表：站点下所有在职员工
type SiteReportResponse struct {
	SiteID   int                    `json:"site_id"`
	SiteName string                 `json:"site_name"`
	Start    string                 `json:"start"`
	End      string                 `json:"end"`
	Workers  []WorkerReportResponse `json:"workers"`
}

// PresentWorker 今天已进场的员工；WorkerID 为空表示打卡键未匹配到员工
type PresentWorker struct {
	WorkerID  string `json:"worker_id,omitempty"`
	CheckerID string `json:"checker_id"`
	Name      string `json:"name"`
	SiteID    int    `json:"site_id"`
	SiteName  string `json:"site_name"`
	Entrada   string `json:"entrada"`
	EntradaAt string `json:"entrada_at"`
}

// PresentTodayResponse 今日在场面板
type PresentTodayResponse struct {
	Date    string          `json:"date"`
	Workers []PresentWorker `json:"workers"`
}
