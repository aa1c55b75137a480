package dto

// ── 日历 DTO ──

// CalendarBatchRequest 批量日历助手请求：在 [start, end] 内所有星期为 weekday 的日子标记休息
type CalendarBatchRequest struct {
	SiteIDs     []int  `json:"site_ids"    binding:"required,min=1,dive,min=1"`
	Start       string `json:"start"       binding:"required"`
	End         string `json:"end"         binding:"required"`
	Weekday     *int   `json:"weekday"     binding:"omitempty,min=0,max=6"`
	Description string `json:"description" binding:"max=255"`
}

// 预览动作
const (
	ActionCreate   = "create"
	ActionOccupied = "occupied"
)

// BatchPreviewItem 预览项
type BatchPreviewItem struct {
	SiteID int    `json:"site_id"`
	Date   string `json:"date"`
	Action string `json:"action"`
}

// BatchPreviewResponse 预览结果
type BatchPreviewResponse struct {
	TotalDates      int                `json:"total_dates"`
	ToCreate        int                `json:"to_create"`
	AlreadyOccupied int                `json:"already_occupied"`
	Items           []BatchPreviewItem `json:"items"`
}

// BatchApplyResponse 执行结果
type BatchApplyResponse struct {
	BatchID string `json:"batch_id"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped"`
}

// BatchUndoResponse 撤销结果
type BatchUndoResponse struct {
	BatchID           string `json:"batch_id"`
	CalendarsModified int64  `json:"calendars_modified"`
	CalendarsRemoved  int64  `json:"calendars_removed"`
}

// CalendarDayResponse 站点日历特殊日
type CalendarDayResponse struct {
	Date         string  `json:"date"`
	Type         string  `json:"type"`
	HalfDayStart *string `json:"half_day_start,omitempty"`
	HalfDayEnd   *string `json:"half_day_end,omitempty"`
	Description  string  `json:"description"`
	Source       string  `json:"source"`
	BatchID      *string `json:"batch_id,omitempty"`
}

// SiteCalendarResponse 站点年度日历（同一年多个共享日历合并）
type SiteCalendarResponse struct {
	SiteID int                   `json:"site_id"`
	Year   int                   `json:"year"`
	Days   []CalendarDayResponse `json:"days"`
}

// WorkerCalendarDayResponse 员工日历特殊日
type WorkerCalendarDayResponse struct {
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Description string  `json:"description"`
}

// WorkerCalendarResponse 员工年度日历
type WorkerCalendarResponse struct {
	WorkerID string                      `json:"worker_id"`
	Year     int                         `json:"year"`
	Days     []WorkerCalendarDayResponse `json:"days"`
}

// CalendarImportResponse ICS 导入结果
type CalendarImportResponse struct {
	SiteID  int `json:"site_id"`
	Year    int `json:"year"`
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}
