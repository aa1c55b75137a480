package model

import "time"

// 员工状态
const (
	WorkerStatusActive   = "active"
	WorkerStatusInactive = "inactive"
)

// Worker 员工
// CheckerID 是考勤机上的编号，始终按字符串处理
type Worker struct {
	WorkerID        string     `gorm:"type:uuid;primaryKey"              json:"worker_id"`
	CheckerID       string     `gorm:"type:varchar(64);not null;uniqueIndex" json:"checker_id"`
	Name            string     `gorm:"type:varchar(120);not null"        json:"name"`
	PrincipalSiteID *int       `gorm:"index"                             json:"principal_site_id,omitempty"`
	ForeignSiteIDs  IntArray   `gorm:"type:integer[]"                    json:"foreign_site_ids"`
	Status          string     `gorm:"type:varchar(16);not null;default:active" json:"status"`
	HiredAt         *time.Time `json:"hired_at,omitempty"`
	Version         int        `gorm:"not null;default:1"                json:"version"`
	BaseModel
}

func (Worker) TableName() string { return "workers" }

// PunchKeys 查询打卡时可接受的员工键：考勤编号与内部 ID 的并集
func (w *Worker) PunchKeys() []string {
	keys := []string{w.CheckerID}
	if w.WorkerID != "" && w.WorkerID != w.CheckerID {
		keys = append(keys, w.WorkerID)
	}
	return keys
}

// WorkerSiteHistory 员工站点履历，EndedAt 为空表示当前所在站点
type WorkerSiteHistory struct {
	HistoryID int64      `gorm:"primaryKey;autoIncrement"   json:"history_id"`
	WorkerID  string     `gorm:"type:uuid;not null;index"   json:"worker_id"`
	SiteID    int        `gorm:"not null"                   json:"site_id"`
	SiteName  string     `gorm:"type:varchar(120);not null;default:''" json:"site_name"`
	StartedAt time.Time  `gorm:"not null"                   json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

func (WorkerSiteHistory) TableName() string { return "worker_site_history" }
