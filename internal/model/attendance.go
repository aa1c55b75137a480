package model

import (
	"strings"
	"time"
)

// 打卡类型
const (
	PunchEntry = "Entrada"
	PunchExit  = "Salida"
)

// AttendanceRecord 某员工某站点某天的打卡记录
// WorkerKey 可能是考勤编号，也可能是旧数据里的内部 ID
type AttendanceRecord struct {
	RecordID  int64     `gorm:"primaryKey;autoIncrement"  json:"record_id"`
	WorkerKey string    `gorm:"type:varchar(64);not null;index" json:"worker_key"`
	SiteID    int       `gorm:"not null"                  json:"site_id"`
	Day       string    `gorm:"type:varchar(10);not null" json:"day"`
	Punches   []Punch   `gorm:"foreignKey:RecordID"       json:"punches"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (AttendanceRecord) TableName() string { return "attendance_records" }

// Punch 单次打卡；SiteID 为空时归属于所在记录的站点
type Punch struct {
	PunchID      int64     `gorm:"primaryKey;autoIncrement" json:"punch_id"`
	RecordID     int64     `gorm:"not null;index"           json:"record_id"`
	Type         string    `gorm:"type:varchar(32);not null" json:"type"`
	PunchedAt    time.Time `gorm:"not null"                 json:"punched_at"`
	SiteID       *int      `json:"site_id,omitempty"`
	Synced       bool      `gorm:"not null;default:true"    json:"synced"`
	AutoCheckout bool      `gorm:"not null;default:false"   json:"auto_checkout"`
}

func (Punch) TableName() string { return "punches" }

// IsEntry 是否为进场打卡
func (p Punch) IsEntry() bool {
	return p.Type == PunchEntry
}

// IsExit 是否为离场类打卡（Salida 以及 "Salida Comida" 等变体）
func (p Punch) IsExit() bool {
	return strings.HasPrefix(p.Type, PunchExit)
}
