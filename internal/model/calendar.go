package model

import (
	"strings"
	"time"
)

// 日历条目来源
const (
	SourceManual = "manual"
)

// Calendar 站点年度日历，可被多个站点共享
type Calendar struct {
	CalendarID int64    `gorm:"primaryKey;autoIncrement" json:"calendar_id"`
	Year       int      `gorm:"not null"                 json:"year"`
	SiteIDs    IntArray `gorm:"type:integer[]"           json:"site_ids"`
	// CreatedByBatch 由批量助手新建时记录批次，撤销后若已无特殊日则一并删除
	CreatedByBatch *string       `gorm:"type:uuid"                json:"created_by_batch,omitempty"`
	Days           []CalendarDay `gorm:"foreignKey:CalendarID"    json:"days,omitempty"`
	BaseModel
}

func (Calendar) TableName() string { return "calendars" }

// CalendarDay 站点日历特殊日，Day 为锚定瞬间（UTC 12:00），(calendar_id, day) 唯一
type CalendarDay struct {
	CalendarDayID int64     `gorm:"primaryKey;autoIncrement"   json:"calendar_day_id"`
	CalendarID    int64     `gorm:"not null;uniqueIndex:uq_calendar_day" json:"calendar_id"`
	Day           time.Time `gorm:"not null;uniqueIndex:uq_calendar_day" json:"day"`
	Type          string    `gorm:"type:varchar(32);not null"  json:"type"`
	HalfDayStart  *string   `gorm:"type:varchar(5)"            json:"half_day_start,omitempty"`
	HalfDayEnd    *string   `gorm:"type:varchar(5)"            json:"half_day_end,omitempty"`
	Description   string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
	Source        string    `gorm:"type:varchar(32);not null;default:manual" json:"source"`
	BatchID       *string   `gorm:"type:uuid"                  json:"batch_id,omitempty"`
	CreatedBy     string    `gorm:"type:varchar(120);not null;default:''" json:"created_by"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (CalendarDay) TableName() string { return "calendar_days" }

// WorkerCalendar 员工年度日历
type WorkerCalendar struct {
	WorkerCalendarID int64               `gorm:"primaryKey;autoIncrement"     json:"worker_calendar_id"`
	WorkerID         string              `gorm:"type:uuid;not null;uniqueIndex:uq_worker_calendar" json:"worker_id"`
	Year             int                 `gorm:"not null;uniqueIndex:uq_worker_calendar" json:"year"`
	Days             []WorkerCalendarDay `gorm:"foreignKey:WorkerCalendarID" json:"days,omitempty"`
	CreatedAt        time.Time           `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (WorkerCalendar) TableName() string { return "worker_calendars" }

// WorkerCalendarDay 员工特殊日；attendance-override 类型带进出时间
type WorkerCalendarDay struct {
	WorkerCalendarDayID int64     `gorm:"primaryKey;autoIncrement" json:"worker_calendar_day_id"`
	WorkerCalendarID    int64     `gorm:"not null"                 json:"worker_calendar_id"`
	Day                 time.Time `gorm:"not null"                 json:"day"`
	Type                string    `gorm:"type:varchar(32);not null" json:"type"`
	StartTime           *string   `gorm:"type:varchar(5)"          json:"start_time,omitempty"`
	EndTime             *string   `gorm:"type:varchar(5)"          json:"end_time,omitempty"`
	Description         string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
}

func (WorkerCalendarDay) TableName() string { return "worker_calendar_days" }

// ════════════════════════════════════════════════════════════
// DayMark 特殊日的判定结果
// 在数据访问边界把"类型字符串 + 可选时间"归一为两种形态
// ════════════════════════════════════════════════════════════

// MarkKind 特殊日形态
type MarkKind int

const (
	// MarkTerminal 终止型：当天状态即为其类型，时间留空
	MarkTerminal MarkKind = iota
	// MarkManual 手工出勤：带明确的进出时间
	MarkManual
)

// DayMark 归一后的特殊日
type DayMark struct {
	Kind  MarkKind
	Label string
	Start string
	End   string
}

// manualTypes 视为手工出勤的类型（含旧数据别名）
var manualTypes = map[string]bool{
	DayTypeAttendanceOverride: true,
	"attendance":              true,
	"asistencia":              true,
}

// IsManualType 类型是否属于手工出勤（去空格、不区分大小写）
func IsManualType(t string) bool {
	return manualTypes[strings.ToLower(strings.TrimSpace(t))]
}

// ClassifyMark 将类型与可选时间归一为 DayMark
// 手工出勤缺任一时间时按终止型处理
func ClassifyMark(typ string, start, end *string) DayMark {
	if IsManualType(typ) && start != nil && end != nil && *start != "" && *end != "" {
		return DayMark{Kind: MarkManual, Label: typ, Start: *start, End: *end}
	}
	return DayMark{Kind: MarkTerminal, Label: typ}
}

// Mark 员工特殊日的归一形态
func (d WorkerCalendarDay) Mark() DayMark {
	return ClassifyMark(d.Type, d.StartTime, d.EndTime)
}

// Mark 站点日历特殊日的归一形态
func (d CalendarDay) Mark() DayMark {
	return ClassifyMark(d.Type, d.HalfDayStart, d.HalfDayEnd)
}
