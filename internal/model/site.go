package model

import "time"

// 站点状态
const (
	SiteStatusActive          = "active"
	SiteStatusPendingDeletion = "pending_deletion"
)

// Site 工作站点
type Site struct {
	SiteID            int           `gorm:"primaryKey;autoIncrement:false"   json:"site_id"`
	Name              string        `gorm:"type:varchar(120);not null"       json:"name"`
	Status            string        `gorm:"type:varchar(32);not null;default:active" json:"status"`
	DeletionStartedAt *time.Time    `json:"deletion_started_at,omitempty"`
	BaseSchedule      *BaseSchedule `gorm:"type:jsonb;serializer:json"       json:"base_schedule,omitempty"`
	BaseModel
}

func (Site) TableName() string { return "sites" }

// Shift 一段班次，"HH:mm"；Overnight 表示跨越午夜
type Shift struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Overnight bool   `json:"overnight"`
}

// WeekdayRule 某个星期（0=周日）的班次
type WeekdayRule struct {
	Weekday int     `json:"weekday"`
	Shifts  []Shift `json:"shifts"`
}

// NewHireOverride 新员工排班块，只作为数据返回，不参与解析
type NewHireOverride struct {
	Active             bool    `json:"active"`
	DurationDays       int     `json:"duration_days"`
	OnlyBaseActiveDays bool    `json:"only_base_active_days"`
	Shifts             []Shift `json:"shifts"`
}

// BaseSchedule 站点基础排班，每个星期最多一条规则
type BaseSchedule struct {
	EffectiveFrom string           `json:"effective_from"`
	Rules         []WeekdayRule    `json:"rules"`
	NewHire       *NewHireOverride `json:"new_hire,omitempty"`
	Version       int              `json:"version"`
}

// RuleFor 返回某个星期的规则
func (b *BaseSchedule) RuleFor(weekday int) (WeekdayRule, bool) {
	if b == nil {
		return WeekdayRule{}, false
	}
	for _, r := range b.Rules {
		if r.Weekday == weekday {
			return r, true
		}
	}
	return WeekdayRule{}, false
}

// ── 例外 ──

// 单日例外类型
const (
	DayTypeAttendanceOverride = "attendance-override"
	DayTypeRest               = "rest"
	DayTypeHoliday            = "holiday"
	DayTypeEvent              = "event"
	DayTypeSuspension         = "suspension"
	DayTypeHalfDay            = "half-day"
	DayTypeCustom             = "custom"
)

// SiteDayException 站点单日例外，(site_id, day) 唯一
type SiteDayException struct {
	DayExceptionID int64   `gorm:"primaryKey;autoIncrement"      json:"day_exception_id"`
	SiteID         int     `gorm:"not null;uniqueIndex:uq_site_day_exception" json:"site_id"`
	Day            string  `gorm:"type:varchar(10);not null;uniqueIndex:uq_site_day_exception" json:"day"`
	Type           string  `gorm:"type:varchar(32);not null"     json:"type"`
	StartTime      *string `gorm:"type:varchar(5)"               json:"start_time,omitempty"`
	EndTime        *string `gorm:"type:varchar(5)"               json:"end_time,omitempty"`
	Description    string  `gorm:"type:varchar(255);not null;default:''" json:"description"`
	BaseModel
}

func (SiteDayException) TableName() string { return "site_day_exceptions" }

// SiteRangeException 站点区间例外，Weekdays 为空表示区间内每天
type SiteRangeException struct {
	RangeExceptionID int64     `gorm:"primaryKey;autoIncrement"   json:"range_exception_id"`
	SiteID           int       `gorm:"not null;index"             json:"site_id"`
	StartDay         string    `gorm:"type:varchar(10);not null"  json:"start_day"`
	EndDay           string    `gorm:"type:varchar(10);not null"  json:"end_day"`
	Weekdays         IntArray  `gorm:"type:integer[]"             json:"weekdays"`
	Shifts           []Shift   `gorm:"type:jsonb;serializer:json" json:"shifts"`
	Description      string    `gorm:"type:varchar(255);not null;default:''" json:"description"`
	CreatedAt        time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (SiteRangeException) TableName() string { return "site_range_exceptions" }
