package dto

// ── 排班解析 DTO ──

// 排班来源
const (
	OriginExceptionDay   = "exception-day"
	OriginExceptionRange = "exception-range"
	OriginBaseSchedule   = "base-schedule"
	OriginUndefined      = "undefined"
)

// Shift 班次
type Shift struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	Overnight bool   `json:"overnight"`
}

// NewHireBlock 新员工排班块（只读数据，不参与解析）
type NewHireBlock struct {
	Active             bool    `json:"active"`
	DurationDays       int     `json:"duration_days"`
	OnlyBaseActiveDays bool    `json:"only_base_active_days"`
	Shifts             []Shift `json:"shifts"`
}

// ResolvedSchedule 某站点某天生效的排班
type ResolvedSchedule struct {
	SiteID  int           `json:"site_id"`
	Date    string        `json:"date"`
	Origin  string        `json:"origin"`
	Status  string        `json:"status,omitempty"`
	Shifts  []Shift       `json:"shifts"`
	NewHire *NewHireBlock `json:"new_hire,omitempty"`
}

// ResolveScheduleRequest 排班解析查询参数
type ResolveScheduleRequest struct {
	Date string `form:"date" binding:"required"`
}

// ── 基础排班写入 ──

// WeekdayRuleInput 单个星期的规则；weekday 接受 0..6 或 1..7（7 表示周日）
type WeekdayRuleInput struct {
	Weekday int     `json:"weekday"`
	Shifts  []Shift `json:"shifts"`
}

// NewHireInput 新员工排班块输入
type NewHireInput struct {
	Active             bool    `json:"active"`
	DurationDays       *int    `json:"duration_days"`
	OnlyBaseActiveDays *bool   `json:"only_base_active_days"`
	Shifts             []Shift `json:"shifts"`
}

// SetBaseScheduleRequest 设置站点基础排班请求
type SetBaseScheduleRequest struct {
	EffectiveFrom string             `json:"effective_from" binding:"required"`
	Rules         []WeekdayRuleInput `json:"rules"`
	NewHire       *NewHireInput      `json:"new_hire"`
}

// WeekdayRule 基础排班规则
type WeekdayRule struct {
	Weekday int     `json:"weekday"`
	Shifts  []Shift `json:"shifts"`
}

// BaseScheduleResponse 站点基础排班响应
type BaseScheduleResponse struct {
	SiteID        int           `json:"site_id"`
	EffectiveFrom string        `json:"effective_from"`
	Rules         []WeekdayRule `json:"rules"`
	NewHire       *NewHireBlock `json:"new_hire,omitempty"`
	Version       int           `json:"version"`
}

// ── 例外写入 ──

// PutDayExceptionRequest 写入单日例外（同一天覆盖）
type PutDayExceptionRequest struct {
	Date        string  `json:"date"        binding:"required"`
	Type        string  `json:"type"        binding:"required,oneof=attendance-override rest holiday event suspension half-day custom"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Description string  `json:"description" binding:"max=255"`
}

// DayExceptionResponse 单日例外响应
type DayExceptionResponse struct {
	SiteID      int     `json:"site_id"`
	Date        string  `json:"date"`
	Type        string  `json:"type"`
	StartTime   *string `json:"start_time,omitempty"`
	EndTime     *string `json:"end_time,omitempty"`
	Description string  `json:"description"`
}

// AddRangeExceptionRequest 新增区间例外
type AddRangeExceptionRequest struct {
	Start       string  `json:"start"       binding:"required"`
	End         string  `json:"end"         binding:"required"`
	Weekdays    []int   `json:"weekdays"    binding:"dive,min=0,max=6"`
	Shifts      []Shift `json:"shifts"`
	Description string  `json:"description" binding:"max=255"`
}

// RangeExceptionResponse 区间例外响应
type RangeExceptionResponse struct {
	ID          int64   `json:"id"`
	SiteID      int     `json:"site_id"`
	Start       string  `json:"start"`
	End         string  `json:"end"`
	Weekdays    []int   `json:"weekdays"`
	Shifts      []Shift `json:"shifts"`
	Description string  `json:"description"`
}
