package service

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// 排班解析规则：单日例外 > 区间例外 > 基础排班，第一条命中即返回
// ════════════════════════════════════════════════════════════

// scheduleInput 解析某站点某天所需的已加载数据
type scheduleInput struct {
	date         string
	weekday      int
	dayException *model.SiteDayException
	ranges       []model.SiteRangeException // 已按存储顺序排列
	base         *model.BaseSchedule
}

type scheduleRule struct {
	name  string
	apply func(in *scheduleInput) (*dto.ResolvedSchedule, bool)
}

var scheduleRules = []scheduleRule{
	{name: dto.OriginExceptionDay, apply: matchDayException},
	{name: dto.OriginExceptionRange, apply: matchRangeException},
	{name: dto.OriginBaseSchedule, apply: matchBaseSchedule},
}

// terminalDayTypes 当天不排班、状态即类型
var terminalDayTypes = map[string]bool{
	model.DayTypeRest:       true,
	model.DayTypeHoliday:    true,
	model.DayTypeEvent:      true,
	model.DayTypeSuspension: true,
	model.DayTypeHalfDay:    true,
	model.DayTypeCustom:     true,
}

func matchDayException(in *scheduleInput) (*dto.ResolvedSchedule, bool) {
	exc := in.dayException
	if exc == nil {
		return nil, false
	}
	mark := model.ClassifyMark(exc.Type, exc.StartTime, exc.EndTime)
	if mark.Kind == model.MarkManual {
		return &dto.ResolvedSchedule{
			Origin: dto.OriginExceptionDay,
			Shifts: []dto.Shift{{Start: mark.Start, End: mark.End, Overnight: false}},
		}, true
	}
	if terminalDayTypes[exc.Type] {
		return &dto.ResolvedSchedule{
			Origin: dto.OriginExceptionDay,
			Status: exc.Type,
			Shifts: []dto.Shift{},
		}, true
	}
	// 缺时间的 attendance-override 不命中，交给后续规则
	return nil, false
}

func matchRangeException(in *scheduleInput) (*dto.ResolvedSchedule, bool) {
	for _, r := range in.ranges {
		if in.date < r.StartDay || in.date > r.EndDay {
			continue
		}
		if len(r.Weekdays) > 0 && !r.Weekdays.Contains(in.weekday) {
			continue
		}
		return &dto.ResolvedSchedule{
			Origin: dto.OriginExceptionRange,
			Shifts: toShiftDTOs(r.Shifts),
		}, true
	}
	return nil, false
}

func matchBaseSchedule(in *scheduleInput) (*dto.ResolvedSchedule, bool) {
	rule, ok := in.base.RuleFor(in.weekday)
	if !ok {
		return nil, false
	}
	return &dto.ResolvedSchedule{
		Origin: dto.OriginBaseSchedule,
		Shifts: toShiftDTOs(rule.Shifts),
	}, true
}

// resolveSchedule 纯函数：套用 scheduleRules，全部未命中时 origin=undefined
func resolveSchedule(in *scheduleInput) *dto.ResolvedSchedule {
	for _, rule := range scheduleRules {
		if out, ok := rule.apply(in); ok {
			return out
		}
	}
	return &dto.ResolvedSchedule{Origin: dto.OriginUndefined, Shifts: []dto.Shift{}}
}

func toShiftDTOs(shifts []model.Shift) []dto.Shift {
	out := make([]dto.Shift, 0, len(shifts))
	for _, sh := range shifts {
		out = append(out, dto.Shift{Start: sh.Start, End: sh.End, Overnight: sh.Overnight})
	}
	return out
}

// ════════════════════════════════════════════════════════════
// 写入校验
// ════════════════════════════════════════════════════════════

var hhmmPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

const (
	defaultNewHireDays = 30
	maxNewHireDays     = 180
)

// normalizeWeekday 接受 0..6 与 1..7（7 表示周日）
func normalizeWeekday(v int) (int, bool) {
	if v >= 0 && v <= 6 {
		return v, true
	}
	if v == 7 {
		return 0, true
	}
	return 0, false
}

// validShifts 丢弃格式错误或非跨夜却 start >= end 的班次
func validShifts(in []dto.Shift) []model.Shift {
	out := make([]model.Shift, 0, len(in))
	for _, sh := range in {
		if !hhmmPattern.MatchString(sh.Start) || !hhmmPattern.MatchString(sh.End) {
			continue
		}
		if !sh.Overnight && sh.Start >= sh.End {
			continue
		}
		out = append(out, model.Shift{Start: sh.Start, End: sh.End, Overnight: sh.Overnight})
	}
	return out
}

// ValidateBaseSchedule 校验并归一基础排班
// 无有效班次的星期不保存；同一星期重复出现时后者覆盖前者；未提交新员工块时沿用 prev 的
func ValidateBaseSchedule(req *dto.SetBaseScheduleRequest, prev *model.BaseSchedule) (*model.BaseSchedule, error) {
	from, err := datenorm.ParseAnchor(req.EffectiveFrom)
	if err != nil {
		return nil, fmt.Errorf("effective_from 无效: %w", pkgerrors.ErrBadRequest)
	}

	byWeekday := make(map[int][]model.Shift)
	for _, r := range req.Rules {
		wd, ok := normalizeWeekday(r.Weekday)
		if !ok {
			return nil, fmt.Errorf("weekday 无效 %d: %w", r.Weekday, pkgerrors.ErrBadRequest)
		}
		shifts := validShifts(r.Shifts)
		if len(shifts) == 0 {
			continue
		}
		byWeekday[wd] = shifts
	}

	rules := make([]model.WeekdayRule, 0, len(byWeekday))
	for wd, shifts := range byWeekday {
		rules = append(rules, model.WeekdayRule{Weekday: wd, Shifts: shifts})
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Weekday < rules[j].Weekday })

	out := &model.BaseSchedule{
		EffectiveFrom: datenorm.YMD(from),
		Rules:         rules,
		Version:       1,
	}
	if prev != nil {
		out.Version = prev.Version + 1
		out.NewHire = prev.NewHire
	}

	if nh := req.NewHire; nh != nil {
		days := defaultNewHireDays
		if nh.DurationDays != nil && *nh.DurationDays > 0 {
			days = *nh.DurationDays
		}
		if days > maxNewHireDays {
			return nil, fmt.Errorf("new_hire.duration_days 不能超过 %d: %w", maxNewHireDays, pkgerrors.ErrBadRequest)
		}
		onlyBase := true
		if nh.OnlyBaseActiveDays != nil {
			onlyBase = *nh.OnlyBaseActiveDays
		}
		block := &model.NewHireOverride{
			Active:             nh.Active,
			DurationDays:       days,
			OnlyBaseActiveDays: onlyBase,
			Shifts:             []model.Shift{},
		}
		if nh.Active {
			block.Shifts = validShifts(nh.Shifts)
		}
		out.NewHire = block
	}

	return out, nil
}

// validateDayException 校验单日例外写入
func validateDayException(req *dto.PutDayExceptionRequest) (string, error) {
	anchored, err := datenorm.ParseAnchor(req.Date)
	if err != nil {
		return "", fmt.Errorf("date 无效: %w", pkgerrors.ErrBadRequest)
	}
	for _, t := range []*string{req.StartTime, req.EndTime} {
		if t != nil && *t != "" && !hhmmPattern.MatchString(*t) {
			return "", fmt.Errorf("时间格式应为 HH:mm: %w", pkgerrors.ErrBadRequest)
		}
	}
	if req.Type == model.DayTypeAttendanceOverride {
		if req.StartTime == nil || req.EndTime == nil || *req.StartTime == "" || *req.EndTime == "" {
			return "", fmt.Errorf("attendance-override 需要 start_time 与 end_time: %w", pkgerrors.ErrBadRequest)
		}
		if *req.StartTime >= *req.EndTime {
			return "", fmt.Errorf("start_time 必须早于 end_time: %w", pkgerrors.ErrBadRequest)
		}
	}
	return datenorm.YMD(anchored), nil
}

// validateRangeException 校验区间例外写入
func validateRangeException(req *dto.AddRangeExceptionRequest) (string, string, model.IntArray, []model.Shift, error) {
	start, err := datenorm.ParseAnchor(req.Start)
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("start 无效: %w", pkgerrors.ErrBadRequest)
	}
	end, err := datenorm.ParseAnchor(req.End)
	if err != nil {
		return "", "", nil, nil, fmt.Errorf("end 无效: %w", pkgerrors.ErrBadRequest)
	}
	if start.After(end) {
		return "", "", nil, nil, fmt.Errorf("start 晚于 end: %w", pkgerrors.ErrBadRequest)
	}
	weekdays := make(model.IntArray, 0, len(req.Weekdays))
	for _, wd := range req.Weekdays {
		if wd < 0 || wd > 6 {
			return "", "", nil, nil, fmt.Errorf("weekday 无效 %d: %w", wd, pkgerrors.ErrBadRequest)
		}
		weekdays = append(weekdays, wd)
	}
	return datenorm.YMD(start), datenorm.YMD(end), weekdays.Normalized(), validShifts(req.Shifts), nil
}
