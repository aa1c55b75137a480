// Package datenorm 负责业务日期的两种表示：
//   - 民用日（"YYYY-MM-DD"）：在业务时区下观察某个瞬间得到的日期
//   - 锚定日：某个日历日在 UTC 当天 12:00 的瞬间，落库的日历日期一律使用该形式
//
// 锚定到正午后，在 UTC-12 到 UTC+11 之间的任何时区重新取民用日都会得到同一天。
package datenorm

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// LayoutYMD 民用日格式
const LayoutYMD = "2006-01-02"

// anchorHour 锚定时刻（UTC）
const anchorHour = 12

// DateParseError 单个日期 / 时间戳无法解析
type DateParseError struct {
	Value  string
	Reason string
}

func (e *DateParseError) Error() string {
	return fmt.Sprintf("日期解析失败 %q: %s", e.Value, e.Reason)
}

// Is 让 errors.Is(err, pkgerrors.ErrDateParse) 成立
func (e *DateParseError) Is(target error) bool {
	return target == pkgerrors.ErrDateParse
}

// ── 锚定 ──

// AnchorDate 取 t 在 UTC 下的年月日，返回当天 12:00:00Z
func AnchorDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), anchorHour, 0, 0, 0, time.UTC)
}

// AnchorYMD 把 "YYYY-MM-DD" 转为锚定瞬间
func AnchorYMD(s string) (time.Time, error) {
	d, err := time.Parse(LayoutYMD, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &DateParseError{Value: s, Reason: "期望格式 YYYY-MM-DD"}
	}
	return AnchorDate(d), nil
}

// ParseAnchor 接受 "YYYY-MM-DD" 或 RFC 3339，统一返回锚定瞬间
func ParseAnchor(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) == len(LayoutYMD) {
		return AnchorYMD(s)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, &DateParseError{Value: s, Reason: "期望 YYYY-MM-DD 或 RFC 3339"}
	}
	return AnchorDate(t), nil
}

// YMD 锚定瞬间的 UTC 年月日
func YMD(anchored time.Time) string {
	return anchored.UTC().Format(LayoutYMD)
}

// ParseInstant 解析打卡时间戳（RFC 3339）
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, &DateParseError{Value: s, Reason: "期望 RFC 3339 时间戳"}
	}
	return t, nil
}

// ── 业务时区 ──

// Normalizer 绑定业务时区的日期工具
type Normalizer struct {
	loc   *time.Location
	clock clock.Clock
}

// New 按时区名创建 Normalizer，时区来自配置 attendance.timezone
func New(zone string, clk clock.Clock) (*Normalizer, error) {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("加载时区 %q 失败: %w", zone, err)
	}
	if clk == nil {
		clk = clock.Real()
	}
	return &Normalizer{loc: loc, clock: clk}, nil
}

// Location 业务时区
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// CivilDay 瞬间在业务时区下的民用日
func (n *Normalizer) CivilDay(instant time.Time) (string, error) {
	if instant.IsZero() {
		return "", &DateParseError{Value: "", Reason: "空时间戳"}
	}
	return instant.In(n.loc).Format(LayoutYMD), nil
}

// ClockText 瞬间在业务时区下的 HH:mm
func (n *Normalizer) ClockText(instant time.Time) string {
	return instant.In(n.loc).Format("15:04")
}

// DayBounds 返回 from 当天的第一个瞬间与 to 当天的最后一个瞬间（业务时区）
func (n *Normalizer) DayBounds(from, to string) (time.Time, time.Time, error) {
	f, err := time.ParseInLocation(LayoutYMD, strings.TrimSpace(from), n.loc)
	if err != nil {
		return time.Time{}, time.Time{}, &DateParseError{Value: from, Reason: "期望格式 YYYY-MM-DD"}
	}
	t, err := time.ParseInLocation(LayoutYMD, strings.TrimSpace(to), n.loc)
	if err != nil {
		return time.Time{}, time.Time{}, &DateParseError{Value: to, Reason: "期望格式 YYYY-MM-DD"}
	}
	// 夏令时切换日不一定是 24 小时，用 AddDate 取次日零点
	end := t.AddDate(0, 0, 1).Add(-time.Millisecond)
	return f, end, nil
}

// Today 业务时区下的今天
func (n *Normalizer) Today() string {
	return n.clock.Now().In(n.loc).Format(LayoutYMD)
}

// ── 日期序列 ──

// DaysBetween 返回 [from, to] 内每一天的民用日；from > to 时返回空
func DaysBetween(from, to string) ([]string, error) {
	f, err := AnchorYMD(from)
	if err != nil {
		return nil, err
	}
	t, err := AnchorYMD(to)
	if err != nil {
		return nil, err
	}
	var days []string
	for d := f; !d.After(t); d = d.AddDate(0, 0, 1) {
		days = append(days, YMD(d))
	}
	return days, nil
}

// WeekdayDates 返回 [from, to] 内所有星期为 weekday（0=周日）的锚定日期
func WeekdayDates(weekday int, from, to string) ([]time.Time, error) {
	if weekday < 0 || weekday > 6 {
		return nil, &DateParseError{Value: fmt.Sprint(weekday), Reason: "星期必须在 0..6 之间"}
	}
	f, err := AnchorYMD(from)
	if err != nil {
		return nil, err
	}
	t, err := AnchorYMD(to)
	if err != nil {
		return nil, err
	}
	offset := (weekday - int(f.Weekday()) + 7) % 7
	var out []time.Time
	for d := f.AddDate(0, 0, offset); !d.After(t); d = d.AddDate(0, 0, 7) {
		out = append(out, d)
	}
	return out, nil
}

// GroupByYear 按 UTC 年份分组锚定日期，返回升序年份与分组
func GroupByYear(dates []time.Time) ([]int, map[int][]time.Time) {
	groups := make(map[int][]time.Time)
	for _, d := range dates {
		y := d.UTC().Year()
		groups[y] = append(groups[y], d)
	}
	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Ints(years)
	return years, groups
}

// Weekday 民用日对应的星期（0=周日）
func Weekday(ymd string) (int, error) {
	d, err := AnchorYMD(ymd)
	if err != nil {
		return 0, err
	}
	return int(d.Weekday()), nil
}

// Year 民用日的年份
func Year(ymd string) (int, error) {
	d, err := AnchorYMD(ymd)
	if err != nil {
		return 0, err
	}
	return d.Year(), nil
}
