package service

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// ── iCalendar 导入 / 导出 ──────────────────────────────────
//
// 导入：每个 VEVENT 视为站点特殊日，覆盖 [DTSTART, DTEND) 内的每一天
//       （DTEND 缺省时只取 DTSTART 当天），只保留指定年份的日期
// 导出：站点日历每个特殊日输出为一条全天事件

const (
	icsMaxFileSize  = 1 * 1024 * 1024 // 1MB
	icsMaxEventDays = 60
	icsProductID    = "-//AluAsistencias//Site Calendar//ES"
)

// parsedCalendarDay ICS 解析中间结构
type parsedCalendarDay struct {
	Day         time.Time // 锚定日
	Description string
}

// ParseCalendarICS 解析 ICS 内容为锚定日期列表，同一天只保留第一条
func ParseCalendarICS(reader io.Reader, year int, loc *time.Location) ([]parsedCalendarDay, error) {
	cal, err := ics.ParseCalendar(io.LimitReader(reader, icsMaxFileSize))
	if err != nil {
		return nil, fmt.Errorf("ICS 格式解析失败: %w", err)
	}

	seen := make(map[string]bool)
	var out []parsedCalendarDay
	for _, evt := range cal.Events() {
		summary := ""
		if p := evt.GetProperty(ics.ComponentPropertySummary); p != nil {
			summary = strings.TrimSpace(p.Value)
		}

		start, err := parseICSDate(evt, ics.ComponentPropertyDtStart, loc)
		if err != nil {
			continue
		}
		end, err := parseICSDate(evt, ics.ComponentPropertyDtEnd, loc)
		if err != nil || !end.After(start) {
			end = start.AddDate(0, 0, 1)
		}

		for d, n := start, 0; d.Before(end) && n < icsMaxEventDays; d, n = d.AddDate(0, 0, 1), n+1 {
			if d.Year() != year {
				continue
			}
			key := datenorm.YMD(d)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, parsedCalendarDay{Day: d, Description: summary})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

// parseICSDate 从 VEVENT 中解析日期属性并锚定
// 带时间的值先换算到 TZID（缺省为业务时区）再取民用日
func parseICSDate(evt *ics.VEvent, propName ics.ComponentProperty, loc *time.Location) (time.Time, error) {
	prop := evt.GetProperty(propName)
	if prop == nil {
		return time.Time{}, fmt.Errorf("missing property %s", propName)
	}
	val := strings.TrimSpace(prop.Value)

	if t, err := time.Parse("20060102", val); err == nil {
		return datenorm.AnchorDate(t), nil
	}

	zone := loc
	for k, v := range prop.ICalParameters {
		if strings.ToUpper(k) == "TZID" && len(v) > 0 {
			if l, err := time.LoadLocation(v[0]); err == nil {
				zone = l
			}
		}
	}

	if t, err := time.Parse("20060102T150405Z", val); err == nil {
		local := t.In(zone)
		return datenorm.AnchorDate(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)), nil
	}
	if t, err := time.ParseInLocation("20060102T150405", val, zone); err == nil {
		return datenorm.AnchorDate(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)), nil
	}
	return time.Time{}, fmt.Errorf("无法解析 %s: %q", propName, val)
}

// BuildCalendarICS 把站点日历特殊日序列化为 iCalendar 文本
func BuildCalendarICS(name string, days []model.CalendarDay, stamp time.Time) string {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(icsProductID)
	cal.SetXWRCalName(name)

	for _, d := range days {
		day := datenorm.AnchorDate(d.Day)
		ymd := datenorm.YMD(day)
		evt := cal.AddEvent(fmt.Sprintf("%d-%s@alu-asistencias", d.CalendarID, ymd))
		evt.SetDtStampTime(stamp)
		start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		evt.SetAllDayStartAt(start)
		evt.SetAllDayEndAt(start.AddDate(0, 0, 1))

		summary := d.Type
		if d.Description != "" {
			summary = d.Type + ": " + d.Description
		}
		evt.SetSummary(summary)
		if d.HalfDayStart != nil && d.HalfDayEnd != nil {
			evt.SetDescription(fmt.Sprintf("%s-%s", *d.HalfDayStart, *d.HalfDayEnd))
		}
	}
	return cal.Serialize()
}
