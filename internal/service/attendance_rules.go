package service

import (
	"sort"
	"time"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// ════════════════════════════════════════════════════════════
// 每日状态判定
// 先把打卡按民用日分桶，再按 statusRules 的顺序取第一条命中的规则
// ════════════════════════════════════════════════════════════

// punchSpan 一组打卡中最早的进场与最晚的离场
type punchSpan struct {
	entry *time.Time
	exit  *time.Time
	count int
}

func (s *punchSpan) add(p model.Punch) {
	s.count++
	at := p.PunchedAt
	switch {
	case p.IsEntry():
		if s.entry == nil || at.Before(*s.entry) {
			s.entry = &at
		}
	case p.IsExit():
		if s.exit == nil || at.After(*s.exit) {
			s.exit = &at
		}
	}
}

// dayBucket 某一天的全部打卡
type dayBucket struct {
	inScope punchSpan
	outside map[int]*punchSpan
	sites   map[int]bool
}

func newDayBucket() *dayBucket {
	return &dayBucket{outside: make(map[int]*punchSpan), sites: make(map[int]bool)}
}

func (b *dayBucket) add(siteID int, permitted bool, p model.Punch) {
	b.sites[siteID] = true
	if permitted {
		b.inScope.add(p)
		return
	}
	span, ok := b.outside[siteID]
	if !ok {
		span = &punchSpan{}
		b.outside[siteID] = span
	}
	span.add(p)
}

func (b *dayBucket) siteList() []int {
	out := make([]int, 0, len(b.sites))
	for id := range b.sites {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// dayFacts 判定某一天状态所需的全部事实
type dayFacts struct {
	date       string
	bucket     *dayBucket
	workerMark *model.DayMark
	siteMark   *model.DayMark
	restricted bool
	// pending 为 true 时只有进场的当天及以后显示 Pending
	pending bool
}

// dayOutcome 规则产出
type dayOutcome struct {
	status  string
	entrada string
	salida  string
}

type statusRule struct {
	name  string
	apply func(f *dayFacts, norm *datenorm.Normalizer) (dayOutcome, bool)
}

// statusRules 优先级从高到低
var statusRules = []statusRule{
	{name: "manual-attendance", apply: ruleManualAttendance},
	{name: "worker-event", apply: ruleWorkerEvent},
	{name: "complete", apply: ruleComplete},
	{name: "open-entry", apply: ruleOpenEntry},
	{name: "site-event", apply: ruleSiteEvent},
	{name: "other-site", apply: ruleOtherSite},
	{name: "absence", apply: ruleAbsence},
}

func ruleManualAttendance(f *dayFacts, _ *datenorm.Normalizer) (dayOutcome, bool) {
	if f.workerMark == nil || f.workerMark.Kind != model.MarkManual {
		return dayOutcome{}, false
	}
	return dayOutcome{status: dto.StatusManualAttendance, entrada: f.workerMark.Start, salida: f.workerMark.End}, true
}

func ruleWorkerEvent(f *dayFacts, _ *datenorm.Normalizer) (dayOutcome, bool) {
	if f.workerMark == nil {
		return dayOutcome{}, false
	}
	return dayOutcome{status: f.workerMark.Label}, true
}

func ruleComplete(f *dayFacts, norm *datenorm.Normalizer) (dayOutcome, bool) {
	span := f.bucket.inScope
	if span.entry == nil || span.exit == nil {
		return dayOutcome{}, false
	}
	return dayOutcome{
		status:  dto.StatusCompleteAttendance,
		entrada: norm.ClockText(*span.entry),
		salida:  norm.ClockText(*span.exit),
	}, true
}

func ruleOpenEntry(f *dayFacts, norm *datenorm.Normalizer) (dayOutcome, bool) {
	span := f.bucket.inScope
	if span.entry == nil || span.exit != nil {
		return dayOutcome{}, false
	}
	status := dto.StatusAutomaticCheckout
	if f.pending {
		status = dto.StatusPending
	}
	return dayOutcome{status: status, entrada: norm.ClockText(*span.entry)}, true
}

func ruleSiteEvent(f *dayFacts, _ *datenorm.Normalizer) (dayOutcome, bool) {
	if f.siteMark == nil {
		return dayOutcome{}, false
	}
	return dayOutcome{status: f.siteMark.Label}, true
}

// ruleOtherSite 范围内毫无记录、但当天在范围外站点打过卡
func ruleOtherSite(f *dayFacts, norm *datenorm.Normalizer) (dayOutcome, bool) {
	if !f.restricted || f.bucket.inScope.count > 0 || len(f.bucket.outside) == 0 {
		return dayOutcome{}, false
	}
	ids := make([]int, 0, len(f.bucket.outside))
	for id := range f.bucket.outside {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	span := f.bucket.outside[ids[0]]

	out := dayOutcome{status: dto.StatusOtherSite, entrada: dto.NoTime, salida: dto.NoTime}
	if span.entry != nil {
		out.entrada = norm.ClockText(*span.entry)
	}
	if span.exit != nil {
		out.salida = norm.ClockText(*span.exit)
	}
	return out, true
}

func ruleAbsence(_ *dayFacts, _ *datenorm.Normalizer) (dayOutcome, bool) {
	return dayOutcome{status: dto.StatusAbsence, entrada: dto.NoTime, salida: dto.NoTime}, true
}

// decideDay 依次套用 statusRules 并组装 DayRecord
func decideDay(f *dayFacts, norm *datenorm.Normalizer) dto.DayRecord {
	var out dayOutcome
	for _, rule := range statusRules {
		if o, ok := rule.apply(f, norm); ok {
			out = o
			break
		}
	}

	rec := dto.DayRecord{
		Date:    f.date,
		Entrada: out.entrada,
		Salida:  out.salida,
		Status:  out.status,
		Sites:   f.bucket.siteList(),
	}
	if f.workerMark != nil {
		rec.WorkerEvent = f.workerMark.Label
	}
	if f.siteMark != nil {
		rec.SiteEvent = f.siteMark.Label
	}
	return rec
}
