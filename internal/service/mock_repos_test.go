package service

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ── Mock SiteRepository ──

type mockSiteRepo struct {
	sites         map[int]*model.Site
	dayExceptions map[int]map[string]*model.SiteDayException
	ranges        []model.SiteRangeException
	nextRangeID   int64
}

func newMockSiteRepo() *mockSiteRepo {
	return &mockSiteRepo{
		sites:         make(map[int]*model.Site),
		dayExceptions: make(map[int]map[string]*model.SiteDayException),
	}
}

func (m *mockSiteRepo) GetByID(_ context.Context, siteID int) (*model.Site, error) {
	if s, ok := m.sites[siteID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSiteRepo) ListByIDs(_ context.Context, siteIDs []int) ([]model.Site, error) {
	var out []model.Site
	for _, id := range siteIDs {
		if s, ok := m.sites[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSiteRepo) UpdateBaseSchedule(_ context.Context, siteID int, schedule *model.BaseSchedule) error {
	s, ok := m.sites[siteID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.BaseSchedule = schedule
	return nil
}

func (m *mockSiteRepo) ListPendingDeletion(_ context.Context, startedBefore time.Time) ([]model.Site, error) {
	var out []model.Site
	for _, s := range m.sites {
		if s.Status == model.SiteStatusPendingDeletion && s.DeletionStartedAt != nil && !s.DeletionStartedAt.After(startedBefore) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SiteID < out[j].SiteID })
	return out, nil
}

func (m *mockSiteRepo) Delete(_ context.Context, siteID int) error {
	delete(m.sites, siteID)
	return nil
}

func (m *mockSiteRepo) GetDayException(_ context.Context, siteID int, day string) (*model.SiteDayException, error) {
	if e, ok := m.dayExceptions[siteID][day]; ok {
		return e, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSiteRepo) UpsertDayException(_ context.Context, exc *model.SiteDayException) error {
	if m.dayExceptions[exc.SiteID] == nil {
		m.dayExceptions[exc.SiteID] = make(map[string]*model.SiteDayException)
	}
	m.dayExceptions[exc.SiteID][exc.Day] = exc
	return nil
}

func (m *mockSiteRepo) ListRangeExceptionsCovering(_ context.Context, siteID int, day string) ([]model.SiteRangeException, error) {
	var out []model.SiteRangeException
	for _, r := range m.ranges {
		if r.SiteID == siteID && r.StartDay <= day && r.EndDay >= day {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RangeExceptionID < out[j].RangeExceptionID })
	return out, nil
}

func (m *mockSiteRepo) CreateRangeException(_ context.Context, exc *model.SiteRangeException) error {
	m.nextRangeID++
	exc.RangeExceptionID = m.nextRangeID
	m.ranges = append(m.ranges, *exc)
	return nil
}

// ── Mock WorkerRepository ──

type mockWorkerRepo struct {
	workers       map[string]*model.Worker
	history       []model.WorkerSiteHistory
	nextHistoryID int64
}

func newMockWorkerRepo() *mockWorkerRepo {
	return &mockWorkerRepo{workers: make(map[string]*model.Worker)}
}

func (m *mockWorkerRepo) GetByID(_ context.Context, workerID string) (*model.Worker, error) {
	if w, ok := m.workers[workerID]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkerRepo) ListActiveByPrincipalSite(_ context.Context, siteID int) ([]model.Worker, error) {
	var out []model.Worker
	for _, w := range m.workers {
		if w.Status == model.WorkerStatusActive && w.PrincipalSiteID != nil && *w.PrincipalSiteID == siteID {
			out = append(out, *w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockWorkerRepo) ListByPunchKeys(_ context.Context, keys []string) ([]model.Worker, error) {
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}
	var out []model.Worker
	for _, w := range m.workers {
		if keySet[w.CheckerID] || keySet[w.WorkerID] {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (m *mockWorkerRepo) Update(_ context.Context, worker *model.Worker) error {
	stored, ok := m.workers[worker.WorkerID]
	if !ok || stored.Version != worker.Version {
		return pkgerrors.ErrOptimisticLock
	}
	worker.Version++
	cp := *worker
	m.workers[worker.WorkerID] = &cp
	return nil
}

func (m *mockWorkerRepo) GetOpenHistory(_ context.Context, workerID string) (*model.WorkerSiteHistory, error) {
	for i := range m.history {
		if m.history[i].WorkerID == workerID && m.history[i].EndedAt == nil {
			cp := m.history[i]
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockWorkerRepo) CloseHistory(_ context.Context, historyID int64, endedAt time.Time) error {
	for i := range m.history {
		if m.history[i].HistoryID == historyID && m.history[i].EndedAt == nil {
			at := endedAt
			m.history[i].EndedAt = &at
		}
	}
	return nil
}

func (m *mockWorkerRepo) CreateHistory(_ context.Context, entry *model.WorkerSiteHistory) error {
	m.nextHistoryID++
	entry.HistoryID = m.nextHistoryID
	m.history = append(m.history, *entry)
	return nil
}

func (m *mockWorkerRepo) openEntries(workerID string) []model.WorkerSiteHistory {
	var out []model.WorkerSiteHistory
	for _, h := range m.history {
		if h.WorkerID == workerID && h.EndedAt == nil {
			out = append(out, h)
		}
	}
	return out
}

// ── Mock AttendanceRepository ──

type mockAttendanceRepo struct {
	records []model.AttendanceRecord
	calls   int
}

func newMockAttendanceRepo() *mockAttendanceRepo {
	return &mockAttendanceRepo{}
}

func (m *mockAttendanceRepo) ListForWorker(_ context.Context, keys []string, fromDay, toDay string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error) {
	m.calls++
	keySet := make(map[string]bool, len(keys))
	for _, k := range keys {
		keySet[k] = true
	}
	var out []model.AttendanceRecord
	for _, r := range m.records {
		if !keySet[r.WorkerKey] {
			continue
		}
		match := r.Day >= fromDay && r.Day <= toDay
		for _, p := range r.Punches {
			if !p.PunchedAt.Before(fromInstant) && !p.PunchedAt.After(toInstant) {
				match = true
			}
		}
		if match {
			cp := r
			cp.Punches = append([]model.Punch(nil), r.Punches...)
			sort.Slice(cp.Punches, func(i, j int) bool { return cp.Punches[i].PunchedAt.Before(cp.Punches[j].PunchedAt) })
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockAttendanceRepo) ListForDay(_ context.Context, day string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error) {
	m.calls++
	var out []model.AttendanceRecord
	for _, r := range m.records {
		match := r.Day == day
		for _, p := range r.Punches {
			if !p.PunchedAt.Before(fromInstant) && !p.PunchedAt.After(toInstant) {
				match = true
			}
		}
		if match {
			cp := r
			cp.Punches = append([]model.Punch(nil), r.Punches...)
			sort.Slice(cp.Punches, func(i, j int) bool { return cp.Punches[i].PunchedAt.Before(cp.Punches[j].PunchedAt) })
			out = append(out, cp)
		}
	}
	return out, nil
}

// ── Mock CalendarRepository ──

type mockCalendarRepo struct {
	calendars map[int64]*model.Calendar
	nextCalID int64
	nextDayID int64
}

func newMockCalendarRepo() *mockCalendarRepo {
	return &mockCalendarRepo{calendars: make(map[int64]*model.Calendar)}
}

func (m *mockCalendarRepo) sortedIDs() []int64 {
	ids := make([]int64, 0, len(m.calendars))
	for id := range m.calendars {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *mockCalendarRepo) ListBySiteAndYears(_ context.Context, siteID int, years []int) ([]model.Calendar, error) {
	yearSet := make(map[int]bool, len(years))
	for _, y := range years {
		yearSet[y] = true
	}
	var out []model.Calendar
	for _, id := range m.sortedIDs() {
		c := m.calendars[id]
		if yearSet[c.Year] && c.SiteIDs.Contains(siteID) {
			cp := *c
			cp.Days = append([]model.CalendarDay(nil), c.Days...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *mockCalendarRepo) Create(_ context.Context, cal *model.Calendar) error {
	m.nextCalID++
	cal.CalendarID = m.nextCalID
	cp := *cal
	m.calendars[cal.CalendarID] = &cp
	return nil
}

func (m *mockCalendarRepo) InsertDays(_ context.Context, days []model.CalendarDay) (int64, error) {
	var inserted int64
	for _, d := range days {
		c, ok := m.calendars[d.CalendarID]
		if !ok {
			return inserted, gorm.ErrForeignKeyViolated
		}
		dup := false
		for _, existing := range c.Days {
			if existing.Day.Equal(d.Day) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		m.nextDayID++
		d.CalendarDayID = m.nextDayID
		c.Days = append(c.Days, d)
		inserted++
	}
	return inserted, nil
}

func (m *mockCalendarRepo) DeleteBatch(_ context.Context, source, batchID string) (int64, int64, error) {
	var touched, removedCals int64
	for id, c := range m.calendars {
		kept := c.Days[:0]
		removed := false
		for _, d := range c.Days {
			if d.Source == source && d.BatchID != nil && *d.BatchID == batchID {
				removed = true
				continue
			}
			kept = append(kept, d)
		}
		c.Days = kept
		if !removed {
			continue
		}
		touched++
		if len(c.Days) == 0 && c.CreatedByBatch != nil && *c.CreatedByBatch == batchID {
			delete(m.calendars, id)
			removedCals++
		}
	}
	return touched, removedCals, nil
}

// addDay 测试辅助：直接写入一个特殊日
func (m *mockCalendarRepo) addDay(calendarID int64, day time.Time, typ, source string, batchID *string) {
	m.nextDayID++
	c := m.calendars[calendarID]
	c.Days = append(c.Days, model.CalendarDay{
		CalendarDayID: m.nextDayID,
		CalendarID:    calendarID,
		Day:           day,
		Type:          typ,
		Source:        source,
		BatchID:       batchID,
	})
}

// ── Mock WorkerCalendarRepository ──

type mockWorkerCalendarRepo struct {
	calendars []model.WorkerCalendar
}

func newMockWorkerCalendarRepo() *mockWorkerCalendarRepo {
	return &mockWorkerCalendarRepo{}
}

func (m *mockWorkerCalendarRepo) ListByWorkerAndYears(_ context.Context, workerID string, years []int) ([]model.WorkerCalendar, error) {
	yearSet := make(map[int]bool, len(years))
	for _, y := range years {
		yearSet[y] = true
	}
	var out []model.WorkerCalendar
	for _, c := range m.calendars {
		if c.WorkerID == workerID && yearSet[c.Year] {
			out = append(out, c)
		}
	}
	return out, nil
}

// ── 聚合 ──

type mockRepos struct {
	site           *mockSiteRepo
	worker         *mockWorkerRepo
	attendance     *mockAttendanceRepo
	calendar       *mockCalendarRepo
	workerCalendar *mockWorkerCalendarRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		site:           newMockSiteRepo(),
		worker:         newMockWorkerRepo(),
		attendance:     newMockAttendanceRepo(),
		calendar:       newMockCalendarRepo(),
		workerCalendar: newMockWorkerCalendarRepo(),
	}
	repo := &repository.Repository{
		Site:           m.site,
		Worker:         m.worker,
		Attendance:     m.attendance,
		Calendar:       m.calendar,
		WorkerCalendar: m.workerCalendar,
	}
	return repo, m
}

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }
