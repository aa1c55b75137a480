package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// ────────────────────── PresentToday ──────────────────────

// presentEntry 某员工今天最早的一次进场
type presentEntry struct {
	key    string
	siteID int
	at     time.Time
}

// PresentToday 业务时区下今天有进场打卡的员工，按进场时间升序
func (s *attendanceService) PresentToday(ctx context.Context) (*dto.PresentTodayResponse, error) {
	today := s.norm.Today()
	from, to, err := s.norm.DayBounds(today, today)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.Attendance.ListForDay(ctx, today, from, to)
	if err != nil {
		s.logger.Error("查询今日打卡失败", zap.String("date", today), zap.Error(err))
		return nil, err
	}

	byKey := make(map[string]*presentEntry)
	for _, rec := range records {
		for _, p := range rec.Punches {
			if !p.IsEntry() {
				continue
			}
			if day, err := s.norm.CivilDay(p.PunchedAt); err != nil || day != today {
				continue
			}
			siteID := rec.SiteID
			if p.SiteID != nil {
				siteID = *p.SiteID
			}
			if cur, ok := byKey[rec.WorkerKey]; !ok || p.PunchedAt.Before(cur.at) {
				byKey[rec.WorkerKey] = &presentEntry{key: rec.WorkerKey, siteID: siteID, at: p.PunchedAt}
			}
		}
	}

	resp := &dto.PresentTodayResponse{Date: today, Workers: []dto.PresentWorker{}}
	if len(byKey) == 0 {
		return resp, nil
	}

	workerByKey, siteNames, err := s.presentLookups(ctx, byKey)
	if err != nil {
		return nil, err
	}

	// 同一员工可能同时以考勤编号和内部 ID 出现，合并为最早的一次
	merged := make(map[string]*presentEntry, len(byKey))
	for key, e := range byKey {
		id := "key:" + key
		if w, ok := workerByKey[key]; ok {
			id = w.WorkerID
		}
		if cur, ok := merged[id]; !ok || e.at.Before(cur.at) {
			merged[id] = e
		}
	}

	for _, e := range merged {
		item := dto.PresentWorker{
			CheckerID: e.key,
			SiteID:    e.siteID,
			SiteName:  siteNames[e.siteID],
			Entrada:   s.norm.ClockText(e.at),
			EntradaAt: e.at.UTC().Format(time.RFC3339),
		}
		if w, ok := workerByKey[e.key]; ok {
			item.WorkerID = w.WorkerID
			item.CheckerID = w.CheckerID
			item.Name = w.Name
		}
		resp.Workers = append(resp.Workers, item)
	}
	sort.Slice(resp.Workers, func(i, j int) bool {
		a, b := resp.Workers[i], resp.Workers[j]
		if a.EntradaAt != b.EntradaAt {
			return a.EntradaAt < b.EntradaAt
		}
		return a.CheckerID < b.CheckerID
	})
	return resp, nil
}

// presentLookups 批量取出打卡键对应的员工与站点名
func (s *attendanceService) presentLookups(ctx context.Context, byKey map[string]*presentEntry) (map[string]*model.Worker, map[int]string, error) {
	keys := make([]string, 0, len(byKey))
	siteSet := make(map[int]bool)
	for key, e := range byKey {
		keys = append(keys, key)
		siteSet[e.siteID] = true
	}
	sort.Strings(keys)

	workers, err := s.repo.Worker.ListByPunchKeys(ctx, keys)
	if err != nil {
		s.logger.Error("查询今日在场员工失败", zap.Int("keys", len(keys)), zap.Error(err))
		return nil, nil, err
	}
	workerByKey := make(map[string]*model.Worker, len(workers)*2)
	for i := range workers {
		workerByKey[workers[i].CheckerID] = &workers[i]
		workerByKey[workers[i].WorkerID] = &workers[i]
	}

	siteIDs := make([]int, 0, len(siteSet))
	for id := range siteSet {
		siteIDs = append(siteIDs, id)
	}
	sort.Ints(siteIDs)
	sites, err := s.repo.Site.ListByIDs(ctx, siteIDs)
	if err != nil {
		s.logger.Error("查询站点失败", zap.Ints("site_ids", siteIDs), zap.Error(err))
		return nil, nil, err
	}
	siteNames := make(map[int]string, len(sites))
	for _, site := range sites {
		siteNames[site.SiteID] = site.Name
	}
	return workerByKey, siteNames, nil
}
