package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ── 考勤模块业务错误 ──

var (
	ErrWorkerNotFound = fmt.Errorf("员工不存在: %w", pkgerrors.ErrNotFound)
	ErrBadRange       = fmt.Errorf("日期范围无效: %w", pkgerrors.ErrBadRequest)
)

// ScopePolicy 报表统计哪些站点的打卡
type ScopePolicy string

const (
	ScopePrincipalOnly        ScopePolicy = "principal-only"
	ScopePrincipalPlusForeign ScopePolicy = "principal-plus-foreign"
	ScopeUnrestricted         ScopePolicy = "unrestricted"
)

// ParseScopePolicy 空字符串取默认值 principal-plus-foreign
func ParseScopePolicy(s string) (ScopePolicy, error) {
	switch ScopePolicy(s) {
	case "":
		return ScopePrincipalPlusForeign, nil
	case ScopePrincipalOnly, ScopePrincipalPlusForeign, ScopeUnrestricted:
		return ScopePolicy(s), nil
	}
	return "", fmt.Errorf("未知的站点范围 %q: %w", s, pkgerrors.ErrBadRequest)
}

// AttendanceService 考勤报表业务接口
type AttendanceService interface {
	BuildReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) ([]dto.DayRecord, error)
	BuildWorkerReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) (*dto.WorkerReportResponse, error)
	BuildSiteReport(ctx context.Context, siteID int, from, to string) (*dto.SiteReportResponse, error)
	PresentToday(ctx context.Context) (*dto.PresentTodayResponse, error)
}

type attendanceService struct {
	repo   *repository.Repository
	norm   *datenorm.Normalizer
	cfg    config.AttendanceConfig
	logger *zap.Logger
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(cfg config.AttendanceConfig, repo *repository.Repository, norm *datenorm.Normalizer, logger *zap.Logger) AttendanceService {
	return &attendanceService{repo: repo, norm: norm, cfg: cfg, logger: logger}
}

// ────────────────────── BuildReport ──────────────────────

func (s *attendanceService) BuildReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) ([]dto.DayRecord, error) {
	days, err := s.validateRange(from, to)
	if err != nil {
		return nil, err
	}
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	return s.reduce(ctx, worker, days, policy)
}

func (s *attendanceService) BuildWorkerReport(ctx context.Context, workerID, from, to string, policy ScopePolicy) (*dto.WorkerReportResponse, error) {
	days, err := s.validateRange(from, to)
	if err != nil {
		return nil, err
	}
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	records, err := s.reduce(ctx, worker, days, policy)
	if err != nil {
		return nil, err
	}
	return toWorkerReport(worker, policy, from, to, records), nil
}

// ────────────────────── BuildSiteReport ──────────────────────

// BuildSiteReport 站点下每位在职员工按 principal-only 统计
func (s *attendanceService) BuildSiteReport(ctx context.Context, siteID int, from, to string) (*dto.SiteReportResponse, error) {
	days, err := s.validateRange(from, to)
	if err != nil {
		return nil, err
	}

	site, err := s.repo.Site.GetByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	workers, err := s.repo.Worker.ListActiveByPrincipalSite(ctx, siteID)
	if err != nil {
		s.logger.Error("查询站点员工失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	resp := &dto.SiteReportResponse{
		SiteID:   site.SiteID,
		SiteName: site.Name,
		Start:    from,
		End:      to,
		Workers:  make([]dto.WorkerReportResponse, 0, len(workers)),
	}
	for i := range workers {
		records, err := s.reduce(ctx, &workers[i], days, ScopePrincipalOnly)
		if err != nil {
			return nil, err
		}
		resp.Workers = append(resp.Workers, *toWorkerReport(&workers[i], ScopePrincipalOnly, from, to, records))
	}
	return resp, nil
}

// ── 内部实现 ──

func (s *attendanceService) validateRange(from, to string) ([]string, error) {
	if from == "" || to == "" {
		return nil, ErrBadRange
	}
	f, err := datenorm.AnchorYMD(from)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRange, err)
	}
	t, err := datenorm.AnchorYMD(to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRange, err)
	}
	if f.After(t) {
		return nil, fmt.Errorf("%w: 起始日期晚于结束日期", ErrBadRange)
	}
	days, err := datenorm.DaysBetween(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRange, err)
	}
	if limit := s.cfg.MaxReportDays; limit > 0 && len(days) > limit {
		return nil, fmt.Errorf("%w: 跨度 %d 天超过上限 %d 天", ErrBadRange, len(days), limit)
	}
	return days, nil
}

func (s *attendanceService) getWorker(ctx context.Context, workerID string) (*model.Worker, error) {
	worker, err := s.repo.Worker.GetByID(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("查询员工失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}
	return worker, nil
}

// permittedSites 返回允许的站点集合；nil 表示不限站点
// 员工没有任何可用站点时也按不限处理，与旧版"无过滤"一致
func permittedSites(w *model.Worker, policy ScopePolicy) map[int]bool {
	if policy == ScopeUnrestricted {
		return nil
	}
	set := make(map[int]bool)
	if w.PrincipalSiteID != nil {
		set[*w.PrincipalSiteID] = true
	}
	if policy == ScopePrincipalPlusForeign {
		for _, id := range w.ForeignSiteIDs {
			set[id] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return set
}

// reduce 一次性读取员工的打卡与日历，再逐日判定
func (s *attendanceService) reduce(ctx context.Context, worker *model.Worker, days []string, policy ScopePolicy) ([]dto.DayRecord, error) {
	from, to := days[0], days[len(days)-1]
	fromInstant, toInstant, err := s.norm.DayBounds(from, to)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRange, err)
	}

	permitted := permittedSites(worker, policy)

	records, err := s.repo.Attendance.ListForWorker(ctx, worker.PunchKeys(), from, to, fromInstant, toInstant)
	if err != nil {
		s.logger.Error("查询打卡记录失败", zap.String("worker_id", worker.WorkerID), zap.Error(err))
		return nil, err
	}

	years := yearsSpanned(days)
	workerMarks, err := s.loadWorkerMarks(ctx, worker.WorkerID, years)
	if err != nil {
		return nil, err
	}
	siteMarks := map[string]model.DayMark{}
	if worker.PrincipalSiteID != nil {
		siteMarks, err = s.loadSiteMarks(ctx, *worker.PrincipalSiteID, years)
		if err != nil {
			return nil, err
		}
	}

	// ── 分桶 ──
	buckets := make(map[string]*dayBucket, len(days))
	for _, d := range days {
		buckets[d] = newDayBucket()
	}
	for _, rec := range records {
		for _, p := range rec.Punches {
			day, err := s.norm.CivilDay(p.PunchedAt)
			if err != nil {
				s.logger.Debug("忽略无法解析的打卡",
					zap.Int64("record_id", rec.RecordID),
					zap.Int64("punch_id", p.PunchID),
					zap.Error(err))
				continue
			}
			bucket, ok := buckets[day]
			if !ok {
				continue
			}
			siteID := rec.SiteID
			if p.SiteID != nil {
				siteID = *p.SiteID
			}
			bucket.add(siteID, permitted == nil || permitted[siteID], p)
		}
	}

	today := ""
	pendingPolicy := s.cfg.OpenEntryPolicy == config.OpenEntryPending
	if pendingPolicy {
		today = s.norm.Today()
	}

	// ── 逐日判定 ──
	result := make([]dto.DayRecord, 0, len(days))
	for _, d := range days {
		facts := &dayFacts{
			date:       d,
			bucket:     buckets[d],
			restricted: permitted != nil,
			pending:    pendingPolicy && d >= today,
		}
		if m, ok := workerMarks[d]; ok {
			facts.workerMark = &m
		}
		if m, ok := siteMarks[d]; ok {
			facts.siteMark = &m
		}
		result = append(result, decideDay(facts, s.norm))
	}
	return result, nil
}

func (s *attendanceService) loadWorkerMarks(ctx context.Context, workerID string, years []int) (map[string]model.DayMark, error) {
	cals, err := s.repo.WorkerCalendar.ListByWorkerAndYears(ctx, workerID, years)
	if err != nil {
		s.logger.Error("查询员工日历失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}
	marks := make(map[string]model.DayMark)
	for _, cal := range cals {
		for _, d := range cal.Days {
			key := datenorm.YMD(datenorm.AnchorDate(d.Day))
			if _, exists := marks[key]; !exists {
				marks[key] = d.Mark()
			}
		}
	}
	return marks, nil
}

func (s *attendanceService) loadSiteMarks(ctx context.Context, siteID int, years []int) (map[string]model.DayMark, error) {
	cals, err := s.repo.Calendar.ListBySiteAndYears(ctx, siteID, years)
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}
	marks := make(map[string]model.DayMark)
	for _, cal := range cals {
		for _, d := range cal.Days {
			key := datenorm.YMD(datenorm.AnchorDate(d.Day))
			if _, exists := marks[key]; !exists {
				marks[key] = d.Mark()
			}
		}
	}
	return marks, nil
}

// yearsSpanned 日期序列覆盖的年份（升序）
func yearsSpanned(days []string) []int {
	var years []int
	seen := map[int]bool{}
	for _, d := range days {
		y, err := datenorm.Year(d)
		if err != nil || seen[y] {
			continue
		}
		seen[y] = true
		years = append(years, y)
	}
	return years
}

func toWorkerReport(w *model.Worker, policy ScopePolicy, from, to string, days []dto.DayRecord) *dto.WorkerReportResponse {
	return &dto.WorkerReportResponse{
		WorkerID:        w.WorkerID,
		CheckerID:       w.CheckerID,
		Name:            w.Name,
		PrincipalSiteID: w.PrincipalSiteID,
		Scope:           string(policy),
		Start:           from,
		End:             to,
		Days:            days,
	}
}
