package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ── 批量日历业务错误 ──

var (
	ErrBatchWindowTooLarge = fmt.Errorf("批量日期跨度超过上限: %w", pkgerrors.ErrBadRequest)
	ErrBatchInvalidRange   = fmt.Errorf("批量日期范围无效: %w", pkgerrors.ErrBadRequest)
	ErrBatchInvalidID      = fmt.Errorf("批次 ID 无效: %w", pkgerrors.ErrBadRequest)
)

// CalendarBatchService 批量日历助手：把某个星期批量标记为休息日
type CalendarBatchService interface {
	Preview(ctx context.Context, req *dto.CalendarBatchRequest) (*dto.BatchPreviewResponse, error)
	Apply(ctx context.Context, req *dto.CalendarBatchRequest, createdBy string) (*dto.BatchApplyResponse, error)
	Undo(ctx context.Context, batchID string) (*dto.BatchUndoResponse, error)
}

type calendarBatchService struct {
	repo   *repository.Repository
	locker Locker
	clock  clock.Clock
	cfg    config.BatchConfig
	logger *zap.Logger
}

// NewCalendarBatchService 创建 CalendarBatchService 实例
func NewCalendarBatchService(cfg config.BatchConfig, repo *repository.Repository, locker Locker, clk clock.Clock, logger *zap.Logger) CalendarBatchService {
	return &calendarBatchService{repo: repo, locker: locker, clock: clk, cfg: cfg, logger: logger}
}

// batchPlan 校验后的批量目标
type batchPlan struct {
	siteIDs []int
	years   []int
	byYear  map[int][]time.Time
	total   int
}

// ────────────────────── Preview ──────────────────────

func (s *calendarBatchService) Preview(ctx context.Context, req *dto.CalendarBatchRequest) (*dto.BatchPreviewResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := &dto.BatchPreviewResponse{Items: make([]dto.BatchPreviewItem, 0, plan.total*len(plan.siteIDs))}
	for _, year := range plan.years {
		for _, siteID := range plan.siteIDs {
			existing, err := s.existingDates(ctx, siteID, year)
			if err != nil {
				return nil, err
			}
			for _, d := range plan.byYear[year] {
				ymd := datenorm.YMD(d)
				action := dto.ActionCreate
				if existing[ymd] {
					action = dto.ActionOccupied
					resp.AlreadyOccupied++
				} else {
					resp.ToCreate++
				}
				resp.Items = append(resp.Items, dto.BatchPreviewItem{SiteID: siteID, Date: ymd, Action: action})
			}
		}
	}
	resp.TotalDates = len(resp.Items)

	sort.SliceStable(resp.Items, func(i, j int) bool {
		if resp.Items[i].SiteID != resp.Items[j].SiteID {
			return resp.Items[i].SiteID < resp.Items[j].SiteID
		}
		return resp.Items[i].Date < resp.Items[j].Date
	})
	return resp, nil
}

// ────────────────────── Apply ──────────────────────

func (s *calendarBatchService) Apply(ctx context.Context, req *dto.CalendarBatchRequest, createdBy string) (*dto.BatchApplyResponse, error) {
	plan, err := s.plan(ctx, req)
	if err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	resp := &dto.BatchApplyResponse{BatchID: batchID}

	for _, year := range plan.years {
		for _, siteID := range plan.siteIDs {
			created, err := s.applyGroup(ctx, siteID, year, plan.byYear[year], batchID, req.Description, createdBy)
			if err != nil {
				return nil, err
			}
			resp.Created += created
			resp.Skipped += len(plan.byYear[year]) - created
		}
	}

	s.logger.Info("批量日历已执行",
		zap.String("batch_id", batchID),
		zap.Ints("site_ids", plan.siteIDs),
		zap.Int("created", resp.Created),
		zap.Int("skipped", resp.Skipped),
		zap.String("created_by", createdBy),
	)
	return resp, nil
}

// applyGroup 在 (站点, 年) 锁内补齐缺失日期，返回实际插入条数
func (s *calendarBatchService) applyGroup(ctx context.Context, siteID, year int, dates []time.Time, batchID, description, createdBy string) (int, error) {
	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("calendar-batch:%d:%d", siteID, year))
	if err != nil {
		if errors.Is(err, ErrBatchBusy) {
			s.logger.Warn("批量日历锁等待超时", zap.Int("site_id", siteID), zap.Int("year", year))
		}
		return 0, err
	}
	defer unlock()

	sy, err := loadSiteYear(ctx, s.repo, siteID, year)
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return 0, err
	}

	now := s.clock.Now().UTC()
	missing := make([]model.CalendarDay, 0, len(dates))
	for _, d := range dates {
		if sy.occupied[datenorm.YMD(d)] {
			continue
		}
		id := batchID
		missing = append(missing, model.CalendarDay{
			Day:         d,
			Type:        model.DayTypeRest,
			Description: description,
			Source:      s.cfg.Source,
			BatchID:     &id,
			CreatedBy:   createdBy,
			CreatedAt:   now,
		})
	}
	if len(missing) == 0 {
		return 0, nil
	}

	origin := batchID
	cal, err := sy.ensureTarget(ctx, s.repo, siteID, year, &origin)
	if err != nil {
		s.logger.Error("创建站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return 0, err
	}
	for i := range missing {
		missing[i].CalendarID = cal.CalendarID
	}

	inserted, err := s.repo.Calendar.InsertDays(ctx, missing)
	if err != nil {
		s.logger.Error("写入日历特殊日失败", zap.Int64("calendar_id", cal.CalendarID), zap.Error(err))
		return 0, err
	}
	return int(inserted), nil
}

// ────────────────────── Undo ──────────────────────

func (s *calendarBatchService) Undo(ctx context.Context, batchID string) (*dto.BatchUndoResponse, error) {
	if _, err := uuid.Parse(batchID); err != nil {
		return nil, ErrBatchInvalidID
	}

	touched, removed, err := s.repo.Calendar.DeleteBatch(ctx, s.cfg.Source, batchID)
	if err != nil {
		s.logger.Error("撤销批量日历失败", zap.String("batch_id", batchID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("批量日历已撤销",
		zap.String("batch_id", batchID),
		zap.Int64("calendars", touched),
		zap.Int64("calendars_removed", removed),
	)
	return &dto.BatchUndoResponse{BatchID: batchID, CalendarsModified: touched, CalendarsRemoved: removed}, nil
}

// ── 内部方法 ──

// plan 校验请求并计算目标日期
func (s *calendarBatchService) plan(ctx context.Context, req *dto.CalendarBatchRequest) (*batchPlan, error) {
	start, err := datenorm.AnchorYMD(req.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchInvalidRange, err)
	}
	end, err := datenorm.AnchorYMD(req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchInvalidRange, err)
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start 晚于 end", ErrBatchInvalidRange)
	}
	span := int(end.Sub(start).Hours()/24) + 1
	if s.cfg.MaxSpanDays > 0 && span > s.cfg.MaxSpanDays {
		return nil, fmt.Errorf("%w: %d 天 > %d 天", ErrBatchWindowTooLarge, span, s.cfg.MaxSpanDays)
	}

	weekday := 0
	if req.Weekday != nil {
		weekday = *req.Weekday
	}
	dates, err := datenorm.WeekdayDates(weekday, req.Start, req.End)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchInvalidRange, err)
	}

	siteIDs := model.IntArray(req.SiteIDs).Normalized()
	if len(siteIDs) == 0 {
		return nil, fmt.Errorf("site_ids 不能为空: %w", pkgerrors.ErrBadRequest)
	}
	sites, err := s.repo.Site.ListByIDs(ctx, siteIDs)
	if err != nil {
		s.logger.Error("查询站点失败", zap.Ints("site_ids", siteIDs), zap.Error(err))
		return nil, err
	}
	if len(sites) != len(siteIDs) {
		return nil, ErrSiteNotFound
	}

	years, byYear := datenorm.GroupByYear(dates)
	return &batchPlan{siteIDs: siteIDs, years: years, byYear: byYear, total: len(dates)}, nil
}

// existingDates (站点, 年) 所有覆盖日历中已占用的日期，日历不存在时为空
func (s *calendarBatchService) existingDates(ctx context.Context, siteID, year int) (map[string]bool, error) {
	sy, err := loadSiteYear(ctx, s.repo, siteID, year)
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	return sy.occupied, nil
}

// siteYear 覆盖某 (站点, 年) 的日历集合
type siteYear struct {
	// target 新特殊日写入的日历：calendar_id 最小者，与合并时的优先级一致
	target   *model.Calendar
	occupied map[string]bool
}

// loadSiteYear 汇总 siteID 所在的全部 year 日历（含多站点共享日历）
func loadSiteYear(ctx context.Context, repo *repository.Repository, siteID, year int) (*siteYear, error) {
	cals, err := repo.Calendar.ListBySiteAndYears(ctx, siteID, []int{year})
	if err != nil {
		return nil, err
	}
	sy := &siteYear{occupied: make(map[string]bool)}
	for i := range cals {
		if sy.target == nil {
			sy.target = &cals[i]
		}
		for _, d := range cals[i].Days {
			sy.occupied[datenorm.YMD(datenorm.AnchorDate(d.Day))] = true
		}
	}
	return sy, nil
}

// ensureTarget 没有覆盖日历时为该站点新建一个；origin 非空时记录创建它的批次
func (sy *siteYear) ensureTarget(ctx context.Context, repo *repository.Repository, siteID, year int, origin *string) (*model.Calendar, error) {
	if sy.target != nil {
		return sy.target, nil
	}
	cal := &model.Calendar{Year: year, SiteIDs: model.IntArray{siteID}, CreatedByBatch: origin}
	if err := repo.Calendar.Create(ctx, cal); err != nil {
		return nil, err
	}
	sy.target = cal
	return cal, nil
}
