package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// SourceICSImport ICS 导入写入的特殊日来源
const SourceICSImport = "ics-import"

var (
	ErrInvalidYear    = fmt.Errorf("年份无效: %w", pkgerrors.ErrBadRequest)
	ErrICSParse       = fmt.Errorf("ICS 文件无效: %w", pkgerrors.ErrBadRequest)
	ErrICSEmptyImport = fmt.Errorf("ICS 文件中没有该年份的日期: %w", pkgerrors.ErrBadRequest)
)

// CalendarService 站点 / 员工日历读取与 ICS 导入
type CalendarService interface {
	GetSiteCalendar(ctx context.Context, siteID, year int) (*dto.SiteCalendarResponse, error)
	GetWorkerCalendar(ctx context.Context, workerID string, year int) (*dto.WorkerCalendarResponse, error)
	ImportSiteCalendarICS(ctx context.Context, siteID, year int, r io.Reader, createdBy string) (*dto.CalendarImportResponse, error)
}

type calendarService struct {
	repo   *repository.Repository
	norm   *datenorm.Normalizer
	locker Locker
	logger *zap.Logger
}

// NewCalendarService 创建 CalendarService 实例
func NewCalendarService(repo *repository.Repository, norm *datenorm.Normalizer, locker Locker, logger *zap.Logger) CalendarService {
	return &calendarService{repo: repo, norm: norm, locker: locker, logger: logger}
}

func validYear(year int) bool {
	return year >= 2000 && year <= 2100
}

// ────────────────────── GetSiteCalendar ──────────────────────

// GetSiteCalendar 合并该站点该年所有共享日历的特殊日，同一天取 calendar_id 最小的
func (s *calendarService) GetSiteCalendar(ctx context.Context, siteID, year int) (*dto.SiteCalendarResponse, error) {
	if !validYear(year) {
		return nil, ErrInvalidYear
	}
	if _, err := s.repo.Site.GetByID(ctx, siteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	days, err := s.siteDays(ctx, siteID, year)
	if err != nil {
		return nil, err
	}

	resp := &dto.SiteCalendarResponse{SiteID: siteID, Year: year, Days: make([]dto.CalendarDayResponse, 0, len(days))}
	for _, d := range days {
		resp.Days = append(resp.Days, dto.CalendarDayResponse{
			Date:         datenorm.YMD(datenorm.AnchorDate(d.Day)),
			Type:         d.Type,
			HalfDayStart: d.HalfDayStart,
			HalfDayEnd:   d.HalfDayEnd,
			Description:  d.Description,
			Source:       d.Source,
			BatchID:      d.BatchID,
		})
	}
	return resp, nil
}

func (s *calendarService) siteDays(ctx context.Context, siteID, year int) ([]model.CalendarDay, error) {
	cals, err := s.repo.Calendar.ListBySiteAndYears(ctx, siteID, []int{year})
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	return mergeCalendarDays(cals), nil
}

// mergeCalendarDays 按日期升序合并，同一天保留先出现的日历的条目
func mergeCalendarDays(cals []model.Calendar) []model.CalendarDay {
	seen := make(map[string]bool)
	var out []model.CalendarDay
	for _, cal := range cals {
		for _, d := range cal.Days {
			key := datenorm.YMD(datenorm.AnchorDate(d.Day))
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, d)
		}
	}
	sortCalendarDays(out)
	return out
}

func sortCalendarDays(days []model.CalendarDay) {
	sort.SliceStable(days, func(i, j int) bool { return days[i].Day.Before(days[j].Day) })
}

// ────────────────────── GetWorkerCalendar ──────────────────────

func (s *calendarService) GetWorkerCalendar(ctx context.Context, workerID string, year int) (*dto.WorkerCalendarResponse, error) {
	if !validYear(year) {
		return nil, ErrInvalidYear
	}
	if _, err := s.repo.Worker.GetByID(ctx, workerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkerNotFound
		}
		s.logger.Error("查询员工失败", zap.String("worker_id", workerID), zap.Error(err))
		return nil, err
	}

	cals, err := s.repo.WorkerCalendar.ListByWorkerAndYears(ctx, workerID, []int{year})
	if err != nil {
		s.logger.Error("查询员工日历失败", zap.String("worker_id", workerID), zap.Int("year", year), zap.Error(err))
		return nil, err
	}

	resp := &dto.WorkerCalendarResponse{WorkerID: workerID, Year: year, Days: []dto.WorkerCalendarDayResponse{}}
	for _, cal := range cals {
		for _, d := range cal.Days {
			resp.Days = append(resp.Days, dto.WorkerCalendarDayResponse{
				Date:        datenorm.YMD(datenorm.AnchorDate(d.Day)),
				Type:        d.Type,
				StartTime:   d.StartTime,
				EndTime:     d.EndTime,
				Description: d.Description,
			})
		}
	}
	return resp, nil
}

// ────────────────────── ImportSiteCalendarICS ──────────────────────

// ImportSiteCalendarICS 把 ICS 中的事件日期写为站点节假日，已有特殊日的日期跳过
func (s *calendarService) ImportSiteCalendarICS(ctx context.Context, siteID, year int, r io.Reader, createdBy string) (*dto.CalendarImportResponse, error) {
	if !validYear(year) {
		return nil, ErrInvalidYear
	}
	if _, err := s.repo.Site.GetByID(ctx, siteID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	parsed, err := ParseCalendarICS(r, year, s.norm.Location())
	if err != nil {
		s.logger.Warn("ICS 解析失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, ErrICSParse
	}
	if len(parsed) == 0 {
		return nil, ErrICSEmptyImport
	}

	unlock, err := s.locker.Lock(ctx, fmt.Sprintf("calendar-batch:%d:%d", siteID, year))
	if err != nil {
		return nil, err
	}
	defer unlock()

	sy, err := loadSiteYear(ctx, s.repo, siteID, year)
	if err != nil {
		s.logger.Error("查询站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return nil, err
	}

	days := make([]model.CalendarDay, 0, len(parsed))
	for _, p := range parsed {
		if sy.occupied[datenorm.YMD(p.Day)] {
			continue
		}
		days = append(days, model.CalendarDay{
			Day:         p.Day,
			Type:        model.DayTypeHoliday,
			Description: p.Description,
			Source:      SourceICSImport,
			CreatedBy:   createdBy,
		})
	}
	if len(days) == 0 {
		return &dto.CalendarImportResponse{SiteID: siteID, Year: year, Skipped: len(parsed)}, nil
	}

	cal, err := sy.ensureTarget(ctx, s.repo, siteID, year, nil)
	if err != nil {
		s.logger.Error("创建站点日历失败", zap.Int("site_id", siteID), zap.Int("year", year), zap.Error(err))
		return nil, err
	}
	for i := range days {
		days[i].CalendarID = cal.CalendarID
	}

	inserted, err := s.repo.Calendar.InsertDays(ctx, days)
	if err != nil {
		s.logger.Error("写入 ICS 日期失败", zap.Int64("calendar_id", cal.CalendarID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("ICS 导入完成",
		zap.Int("site_id", siteID),
		zap.Int("year", year),
		zap.Int64("created", inserted),
		zap.String("created_by", createdBy),
	)
	return &dto.CalendarImportResponse{
		SiteID:  siteID,
		Year:    year,
		Created: int(inserted),
		Skipped: len(parsed) - int(inserted),
	}, nil
}
