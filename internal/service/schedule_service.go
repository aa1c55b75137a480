package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/datenorm"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ── 排班模块业务错误 ──

var (
	ErrSiteNotFound         = fmt.Errorf("站点不存在: %w", pkgerrors.ErrNotFound)
	ErrBaseScheduleNotFound = fmt.Errorf("站点尚未设置基础排班: %w", pkgerrors.ErrNotFound)
)

// ScheduleService 站点排班业务接口
type ScheduleService interface {
	Resolve(ctx context.Context, siteID int, date string) (*dto.ResolvedSchedule, error)
	GetBaseSchedule(ctx context.Context, siteID int) (*dto.BaseScheduleResponse, error)
	SetBaseSchedule(ctx context.Context, siteID int, req *dto.SetBaseScheduleRequest) (*dto.BaseScheduleResponse, error)
	PutDayException(ctx context.Context, siteID int, req *dto.PutDayExceptionRequest) (*dto.DayExceptionResponse, error)
	AddRangeException(ctx context.Context, siteID int, req *dto.AddRangeExceptionRequest) (*dto.RangeExceptionResponse, error)
}

type scheduleService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewScheduleService 创建 ScheduleService 实例
func NewScheduleService(repo *repository.Repository, logger *zap.Logger) ScheduleService {
	return &scheduleService{repo: repo, logger: logger}
}

// ────────────────────── Resolve ──────────────────────

func (s *scheduleService) Resolve(ctx context.Context, siteID int, date string) (*dto.ResolvedSchedule, error) {
	anchored, err := datenorm.AnchorYMD(date)
	if err != nil {
		return nil, fmt.Errorf("date 无效 %q: %w", date, pkgerrors.ErrBadRequest)
	}
	ymd := datenorm.YMD(anchored)

	site, err := s.getSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	dayExc, err := s.repo.Site.GetDayException(ctx, siteID, ymd)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询单日例外失败", zap.Int("site_id", siteID), zap.String("date", ymd), zap.Error(err))
			return nil, err
		}
		dayExc = nil
	}
	if dayExc != nil && dayExc.Type == model.DayTypeAttendanceOverride &&
		model.ClassifyMark(dayExc.Type, dayExc.StartTime, dayExc.EndTime).Kind != model.MarkManual {
		s.logger.Warn("attendance-override 缺少时间，忽略该例外",
			zap.Int("site_id", siteID), zap.String("date", ymd))
	}

	ranges, err := s.repo.Site.ListRangeExceptionsCovering(ctx, siteID, ymd)
	if err != nil {
		s.logger.Error("查询区间例外失败", zap.Int("site_id", siteID), zap.String("date", ymd), zap.Error(err))
		return nil, err
	}

	out := resolveSchedule(&scheduleInput{
		date:         ymd,
		weekday:      int(anchored.Weekday()),
		dayException: dayExc,
		ranges:       ranges,
		base:         site.BaseSchedule,
	})
	out.SiteID = siteID
	out.Date = ymd
	if site.BaseSchedule != nil {
		out.NewHire = toNewHireBlock(site.BaseSchedule.NewHire)
	}
	return out, nil
}

// ────────────────────── BaseSchedule ──────────────────────

func (s *scheduleService) GetBaseSchedule(ctx context.Context, siteID int) (*dto.BaseScheduleResponse, error) {
	site, err := s.getSite(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if site.BaseSchedule == nil {
		return nil, ErrBaseScheduleNotFound
	}
	return toBaseScheduleResponse(siteID, site.BaseSchedule), nil
}

func (s *scheduleService) SetBaseSchedule(ctx context.Context, siteID int, req *dto.SetBaseScheduleRequest) (*dto.BaseScheduleResponse, error) {
	site, err := s.getSite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	schedule, err := ValidateBaseSchedule(req, site.BaseSchedule)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Site.UpdateBaseSchedule(ctx, siteID, schedule); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("保存基础排班失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("基础排班已更新", zap.Int("site_id", siteID), zap.Int("version", schedule.Version))
	return toBaseScheduleResponse(siteID, schedule), nil
}

// ────────────────────── Exceptions ──────────────────────

func (s *scheduleService) PutDayException(ctx context.Context, siteID int, req *dto.PutDayExceptionRequest) (*dto.DayExceptionResponse, error) {
	day, err := validateDayException(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.getSite(ctx, siteID); err != nil {
		return nil, err
	}

	exc := &model.SiteDayException{
		SiteID:      siteID,
		Day:         day,
		Type:        req.Type,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Description: req.Description,
	}
	if err := s.repo.Site.UpsertDayException(ctx, exc); err != nil {
		s.logger.Error("保存单日例外失败", zap.Int("site_id", siteID), zap.String("date", day), zap.Error(err))
		return nil, err
	}

	return &dto.DayExceptionResponse{
		SiteID:      siteID,
		Date:        day,
		Type:        exc.Type,
		StartTime:   exc.StartTime,
		EndTime:     exc.EndTime,
		Description: exc.Description,
	}, nil
}

func (s *scheduleService) AddRangeException(ctx context.Context, siteID int, req *dto.AddRangeExceptionRequest) (*dto.RangeExceptionResponse, error) {
	start, end, weekdays, shifts, err := validateRangeException(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.getSite(ctx, siteID); err != nil {
		return nil, err
	}

	exc := &model.SiteRangeException{
		SiteID:      siteID,
		StartDay:    start,
		EndDay:      end,
		Weekdays:    weekdays,
		Shifts:      shifts,
		Description: req.Description,
	}
	if err := s.repo.Site.CreateRangeException(ctx, exc); err != nil {
		s.logger.Error("保存区间例外失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}

	return &dto.RangeExceptionResponse{
		ID:          exc.RangeExceptionID,
		SiteID:      siteID,
		Start:       start,
		End:         end,
		Weekdays:    []int(weekdays),
		Shifts:      toShiftDTOs(shifts),
		Description: exc.Description,
	}, nil
}

// ── 内部方法 ──

func (s *scheduleService) getSite(ctx context.Context, siteID int) (*model.Site, error) {
	site, err := s.repo.Site.GetByID(ctx, siteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", siteID), zap.Error(err))
		return nil, err
	}
	return site, nil
}

func toNewHireBlock(nh *model.NewHireOverride) *dto.NewHireBlock {
	if nh == nil {
		return nil
	}
	return &dto.NewHireBlock{
		Active:             nh.Active,
		DurationDays:       nh.DurationDays,
		OnlyBaseActiveDays: nh.OnlyBaseActiveDays,
		Shifts:             toShiftDTOs(nh.Shifts),
	}
}

func toBaseScheduleResponse(siteID int, b *model.BaseSchedule) *dto.BaseScheduleResponse {
	rules := make([]dto.WeekdayRule, 0, len(b.Rules))
	for _, r := range b.Rules {
		rules = append(rules, dto.WeekdayRule{Weekday: r.Weekday, Shifts: toShiftDTOs(r.Shifts)})
	}
	return &dto.BaseScheduleResponse{
		SiteID:        siteID,
		EffectiveFrom: b.EffectiveFrom,
		Rules:         rules,
		NewHire:       toNewHireBlock(b.NewHire),
		Version:       b.Version,
	}
}
