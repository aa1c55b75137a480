package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/config"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
)

// MaintenanceService 后台维护任务
type MaintenanceService interface {
	// PurgeExpiredSites 删除待删除状态超过宽限期的站点
	PurgeExpiredSites(ctx context.Context) (*dto.MaintenanceResult, error)
	// Run 按配置的间隔周期执行，ctx 取消后返回
	Run(ctx context.Context)
}

type maintenanceService struct {
	repo   *repository.Repository
	cfg    config.MaintenanceConfig
	clock  clock.Clock
	logger *zap.Logger
}

// NewMaintenanceService 创建 MaintenanceService 实例
func NewMaintenanceService(cfg config.MaintenanceConfig, repo *repository.Repository, clk clock.Clock, logger *zap.Logger) MaintenanceService {
	return &maintenanceService{repo: repo, cfg: cfg, clock: clk, logger: logger}
}

func (s *maintenanceService) PurgeExpiredSites(ctx context.Context) (*dto.MaintenanceResult, error) {
	grace := s.cfg.SitePurgeGraceDays
	if grace <= 0 {
		grace = 15
	}
	cutoff := s.clock.Now().UTC().AddDate(0, 0, -grace)

	sites, err := s.repo.Site.ListPendingDeletion(ctx, cutoff)
	if err != nil {
		s.logger.Error("查询待删除站点失败", zap.Error(err))
		return nil, err
	}

	result := &dto.MaintenanceResult{PurgedSiteIDs: []int{}}
	if len(sites) == 0 {
		s.logger.Debug("没有待删除的站点")
		return result, nil
	}

	for _, site := range sites {
		if err := s.repo.Site.Delete(ctx, site.SiteID); err != nil {
			s.logger.Error("删除站点失败", zap.Int("site_id", site.SiteID), zap.Error(err))
			return result, err
		}
		s.logger.Info("站点已删除", zap.Int("site_id", site.SiteID), zap.String("name", site.Name))
		result.PurgedSiteIDs = append(result.PurgedSiteIDs, site.SiteID)
	}
	return result, nil
}

func (s *maintenanceService) Run(ctx context.Context) {
	interval := s.cfg.SitePurgeInterval
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.PurgeExpiredSites(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("站点清理任务失败", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
