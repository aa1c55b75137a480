package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/dto"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/repository"
	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/clock"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// ── 员工站点归属业务错误 ──

var (
	ErrWorkerInactive  = fmt.Errorf("员工已停用: %w", pkgerrors.ErrConflict)
	ErrSiteNotActive   = fmt.Errorf("站点处于待删除状态: %w", pkgerrors.ErrConflict)
	ErrVersionMismatch = pkgerrors.ErrOptimisticLock
)

// WorkerService 员工站点归属业务接口
// 站点履历的关闭与新建与员工更新在同一事务内完成，
// 任何时刻在职员工恰好有一条未关闭的履历且指向主站点
type WorkerService interface {
	ChangePrincipalSite(ctx context.Context, workerID string, req *dto.ChangePrincipalSiteRequest) (*dto.WorkerResponse, error)
	Deactivate(ctx context.Context, workerID string, req *dto.DeactivateWorkerRequest) (*dto.WorkerResponse, error)
}

type workerService struct {
	repo   *repository.Repository
	clock  clock.Clock
	logger *zap.Logger
}

// NewWorkerService 创建 WorkerService 实例
func NewWorkerService(repo *repository.Repository, clk clock.Clock, logger *zap.Logger) WorkerService {
	return &workerService{repo: repo, clock: clk, logger: logger}
}

// ────────────────────── ChangePrincipalSite ──────────────────────

func (s *workerService) ChangePrincipalSite(ctx context.Context, workerID string, req *dto.ChangePrincipalSiteRequest) (*dto.WorkerResponse, error) {
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker.Status != model.WorkerStatusActive {
		return nil, ErrWorkerInactive
	}
	if worker.Version != req.Version {
		return nil, ErrVersionMismatch
	}
	if worker.PrincipalSiteID != nil && *worker.PrincipalSiteID == req.SiteID {
		return toWorkerResponse(worker), nil
	}

	site, err := s.repo.Site.GetByID(ctx, req.SiteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSiteNotFound
		}
		s.logger.Error("查询站点失败", zap.Int("site_id", req.SiteID), zap.Error(err))
		return nil, err
	}
	if site.Status != model.SiteStatusActive {
		return nil, ErrSiteNotActive
	}

	now := s.clock.Now().UTC()
	siteID := site.SiteID
	worker.PrincipalSiteID = &siteID
	worker.ForeignSiteIDs = worker.ForeignSiteIDs.Normalized(siteID)

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		if err := s.closeOpenHistory(ctx, txRepo, workerID, now); err != nil {
			return err
		}
		if err := txRepo.Worker.CreateHistory(ctx, &model.WorkerSiteHistory{
			WorkerID:  workerID,
			SiteID:    site.SiteID,
			SiteName:  site.Name,
			StartedAt: now,
		}); err != nil {
			s.logger.Error("新建站点履历失败", zap.String("worker_id", workerID), zap.Error(err))
			return err
		}
		if err := txRepo.Worker.Update(ctx, worker); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新员工失败", zap.String("worker_id", workerID), zap.Error(err))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("员工主站点已变更", zap.String("worker_id", workerID), zap.Int("site_id", siteID))
	return toWorkerResponse(worker), nil
}

// ────────────────────── Deactivate ──────────────────────

// Deactivate 停用员工：清空站点归属并关闭未结束的履历
func (s *workerService) Deactivate(ctx context.Context, workerID string, req *dto.DeactivateWorkerRequest) (*dto.WorkerResponse, error) {
	worker, err := s.getWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if worker.Version != req.Version {
		return nil, ErrVersionMismatch
	}
	if worker.Status == model.WorkerStatusInactive {
		return toWorkerResponse(worker), nil
	}

	now := s.clock.Now().UTC()
	worker.Status = model.WorkerStatusInactive
	worker.PrincipalSiteID = nil
	worker.ForeignSiteIDs = model.IntArray{}

	err = s.inTx(ctx, func(txRepo *repository.Repository) error {
		if err := s.closeOpenHistory(ctx, txRepo, workerID, now); err != nil {
			return err
		}
		if err := txRepo.Worker.Update(ctx, worker); err != nil {
			if !errors.Is(err, pkgerrors.ErrOptimisticLock) {
				s.logger.Error("更新员工失败", zap.String("worker_id", workerID), zap.Error(err))
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("员工已停用", zap.String("worker_id", workerID))
	return toWorkerResponse(worker), nil
}

// ── 内部方法 ──

func (s *workerService) getWorker(ctx context.Context, workerID string) (*model.Worker, error) {
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

// closeOpenHistory 关闭当前未结束的履历；没有未结束履历时什么也不做
func (s *workerService) closeOpenHistory(ctx context.Context, txRepo *repository.Repository, workerID string, at time.Time) error {
	open, err := txRepo.Worker.GetOpenHistory(ctx, workerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		s.logger.Error("查询站点履历失败", zap.String("worker_id", workerID), zap.Error(err))
		return err
	}
	if err := txRepo.Worker.CloseHistory(ctx, open.HistoryID, at); err != nil {
		s.logger.Error("关闭站点履历失败", zap.String("worker_id", workerID), zap.Int64("history_id", open.HistoryID), zap.Error(err))
		return err
	}
	return nil
}

// inTx 在事务中执行 fn；mock 仓储下 tx 为 nil，直接在原仓储上执行
func (s *workerService) inTx(ctx context.Context, fn func(txRepo *repository.Repository) error) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		s.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	if err := fn(s.repo.WithTx(tx)); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			s.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}

func toWorkerResponse(w *model.Worker) *dto.WorkerResponse {
	foreign := []int(w.ForeignSiteIDs)
	if foreign == nil {
		foreign = []int{}
	}
	return &dto.WorkerResponse{
		WorkerID:        w.WorkerID,
		CheckerID:       w.CheckerID,
		Name:            w.Name,
		PrincipalSiteID: w.PrincipalSiteID,
		ForeignSiteIDs:  foreign,
		Status:          w.Status,
		Version:         w.Version,
	}
}
