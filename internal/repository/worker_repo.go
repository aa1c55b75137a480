package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
	pkgerrors "github.com/Ikarosad-Shiro/AluAsistencias-Backend/pkg/errors"
)

// WorkerRepository 员工及站点履历数据访问接口
type WorkerRepository interface {
	GetByID(ctx context.Context, workerID string) (*model.Worker, error)
	ListActiveByPrincipalSite(ctx context.Context, siteID int) ([]model.Worker, error)
	// ListByPunchKeys 按考勤编号或内部 ID 批量查找员工
	ListByPunchKeys(ctx context.Context, keys []string) ([]model.Worker, error)
	Update(ctx context.Context, worker *model.Worker) error

	GetOpenHistory(ctx context.Context, workerID string) (*model.WorkerSiteHistory, error)
	CloseHistory(ctx context.Context, historyID int64, endedAt time.Time) error
	CreateHistory(ctx context.Context, entry *model.WorkerSiteHistory) error
}

type workerRepo struct {
	db *gorm.DB
}

func NewWorkerRepo(db *gorm.DB) WorkerRepository {
	return &workerRepo{db: db}
}

func (r *workerRepo) GetByID(ctx context.Context, workerID string) (*model.Worker, error) {
	var worker model.Worker
	err := r.db.WithContext(ctx).
		Where("worker_id = ?", workerID).
		First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *workerRepo) ListActiveByPrincipalSite(ctx context.Context, siteID int) ([]model.Worker, error) {
	var workers []model.Worker
	err := r.db.WithContext(ctx).
		Where("principal_site_id = ? AND status = ?", siteID, model.WorkerStatusActive).
		Order("name ASC").
		Find(&workers).Error
	return workers, err
}

func (r *workerRepo) ListByPunchKeys(ctx context.Context, keys []string) ([]model.Worker, error) {
	var workers []model.Worker
	if len(keys) == 0 {
		return workers, nil
	}
	// worker_id 为 uuid，旧打卡键不一定是合法 uuid，按文本比较
	err := r.db.WithContext(ctx).
		Where("checker_id IN ? OR worker_id::text IN ?", keys, keys).
		Find(&workers).Error
	return workers, err
}

// Update 乐观锁更新站点归属与状态
func (r *workerRepo) Update(ctx context.Context, worker *model.Worker) error {
	oldVersion := worker.Version
	result := r.db.WithContext(ctx).
		Model(worker).
		Where("worker_id = ? AND version = ?", worker.WorkerID, oldVersion).
		Updates(map[string]interface{}{
			"principal_site_id": worker.PrincipalSiteID,
			"foreign_site_ids":  worker.ForeignSiteIDs,
			"status":            worker.Status,
			"version":           oldVersion + 1,
			"updated_at":        time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	worker.Version = oldVersion + 1
	return nil
}

// ── 站点履历 ──

func (r *workerRepo) GetOpenHistory(ctx context.Context, workerID string) (*model.WorkerSiteHistory, error) {
	var entry model.WorkerSiteHistory
	err := r.db.WithContext(ctx).
		Where("worker_id = ? AND ended_at IS NULL", workerID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *workerRepo) CloseHistory(ctx context.Context, historyID int64, endedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.WorkerSiteHistory{}).
		Where("history_id = ? AND ended_at IS NULL", historyID).
		Update("ended_at", endedAt).Error
}

func (r *workerRepo) CreateHistory(ctx context.Context, entry *model.WorkerSiteHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}
