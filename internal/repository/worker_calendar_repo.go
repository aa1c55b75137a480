package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// WorkerCalendarRepository 员工日历数据访问接口（只读）
type WorkerCalendarRepository interface {
	ListByWorkerAndYears(ctx context.Context, workerID string, years []int) ([]model.WorkerCalendar, error)
}

type workerCalendarRepo struct {
	db *gorm.DB
}

func NewWorkerCalendarRepo(db *gorm.DB) WorkerCalendarRepository {
	return &workerCalendarRepo{db: db}
}

func (r *workerCalendarRepo) ListByWorkerAndYears(ctx context.Context, workerID string, years []int) ([]model.WorkerCalendar, error) {
	var cals []model.WorkerCalendar
	if len(years) == 0 {
		return cals, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB {
			return db.Order("day ASC")
		}).
		Where("worker_id = ? AND year IN ?", workerID, years).
		Order("year ASC").
		Find(&cals).Error
	return cals, err
}
