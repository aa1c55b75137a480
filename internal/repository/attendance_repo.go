package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// AttendanceRepository 打卡记录数据访问接口（只读）
type AttendanceRepository interface {
	// ListForWorker 返回键匹配、且 day 落在 [fromDay, toDay] 或任一打卡落在
	// [fromInstant, toInstant] 的记录，打卡按时间升序预加载
	ListForWorker(ctx context.Context, keys []string, fromDay, toDay string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error)
	// ListForDay 返回 day 当天、或有打卡落在 [fromInstant, toInstant] 的全部记录
	ListForDay(ctx context.Context, day string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error)
}

type attendanceRepo struct {
	db *gorm.DB
}

func NewAttendanceRepo(db *gorm.DB) AttendanceRepository {
	return &attendanceRepo{db: db}
}

func (r *attendanceRepo) ListForWorker(ctx context.Context, keys []string, fromDay, toDay string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	if len(keys) == 0 {
		return records, nil
	}

	punchesInWindow := r.db.
		Model(&model.Punch{}).
		Select("record_id").
		Where("punched_at BETWEEN ? AND ?", fromInstant, toInstant)

	err := r.db.WithContext(ctx).
		Preload("Punches", func(db *gorm.DB) *gorm.DB {
			return db.Order("punched_at ASC")
		}).
		Where("worker_key IN ?", keys).
		Where(r.db.Where("day BETWEEN ? AND ?", fromDay, toDay).
			Or("record_id IN (?)", punchesInWindow)).
		Order("day ASC, record_id ASC").
		Find(&records).Error
	return records, err
}

func (r *attendanceRepo) ListForDay(ctx context.Context, day string, fromInstant, toInstant time.Time) ([]model.AttendanceRecord, error) {
	var records []model.AttendanceRecord
	punchesInWindow := r.db.
		Model(&model.Punch{}).
		Select("record_id").
		Where("punched_at BETWEEN ? AND ?", fromInstant, toInstant)

	err := r.db.WithContext(ctx).
		Preload("Punches", func(db *gorm.DB) *gorm.DB {
			return db.Order("punched_at ASC")
		}).
		Where(r.db.Where("day = ?", day).Or("record_id IN (?)", punchesInWindow)).
		Order("record_id ASC").
		Find(&records).Error
	return records, err
}
