package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// CalendarRepository 站点日历数据访问接口
type CalendarRepository interface {
	// ListBySiteAndYears 返回包含 siteID 的日历（含特殊日），按 calendar_id 升序
	ListBySiteAndYears(ctx context.Context, siteID int, years []int) ([]model.Calendar, error)
	Create(ctx context.Context, cal *model.Calendar) error
	// InsertDays 批量插入特殊日，(calendar_id, day) 冲突的行跳过；返回实际插入行数
	InsertDays(ctx context.Context, days []model.CalendarDay) (int64, error)
	// DeleteBatch 删除某批次写入的全部特殊日，并删除该批次新建且已变空的日历；
	// 返回受影响的日历数与其中被删除的日历数
	DeleteBatch(ctx context.Context, source, batchID string) (touched, removed int64, err error)
}

type calendarRepo struct {
	db *gorm.DB
}

func NewCalendarRepo(db *gorm.DB) CalendarRepository {
	return &calendarRepo{db: db}
}

func (r *calendarRepo) ListBySiteAndYears(ctx context.Context, siteID int, years []int) ([]model.Calendar, error) {
	var cals []model.Calendar
	if len(years) == 0 {
		return cals, nil
	}
	err := r.db.WithContext(ctx).
		Preload("Days", func(db *gorm.DB) *gorm.DB {
			return db.Order("day ASC")
		}).
		Where("? = ANY(site_ids) AND year IN ?", siteID, years).
		Order("calendar_id ASC").
		Find(&cals).Error
	return cals, err
}

func (r *calendarRepo) Create(ctx context.Context, cal *model.Calendar) error {
	return r.db.WithContext(ctx).Omit("Days").Create(cal).Error
}

func (r *calendarRepo) InsertDays(ctx context.Context, days []model.CalendarDay) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "calendar_id"}, {Name: "day"}},
			DoNothing: true,
		}).
		Create(&days)
	return result.RowsAffected, result.Error
}

func (r *calendarRepo) DeleteBatch(ctx context.Context, source, batchID string) (touched, removed int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var calendarIDs []int64
		if err := tx.Model(&model.CalendarDay{}).
			Distinct("calendar_id").
			Where("source = ? AND batch_id = ?", source, batchID).
			Pluck("calendar_id", &calendarIDs).Error; err != nil {
			return err
		}
		if len(calendarIDs) == 0 {
			return nil
		}
		if err := tx.Where("source = ? AND batch_id = ?", source, batchID).
			Delete(&model.CalendarDay{}).Error; err != nil {
			return err
		}
		result := tx.
			Where("calendar_id IN ? AND created_by_batch = ?", calendarIDs, batchID).
			Where("NOT EXISTS (SELECT 1 FROM calendar_days d WHERE d.calendar_id = calendars.calendar_id)").
			Delete(&model.Calendar{})
		if result.Error != nil {
			return result.Error
		}
		if err := tx.Model(&model.Calendar{}).
			Where("calendar_id IN ?", calendarIDs).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		touched = int64(len(calendarIDs))
		removed = result.RowsAffected
		return nil
	})
	return touched, removed, err
}
