package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ikarosad-Shiro/AluAsistencias-Backend/internal/model"
)

// SiteRepository 站点及排班例外数据访问接口
type SiteRepository interface {
	GetByID(ctx context.Context, siteID int) (*model.Site, error)
	ListByIDs(ctx context.Context, siteIDs []int) ([]model.Site, error)
	UpdateBaseSchedule(ctx context.Context, siteID int, schedule *model.BaseSchedule) error
	ListPendingDeletion(ctx context.Context, startedBefore time.Time) ([]model.Site, error)
	Delete(ctx context.Context, siteID int) error

	GetDayException(ctx context.Context, siteID int, day string) (*model.SiteDayException, error)
	UpsertDayException(ctx context.Context, exc *model.SiteDayException) error
	ListRangeExceptionsCovering(ctx context.Context, siteID int, day string) ([]model.SiteRangeException, error)
	CreateRangeException(ctx context.Context, exc *model.SiteRangeException) error
}

type siteRepo struct {
	db *gorm.DB
}

func NewSiteRepo(db *gorm.DB) SiteRepository {
	return &siteRepo{db: db}
}

func (r *siteRepo) GetByID(ctx context.Context, siteID int) (*model.Site, error) {
	var site model.Site
	err := r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		First(&site).Error
	if err != nil {
		return nil, err
	}
	return &site, nil
}

func (r *siteRepo) ListByIDs(ctx context.Context, siteIDs []int) ([]model.Site, error) {
	var sites []model.Site
	if len(siteIDs) == 0 {
		return sites, nil
	}
	err := r.db.WithContext(ctx).
		Where("site_id IN ?", siteIDs).
		Order("site_id ASC").
		Find(&sites).Error
	return sites, err
}

func (r *siteRepo) UpdateBaseSchedule(ctx context.Context, siteID int, schedule *model.BaseSchedule) error {
	result := r.db.WithContext(ctx).
		Model(&model.Site{}).
		Where("site_id = ?", siteID).
		Updates(map[string]interface{}{
			"base_schedule": schedule,
			"updated_at":    time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *siteRepo) ListPendingDeletion(ctx context.Context, startedBefore time.Time) ([]model.Site, error) {
	var sites []model.Site
	err := r.db.WithContext(ctx).
		Where("status = ? AND deletion_started_at <= ?", model.SiteStatusPendingDeletion, startedBefore).
		Order("site_id ASC").
		Find(&sites).Error
	return sites, err
}

func (r *siteRepo) Delete(ctx context.Context, siteID int) error {
	return r.db.WithContext(ctx).
		Where("site_id = ?", siteID).
		Delete(&model.Site{}).Error
}

// ── 例外 ──

func (r *siteRepo) GetDayException(ctx context.Context, siteID int, day string) (*model.SiteDayException, error) {
	var exc model.SiteDayException
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND day = ?", siteID, day).
		First(&exc).Error
	if err != nil {
		return nil, err
	}
	return &exc, nil
}

// UpsertDayException 同一站点同一天只保留一条例外
func (r *siteRepo) UpsertDayException(ctx context.Context, exc *model.SiteDayException) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "site_id"}, {Name: "day"}},
			DoUpdates: clause.AssignmentColumns([]string{"type", "start_time", "end_time", "description", "updated_at"}),
		}).
		Create(exc).Error
}

// ListRangeExceptionsCovering 返回覆盖 day 的区间例外，按存储顺序
func (r *siteRepo) ListRangeExceptionsCovering(ctx context.Context, siteID int, day string) ([]model.SiteRangeException, error) {
	var ranges []model.SiteRangeException
	err := r.db.WithContext(ctx).
		Where("site_id = ? AND start_day <= ? AND end_day >= ?", siteID, day, day).
		Order("range_exception_id ASC").
		Find(&ranges).Error
	return ranges, err
}

func (r *siteRepo) CreateRangeException(ctx context.Context, exc *model.SiteRangeException) error {
	return r.db.WithContext(ctx).Create(exc).Error
}
