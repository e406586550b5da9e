package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignStatsRepositoryImpl implements the CampaignStatsRepository interface
type CampaignStatsRepositoryImpl struct {
	*BaseRepository[models.CampaignStats, models.CampaignStatsFilter]
}

// NewCampaignStatsRepository creates a new analytics snapshot repository
func NewCampaignStatsRepository(db *gorm.DB) CampaignStatsRepository {
	return &CampaignStatsRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignStats, models.CampaignStatsFilter](db),
	}
}

// Upsert replaces the snapshot keyed on (campaign_id, site_id, date). Counters
// are whole-row replacements, never increments, so repeating an upsert with
// the same recount is a no-op.
func (r *CampaignStatsRepositoryImpl) Upsert(ctx context.Context, stats *models.CampaignStats) error {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				db.Commit()
			}
		}()
	}

	stats.Date = utils.DayStart(stats.Date)
	stats.UpdatedAt = utils.UTCNow()

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_id"}, {Name: "site_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_recipients", "emails_sent", "sms_sent",
			"emails_opened", "sms_opened", "submissions", "expired", "updated_at",
		}),
	}).Create(stats).Error
	if err != nil {
		return fmt.Errorf("failed to upsert campaign stats: %w", err)
	}
	return nil
}

// ByScope retrieves the snapshot for one (campaign, site, day)
func (r *CampaignStatsRepositoryImpl) ByScope(ctx context.Context, campaignID, siteID uint, day time.Time) (*models.CampaignStats, error) {
	db := r.getDB(ctx)

	var stats models.CampaignStats
	err := db.Where("campaign_id = ? AND site_id = ? AND date = ?", campaignID, siteID, utils.DayStart(day)).
		First(&stats).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find campaign stats: %w", err)
	}
	return &stats, nil
}

// ListRange retrieves snapshots for a date range, oldest first
func (r *CampaignStatsRepositoryImpl) ListRange(ctx context.Context, campaignID, siteID uint, from, to time.Time) ([]*models.CampaignStats, error) {
	db := r.getDB(ctx)

	var rows []*models.CampaignStats
	err := db.Where("campaign_id = ? AND site_id = ? AND date >= ? AND date <= ?",
		campaignID, siteID, utils.DayStart(from), utils.DayStart(to)).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list campaign stats range: %w", err)
	}
	return rows, nil
}

// ByFilter retrieves snapshots based on filter criteria
func (r *CampaignStatsRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignStatsFilter, orderBy string, limit, offset int) ([]*models.CampaignStats, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var rows []*models.CampaignStats
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of snapshots matching the filter
func (r *CampaignStatsRepositoryImpl) Count(ctx context.Context, filter models.CampaignStatsFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.CampaignStats{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any snapshot matching the filter exists
func (r *CampaignStatsRepositoryImpl) Exists(ctx context.Context, filter models.CampaignStatsFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignStatsRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignStatsFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}
	if filter.DateFrom != nil {
		db = db.Where("date >= ?", utils.DayStart(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		db = db.Where("date <= ?", utils.DayStart(*filter.DateTo))
	}
	return db
}
