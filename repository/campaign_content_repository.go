package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/invitewave/invitewave/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CampaignContentRepositoryImpl implements the CampaignContentRepository interface
type CampaignContentRepositoryImpl struct {
	*BaseRepository[models.CampaignContent, models.CampaignContentFilter]
}

// NewCampaignContentRepository creates a new campaign content repository
func NewCampaignContentRepository(db *gorm.DB) CampaignContentRepository {
	return &CampaignContentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CampaignContent, models.CampaignContentFilter](db),
	}
}

// ByCampaignAndSite retrieves the content row for one (campaign, site) pair
func (r *CampaignContentRepositoryImpl) ByCampaignAndSite(ctx context.Context, campaignID, siteID uint) (*models.CampaignContent, error) {
	db := r.getDB(ctx)

	var content models.CampaignContent
	err := db.Where("campaign_id = ? AND site_id = ?", campaignID, siteID).First(&content).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find content for campaign %d site %d: %w", campaignID, siteID, err)
	}
	return &content, nil
}

// Upsert inserts or replaces the content row keyed on (campaign_id, site_id)
func (r *CampaignContentRepositoryImpl) Upsert(ctx context.Context, content *models.CampaignContent) error {
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

	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "campaign_id"}, {Name: "site_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"enabled", "email_subject", "email_body", "sms_body", "updated_at",
		}),
	}).Create(content).Error
	if err != nil {
		return fmt.Errorf("failed to upsert campaign content: %w", err)
	}
	return nil
}

// ByFilter retrieves content rows based on filter criteria
func (r *CampaignContentRepositoryImpl) ByFilter(ctx context.Context, filter models.CampaignContentFilter, orderBy string, limit, offset int) ([]*models.CampaignContent, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var contents []*models.CampaignContent
	if err := db.Find(&contents).Error; err != nil {
		return nil, err
	}
	return contents, nil
}

// Count returns the number of content rows matching the filter
func (r *CampaignContentRepositoryImpl) Count(ctx context.Context, filter models.CampaignContentFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.CampaignContent{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any content row matching the filter exists
func (r *CampaignContentRepositoryImpl) Exists(ctx context.Context, filter models.CampaignContentFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CampaignContentRepositoryImpl) applyFilter(db *gorm.DB, filter models.CampaignContentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}
	if filter.Enabled != nil {
		db = db.Where("enabled = ?", *filter.Enabled)
	}
	return db
}
