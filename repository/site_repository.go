package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/invitewave/invitewave/models"
	"gorm.io/gorm"
)

// SiteRepositoryImpl implements the SiteRepository interface
type SiteRepositoryImpl struct {
	*BaseRepository[models.Site, models.SiteFilter]
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *gorm.DB) SiteRepository {
	return &SiteRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Site, models.SiteFilter](db),
	}
}

// ByHandle retrieves a site by its unique handle
func (r *SiteRepositoryImpl) ByHandle(ctx context.Context, handle string) (*models.Site, error) {
	db := r.getDB(ctx)

	var site models.Site
	err := db.Where("handle = ?", handle).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find site by handle %s: %w", handle, err)
	}

	return &site, nil
}

// ListAll returns all sites ordered by handle
func (r *SiteRepositoryImpl) ListAll(ctx context.Context) ([]*models.Site, error) {
	db := r.getDB(ctx)

	var sites []*models.Site
	if err := db.Order("handle ASC").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	return sites, nil
}

// Primary returns the primary site, or nil when none is flagged
func (r *SiteRepositoryImpl) Primary(ctx context.Context) (*models.Site, error) {
	db := r.getDB(ctx)

	var site models.Site
	err := db.Where("is_primary = ?", true).First(&site).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find primary site: %w", err)
	}
	return &site, nil
}

// ByFilter retrieves sites based on filter criteria
func (r *SiteRepositoryImpl) ByFilter(ctx context.Context, filter models.SiteFilter, orderBy string, limit, offset int) ([]*models.Site, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var sites []*models.Site
	if err := db.Find(&sites).Error; err != nil {
		return nil, err
	}
	return sites, nil
}

// Count returns the number of sites matching the filter
func (r *SiteRepositoryImpl) Count(ctx context.Context, filter models.SiteFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.Site{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any site matching the filter exists
func (r *SiteRepositoryImpl) Exists(ctx context.Context, filter models.SiteFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *SiteRepositoryImpl) applyFilter(db *gorm.DB, filter models.SiteFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Handle != nil {
		db = db.Where("handle = ?", *filter.Handle)
	}
	if filter.Language != nil {
		db = db.Where("language = ?", *filter.Language)
	}
	if filter.IsPrimary != nil {
		db = db.Where("is_primary = ?", *filter.IsPrimary)
	}
	return db
}
