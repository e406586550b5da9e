package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/invitewave/invitewave/models"
	"gorm.io/gorm"
)

// ActivityLogRepositoryImpl implements the ActivityLogRepository interface
type ActivityLogRepositoryImpl struct {
	*BaseRepository[models.ActivityLog, models.ActivityLogFilter]
}

// NewActivityLogRepository creates a new activity log repository
func NewActivityLogRepository(db *gorm.DB) ActivityLogRepository {
	return &ActivityLogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ActivityLog, models.ActivityLogFilter](db),
	}
}

// ListByCampaign retrieves activity entries for a campaign with pagination
func (r *ActivityLogRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var entries []*models.ActivityLog
	err := db.Where("campaign_id = ?", campaignID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity log by campaign: %w", err)
	}
	return entries, nil
}

// ListByAction retrieves activity entries for one action tag with pagination
func (r *ActivityLogRepositoryImpl) ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error) {
	db := r.getDB(ctx)

	var entries []*models.ActivityLog
	err := db.Where("action = ?", action).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list activity log by action: %w", err)
	}
	return entries, nil
}

// TrimOlderThan deletes entries created before the cutoff
func (r *ActivityLogRepositoryImpl) TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("created_at < ?", cutoff).Delete(&models.ActivityLog{})
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to trim activity log by age: %w", err)
	}
	return res.RowsAffected, nil
}

// TrimToMaxRows deletes the oldest entries beyond maxRows, keeping the most
// recent ones
func (r *ActivityLogRepositoryImpl) TrimToMaxRows(ctx context.Context, maxRows int64) (int64, error) {
	if maxRows <= 0 {
		return 0, nil
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Exec(
		"DELETE FROM activity_log WHERE id NOT IN (SELECT id FROM activity_log ORDER BY id DESC LIMIT ?)",
		maxRows,
	)
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to trim activity log to max rows: %w", err)
	}
	return res.RowsAffected, nil
}

// ClearAll deletes every activity entry
func (r *ActivityLogRepositoryImpl) ClearAll(ctx context.Context) (int64, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return 0, err
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

	res := db.Where("1 = 1").Delete(&models.ActivityLog{})
	if err = res.Error; err != nil {
		return 0, fmt.Errorf("failed to clear activity log: %w", err)
	}
	return res.RowsAffected, nil
}

// ByFilter retrieves activity entries based on filter criteria
func (r *ActivityLogRepositoryImpl) ByFilter(ctx context.Context, filter models.ActivityLogFilter, orderBy string, limit, offset int) ([]*models.ActivityLog, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var entries []*models.ActivityLog
	if err := db.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of activity entries matching the filter
func (r *ActivityLogRepositoryImpl) Count(ctx context.Context, filter models.ActivityLogFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.ActivityLog{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any activity entry matching the filter exists
func (r *ActivityLogRepositoryImpl) Exists(ctx context.Context, filter models.ActivityLogFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ActivityLogRepositoryImpl) applyFilter(db *gorm.DB, filter models.ActivityLogFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.ActorUserID != nil {
		db = db.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.RecipientID != nil {
		db = db.Where("recipient_id = ?", *filter.RecipientID)
	}
	if filter.Action != nil {
		db = db.Where("action = ?", *filter.Action)
	}
	if filter.Source != nil {
		db = db.Where("source = ?", *filter.Source)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	return db
}
