package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// DispatchTaskRepositoryImpl implements the DispatchTaskRepository interface
type DispatchTaskRepositoryImpl struct {
	*BaseRepository[models.DispatchTask, models.DispatchTaskFilter]
}

// NewDispatchTaskRepository creates a new dispatch task repository
func NewDispatchTaskRepository(db *gorm.DB) DispatchTaskRepository {
	return &DispatchTaskRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DispatchTask, models.DispatchTaskFilter](db),
	}
}

// ListDue returns pending tasks scheduled before or at now, oldest first
func (r *DispatchTaskRepositoryImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DispatchTask, error) {
	if limit <= 0 {
		limit = 50
	}

	db := r.getDB(ctx)
	var tasks []*models.DispatchTask
	err := db.Where("status = ? AND scheduled_at <= ?", models.DispatchTaskStatusPending, now).
		Order("scheduled_at ASC, id ASC").
		Limit(limit).
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due dispatch tasks: %w", err)
	}
	return tasks, nil
}

// ListByCampaign returns a campaign's tasks, newest first
func (r *DispatchTaskRepositoryImpl) ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.DispatchTask, error) {
	filter := models.DispatchTaskFilter{CampaignID: &campaignID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// Update updates a task
func (r *DispatchTaskRepositoryImpl) Update(ctx context.Context, task *models.DispatchTask) error {
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

	err = db.Save(task).Error
	if err != nil {
		return fmt.Errorf("failed to update dispatch task: %w", err)
	}
	return nil
}

// CancelQueued cancels a task only while it is still pending. The guarded
// update makes cancellation race-safe against a worker claiming the task.
func (r *DispatchTaskRepositoryImpl) CancelQueued(ctx context.Context, taskID uint) (bool, error) {
	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return false, err
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

	now := utils.UTCNow()
	res := db.Model(&models.DispatchTask{}).
		Where("id = ? AND status = ?", taskID, models.DispatchTaskStatusPending).
		Updates(map[string]any{
			"status":      models.DispatchTaskStatusCancelled,
			"finished_at": now,
			"updated_at":  now,
		})
	if err = res.Error; err != nil {
		return false, fmt.Errorf("failed to cancel dispatch task %d: %w", taskID, err)
	}
	return res.RowsAffected > 0, nil
}

// ByFilter retrieves tasks based on filter criteria
func (r *DispatchTaskRepositoryImpl) ByFilter(ctx context.Context, filter models.DispatchTaskFilter, orderBy string, limit, offset int) ([]*models.DispatchTask, error) {
	db := applyPage(r.applyFilter(r.getDB(ctx), filter), orderBy, limit, offset)

	var tasks []*models.DispatchTask
	if err := db.Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Count returns the number of tasks matching the filter
func (r *DispatchTaskRepositoryImpl) Count(ctx context.Context, filter models.DispatchTaskFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.getDB(ctx).Model(&models.DispatchTask{}), filter).Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Exists checks if any task matching the filter exists
func (r *DispatchTaskRepositoryImpl) Exists(ctx context.Context, filter models.DispatchTaskFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DispatchTaskRepositoryImpl) applyFilter(db *gorm.DB, filter models.DispatchTaskFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.CampaignID != nil {
		db = db.Where("campaign_id = ?", *filter.CampaignID)
	}
	if filter.SiteID != nil {
		db = db.Where("site_id = ?", *filter.SiteID)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	return db
}
