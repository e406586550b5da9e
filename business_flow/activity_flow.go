package businessflow

import (
	"context"
	"fmt"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// ActivityFlow serves and maintains the audit trail
type ActivityFlow interface {
	List(ctx context.Context, req *dto.ListActivityRequest) (*dto.ListActivityResponse, error)
	Clear(ctx context.Context, metadata *ClientMetadata) (*dto.ClearActivityResponse, error)
	Trim(ctx context.Context) (int64, error)
}

// ActivityFlowImpl implements the activity log flow
type ActivityFlowImpl struct {
	campaignRepo repository.CampaignRepository
	activityRepo repository.ActivityLogRepository
	retentionCfg config.RetentionConfig
	db           *gorm.DB
}

// NewActivityFlow creates a new activity flow instance
func NewActivityFlow(
	campaignRepo repository.CampaignRepository,
	activityRepo repository.ActivityLogRepository,
	retentionCfg config.RetentionConfig,
	db *gorm.DB,
) ActivityFlow {
	return &ActivityFlowImpl{
		campaignRepo: campaignRepo,
		activityRepo: activityRepo,
		retentionCfg: retentionCfg,
		db:           db,
	}
}

// List returns a page of activity entries, newest first
func (f *ActivityFlowImpl) List(ctx context.Context, req *dto.ListActivityRequest) (*dto.ListActivityResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	offset := (page - 1) * pageSize

	filter := models.ActivityLogFilter{}
	if req.CampaignUUID != nil && *req.CampaignUUID != "" {
		campaign, err := f.campaignRepo.ByUUID(ctx, *req.CampaignUUID)
		if err != nil || campaign == nil {
			return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
		}
		filter.CampaignID = &campaign.ID
	}
	if req.Action != nil && *req.Action != "" {
		filter.Action = req.Action
	}
	if req.Source != nil && *req.Source != "" {
		filter.Source = req.Source
	}

	entries, err := f.activityRepo.ByFilter(ctx, filter, "id DESC", pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	total, err := f.activityRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}

	out := &dto.ListActivityResponse{Total: total, Items: make([]dto.ActivityEntryDTO, 0, len(entries))}
	for _, e := range entries {
		out.Items = append(out.Items, ToActivityEntryDTO(e))
	}
	return out, nil
}

// Clear wipes the whole log, leaving a single entry recording the wipe
func (f *ActivityFlowImpl) Clear(ctx context.Context, metadata *ClientMetadata) (*dto.ClearActivityResponse, error) {
	var cleared int64
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var txErr error
		cleared, txErr = f.activityRepo.ClearAll(txCtx)
		if txErr != nil {
			return txErr
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			Action:      models.ActivityActionActivityLogCleared,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("%d activity entries cleared", cleared),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to clear activity log: %w", err)
	}
	return &dto.ClearActivityResponse{Cleared: cleared}, nil
}

// Trim enforces retention: entries older than the configured age go first,
// then the log is capped to the configured row count. Used by the retention
// worker.
func (f *ActivityFlowImpl) Trim(ctx context.Context) (int64, error) {
	maxAge := f.retentionCfg.ActivityMaxAge
	if maxAge <= 0 {
		maxAge = utils.ActivityRetentionAge
	}
	maxRows := f.retentionCfg.ActivityMaxRows
	if maxRows <= 0 {
		maxRows = utils.ActivityRetentionMaxRows
	}

	cutoff := utils.UTCNow().Add(-maxAge)
	byAge, err := f.activityRepo.TrimOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim activity by age: %w", err)
	}
	byCount, err := f.activityRepo.TrimToMaxRows(ctx, maxRows)
	if err != nil {
		return byAge, fmt.Errorf("failed to cap activity rows: %w", err)
	}
	return byAge + byCount, nil
}
