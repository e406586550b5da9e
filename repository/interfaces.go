// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/invitewave/invitewave/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// SiteRepository defines operations for sites
type SiteRepository interface {
	Repository[models.Site, models.SiteFilter]
	ByHandle(ctx context.Context, handle string) (*models.Site, error)
	ListAll(ctx context.Context) ([]*models.Site, error)
	Primary(ctx context.Context) (*models.Site, error)
}

// CampaignRepository defines operations for invitation campaigns
type CampaignRepository interface {
	Repository[models.Campaign, models.CampaignFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Campaign, error)
	ByIDWithContents(ctx context.Context, id uint) (*models.Campaign, error)
	ListEnabled(ctx context.Context) ([]*models.Campaign, error)
	Update(ctx context.Context, campaign *models.Campaign) error
	Delete(ctx context.Context, id uint) error
}

// CampaignContentRepository defines operations for per-site campaign content
type CampaignContentRepository interface {
	Repository[models.CampaignContent, models.CampaignContentFilter]
	ByCampaignAndSite(ctx context.Context, campaignID, siteID uint) (*models.CampaignContent, error)
	Upsert(ctx context.Context, content *models.CampaignContent) error
}

// RecipientRepository defines operations for invitation recipients
type RecipientRepository interface {
	Repository[models.Recipient, models.RecipientFilter]
	ByInvitationCode(ctx context.Context, campaignID, siteID uint, code string) (*models.Recipient, error)
	ListByCampaignSite(ctx context.Context, campaignID, siteID uint, limit, offset int) ([]*models.Recipient, error)
	ListPendingIDs(ctx context.Context, campaignID, siteID uint, smsPending, emailPending bool) ([]uint, error)
	MarkSMSSent(ctx context.Context, recipientID uint, at time.Time) error
	MarkEmailSent(ctx context.Context, recipientID uint, at time.Time) error
	MarkSMSOpened(ctx context.Context, recipientID uint, at time.Time) error
	MarkEmailOpened(ctx context.Context, recipientID uint, at time.Time) error
	SetSubmissionID(ctx context.Context, recipientID uint, submissionID string) error
	Update(ctx context.Context, recipient *models.Recipient) error
	Delete(ctx context.Context, id uint) error
	DeleteBulk(ctx context.Context, ids []uint) (int64, error)
	DeleteByCampaign(ctx context.Context, campaignID uint) (int64, error)
	DayCounters(ctx context.Context, campaignID, siteID uint, day time.Time) (*models.CampaignStats, error)
}

// CampaignStatsRepository defines operations for analytics snapshots
type CampaignStatsRepository interface {
	Repository[models.CampaignStats, models.CampaignStatsFilter]
	Upsert(ctx context.Context, stats *models.CampaignStats) error
	ByScope(ctx context.Context, campaignID, siteID uint, day time.Time) (*models.CampaignStats, error)
	ListRange(ctx context.Context, campaignID, siteID uint, from, to time.Time) ([]*models.CampaignStats, error)
}

// DispatchTaskRepository defines operations for queued dispatch batches
type DispatchTaskRepository interface {
	Repository[models.DispatchTask, models.DispatchTaskFilter]
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.DispatchTask, error)
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.DispatchTask, error)
	Update(ctx context.Context, task *models.DispatchTask) error
	CancelQueued(ctx context.Context, taskID uint) (bool, error)
}

// ActivityLogRepository defines operations for the activity log
type ActivityLogRepository interface {
	Repository[models.ActivityLog, models.ActivityLogFilter]
	ListByCampaign(ctx context.Context, campaignID uint, limit, offset int) ([]*models.ActivityLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.ActivityLog, error)
	TrimOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	TrimToMaxRows(ctx context.Context, maxRows int64) (int64, error)
	ClearAll(ctx context.Context) (int64, error)
}
