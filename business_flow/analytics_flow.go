package businessflow

import (
	"context"
	"fmt"
	"time"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// AnalyticsFlow maintains and serves per-day campaign snapshots
type AnalyticsFlow interface {
	Refresh(ctx context.Context, req *dto.RefreshAnalyticsRequest) (*dto.CampaignStatsDTO, error)
	Get(ctx context.Context, req *dto.GetAnalyticsRequest) (*dto.GetAnalyticsResponse, error)
	RefreshAll(ctx context.Context, day time.Time) error
}

// AnalyticsFlowImpl implements the analytics flow
type AnalyticsFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	siteRepo      repository.SiteRepository
	recipientRepo repository.RecipientRepository
	statsRepo     repository.CampaignStatsRepository
	db            *gorm.DB
}

// NewAnalyticsFlow creates a new analytics flow instance
func NewAnalyticsFlow(
	campaignRepo repository.CampaignRepository,
	siteRepo repository.SiteRepository,
	recipientRepo repository.RecipientRepository,
	statsRepo repository.CampaignStatsRepository,
	db *gorm.DB,
) AnalyticsFlow {
	return &AnalyticsFlowImpl{
		campaignRepo:  campaignRepo,
		siteRepo:      siteRepo,
		recipientRepo: recipientRepo,
		statsRepo:     statsRepo,
		db:            db,
	}
}

// Refresh recomputes the snapshot for one campaign/site/day from recipient
// state. The recount replaces the stored row wholesale, so running it twice
// for the same day yields the same counters.
func (f *AnalyticsFlowImpl) Refresh(ctx context.Context, req *dto.RefreshAnalyticsRequest) (*dto.CampaignStatsDTO, error) {
	campaign, err := f.campaignRepo.ByUUID(ctx, req.CampaignUUID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	site, err := f.siteRepo.ByHandle(ctx, req.SiteHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, req.SiteHandle)
	}

	day := utils.DayStart(utils.UTCNow())
	if req.Date != nil && *req.Date != "" {
		parsed, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			return nil, NewBusinessError("INVALID_DATE", "invalid snapshot date", err)
		}
		day = utils.DayStart(parsed)
	}

	stats, err := f.recompute(ctx, campaign.ID, site.ID, day)
	if err != nil {
		return nil, err
	}

	result := ToCampaignStatsDTO(stats)
	return &result, nil
}

// Get reads stored snapshots over an inclusive date range
func (f *AnalyticsFlowImpl) Get(ctx context.Context, req *dto.GetAnalyticsRequest) (*dto.GetAnalyticsResponse, error) {
	campaign, err := f.campaignRepo.ByUUID(ctx, req.CampaignUUID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	site, err := f.siteRepo.ByHandle(ctx, req.SiteHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, req.SiteHandle)
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, NewBusinessError("INVALID_DATE", "invalid range start", err)
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, NewBusinessError("INVALID_DATE", "invalid range end", err)
	}
	if to.Before(from) {
		return nil, NewBusinessError("INVALID_DATE_RANGE", "range end precedes start", ErrInvalidDateRange)
	}

	items, err := f.statsRepo.ListRange(ctx, campaign.ID, site.ID, utils.DayStart(from), utils.DayStart(to))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshots: %w", err)
	}

	out := &dto.GetAnalyticsResponse{Items: make([]dto.CampaignStatsDTO, 0, len(items))}
	for _, s := range items {
		out.Items = append(out.Items, ToCampaignStatsDTO(s))
	}
	return out, nil
}

// RefreshAll recomputes the given day's snapshot for every enabled campaign
// across every site. Used by the periodic refresh worker.
func (f *AnalyticsFlowImpl) RefreshAll(ctx context.Context, day time.Time) error {
	campaigns, err := f.campaignRepo.ListEnabled(ctx)
	if err != nil {
		return fmt.Errorf("failed to list enabled campaigns: %w", err)
	}
	sites, err := f.siteRepo.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sites: %w", err)
	}

	day = utils.DayStart(day)
	for _, campaign := range campaigns {
		for _, site := range sites {
			if _, err := f.recompute(ctx, campaign.ID, site.ID, day); err != nil {
				return fmt.Errorf("failed to refresh campaign %d site %d: %w", campaign.ID, site.ID, err)
			}
		}
	}
	return nil
}

func (f *AnalyticsFlowImpl) recompute(ctx context.Context, campaignID, siteID uint, day time.Time) (*models.CampaignStats, error) {
	counters, err := f.recipientRepo.DayCounters(ctx, campaignID, siteID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to count recipient state: %w", err)
	}
	if err := f.statsRepo.Upsert(ctx, counters); err != nil {
		return nil, fmt.Errorf("failed to store snapshot: %w", err)
	}
	return counters, nil
}
