// Package businessflow contains the core business logic and use cases for campaign workflows
package businessflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// CampaignLike exposes the campaign behavior dispatch planning needs without
// binding it to one storage shape. The native entity and the legacy generic
// entry adapter both satisfy it; the variant is resolved once at load time.
type CampaignLike interface {
	CampaignID() uint
	IsEnabled() bool
	EnabledForSite(siteID uint) bool
	TemplatesForSite(siteID uint) (emailSubject, emailBody, smsBody string, ok bool)
	ExpiryPeriod() *string
	DelayPeriod() *string
	ProviderHandles() (provider, sender *string)
}

// nativeCampaign adapts the first-class Campaign entity.
type nativeCampaign struct {
	campaign *models.Campaign
}

func (n *nativeCampaign) CampaignID() uint { return n.campaign.ID }
func (n *nativeCampaign) IsEnabled() bool  { return n.campaign.Enabled }

func (n *nativeCampaign) EnabledForSite(siteID uint) bool {
	content := n.campaign.ContentFor(siteID)
	return content != nil && content.Enabled
}

func (n *nativeCampaign) TemplatesForSite(siteID uint) (string, string, string, bool) {
	content := n.campaign.ContentFor(siteID)
	if content == nil {
		return "", "", "", false
	}
	return content.EmailSubject, content.EmailBody, content.SMSBody, true
}

func (n *nativeCampaign) ExpiryPeriod() *string { return n.campaign.InvitationExpiryPeriod }
func (n *nativeCampaign) DelayPeriod() *string  { return n.campaign.InvitationDelayPeriod }

func (n *nativeCampaign) ProviderHandles() (*string, *string) {
	return n.campaign.SMSProviderHandle, n.campaign.SMSSenderHandle
}

// legacyEntryCampaign adapts a generic key/value content entry from older
// installations where campaigns were stored as loose entries.
type legacyEntryCampaign struct {
	id       uint
	enabled  bool
	perSite  map[uint]map[string]string
	expiry   *string
	delay    *string
	provider *string
	sender   *string
}

// NewLegacyEntryCampaign builds a CampaignLike from a generic entry payload.
func NewLegacyEntryCampaign(id uint, enabled bool, values map[string]string, perSite map[uint]map[string]string) CampaignLike {
	l := &legacyEntryCampaign{id: id, enabled: enabled, perSite: perSite}
	if v, ok := values["invitation_expiry_period"]; ok && v != "" {
		l.expiry = &v
	}
	if v, ok := values["invitation_delay_period"]; ok && v != "" {
		l.delay = &v
	}
	if v, ok := values["sms_provider"]; ok && v != "" {
		l.provider = &v
	}
	if v, ok := values["sms_sender"]; ok && v != "" {
		l.sender = &v
	}
	return l
}

func (l *legacyEntryCampaign) CampaignID() uint { return l.id }
func (l *legacyEntryCampaign) IsEnabled() bool  { return l.enabled }

func (l *legacyEntryCampaign) EnabledForSite(siteID uint) bool {
	site, ok := l.perSite[siteID]
	if !ok {
		return false
	}
	return site["enabled"] != "false"
}

func (l *legacyEntryCampaign) TemplatesForSite(siteID uint) (string, string, string, bool) {
	site, ok := l.perSite[siteID]
	if !ok {
		return "", "", "", false
	}
	return site["email_subject"], site["email_body"], site["sms_body"], true
}

func (l *legacyEntryCampaign) ExpiryPeriod() *string { return l.expiry }
func (l *legacyEntryCampaign) DelayPeriod() *string  { return l.delay }

func (l *legacyEntryCampaign) ProviderHandles() (*string, *string) {
	return l.provider, l.sender
}

// CampaignFlow handles the campaign management business logic
type CampaignFlow interface {
	Create(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	Update(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	Get(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error)
	List(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error)
	Delete(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.DeleteCampaignResponse, error)
	UpsertContent(ctx context.Context, req *dto.UpsertCampaignContentRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error)
	ListSites(ctx context.Context) ([]dto.SiteDTO, error)
	Resolve(ctx context.Context, campaignID uint) (CampaignLike, error)
}

// CampaignFlowImpl implements the campaign management flow
type CampaignFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	contentRepo   repository.CampaignContentRepository
	siteRepo      repository.SiteRepository
	recipientRepo repository.RecipientRepository
	activityRepo  repository.ActivityLogRepository
	db            *gorm.DB
}

// NewCampaignFlow creates a new campaign flow instance
func NewCampaignFlow(
	campaignRepo repository.CampaignRepository,
	contentRepo repository.CampaignContentRepository,
	siteRepo repository.SiteRepository,
	recipientRepo repository.RecipientRepository,
	activityRepo repository.ActivityLogRepository,
	db *gorm.DB,
) CampaignFlow {
	return &CampaignFlowImpl{
		campaignRepo:  campaignRepo,
		contentRepo:   contentRepo,
		siteRepo:      siteRepo,
		recipientRepo: recipientRepo,
		activityRepo:  activityRepo,
		db:            db,
	}
}

func validatePeriod(p *string) error {
	if p == nil || strings.TrimSpace(*p) == "" {
		return nil
	}
	if _, err := utils.ParseISOPeriod(*p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	return nil
}

// Create creates a campaign
func (f *CampaignFlowImpl) Create(ctx context.Context, req *dto.CreateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, NewBusinessError("CAMPAIGN_NAME_REQUIRED", "campaign name is required", ErrCampaignNameRequired)
	}
	if err := validatePeriod(req.InvitationDelayPeriod); err != nil {
		return nil, NewBusinessError("INVALID_DELAY_PERIOD", "invalid invitation delay period", err)
	}
	if err := validatePeriod(req.InvitationExpiryPeriod); err != nil {
		return nil, NewBusinessError("INVALID_EXPIRY_PERIOD", "invalid invitation expiry period", err)
	}

	campaign := &models.Campaign{
		Name:                   strings.TrimSpace(req.Name),
		Type:                   models.CampaignType(req.Type),
		FormID:                 req.FormID,
		Enabled:                req.Enabled == nil || *req.Enabled,
		InvitationDelayPeriod:  req.InvitationDelayPeriod,
		InvitationExpiryPeriod: req.InvitationExpiryPeriod,
		SMSProviderHandle:      req.SMSProviderHandle,
		SMSSenderHandle:        req.SMSSenderHandle,
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.campaignRepo.Save(txCtx, campaign); err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			CampaignID:  &campaign.ID,
			Action:      models.ActivityActionCampaignCreated,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("campaign %q created", campaign.Name),
			Details:     activityDetails(map[string]any{"uuid": campaign.UUID, "type": campaign.Type}),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := ToCampaignDTO(campaign, nil)
	return &result, nil
}

// Update updates an existing campaign
func (f *CampaignFlowImpl) Update(ctx context.Context, req *dto.UpdateCampaignRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := f.lookup(ctx, req.UUID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, NewBusinessError("CAMPAIGN_NAME_REQUIRED", "campaign name is required", ErrCampaignNameRequired)
		}
		campaign.Name = strings.TrimSpace(*req.Name)
	}
	if req.FormID != nil {
		campaign.FormID = req.FormID
	}
	if req.Enabled != nil {
		campaign.Enabled = *req.Enabled
	}
	if req.InvitationDelayPeriod != nil {
		if err := validatePeriod(req.InvitationDelayPeriod); err != nil {
			return nil, NewBusinessError("INVALID_DELAY_PERIOD", "invalid invitation delay period", err)
		}
		campaign.InvitationDelayPeriod = req.InvitationDelayPeriod
	}
	if req.InvitationExpiryPeriod != nil {
		if err := validatePeriod(req.InvitationExpiryPeriod); err != nil {
			return nil, NewBusinessError("INVALID_EXPIRY_PERIOD", "invalid invitation expiry period", err)
		}
		campaign.InvitationExpiryPeriod = req.InvitationExpiryPeriod
	}
	if req.SMSProviderHandle != nil {
		campaign.SMSProviderHandle = req.SMSProviderHandle
	}
	if req.SMSSenderHandle != nil {
		campaign.SMSSenderHandle = req.SMSSenderHandle
	}

	if err := f.campaignRepo.Update(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to update campaign: %w", err)
	}

	return f.Get(ctx, req.UUID)
}

// Get returns one campaign with its content rows
func (f *CampaignFlowImpl) Get(ctx context.Context, campaignUUID string) (*dto.CampaignDTO, error) {
	campaign, err := f.lookup(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}

	full, err := f.campaignRepo.ByIDWithContents(ctx, campaign.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign contents: %w", err)
	}

	sites, err := f.sitesByID(ctx)
	if err != nil {
		return nil, err
	}

	result := ToCampaignDTO(full, sites)
	return &result, nil
}

// List returns a page of campaigns
func (f *CampaignFlowImpl) List(ctx context.Context, req *dto.ListCampaignsRequest) (*dto.ListCampaignsResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	filter := models.CampaignFilter{Name: req.Name, Enabled: req.Enabled}
	if req.Type != nil {
		t := models.CampaignType(*req.Type)
		filter.Type = &t
	}

	campaigns, err := f.campaignRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	total, err := f.campaignRepo.Count(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count campaigns: %w", err)
	}

	out := &dto.ListCampaignsResponse{Total: total, Items: make([]dto.CampaignDTO, 0, len(campaigns))}
	for _, c := range campaigns {
		out.Items = append(out.Items, ToCampaignDTO(c, nil))
	}
	return out, nil
}

// Delete removes a campaign and everything scoped to it
func (f *CampaignFlowImpl) Delete(ctx context.Context, campaignUUID string, metadata *ClientMetadata) (*dto.DeleteCampaignResponse, error) {
	campaign, err := f.lookup(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}

	var recipientsDeleted int64
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var txErr error
		recipientsDeleted, txErr = f.recipientRepo.DeleteByCampaign(txCtx, campaign.ID)
		if txErr != nil {
			return txErr
		}
		if txErr = f.campaignRepo.Delete(txCtx, campaign.ID); txErr != nil {
			return txErr
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			Action:      models.ActivityActionCampaignDeleted,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("campaign %q deleted with %d recipients", campaign.Name, recipientsDeleted),
			Details:     activityDetails(map[string]any{"uuid": campaign.UUID, "recipients_deleted": recipientsDeleted}),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to delete campaign: %w", err)
	}

	return &dto.DeleteCampaignResponse{UUID: campaignUUID, RecipientsDeleted: recipientsDeleted}, nil
}

// UpsertContent stores the per-site content row of a campaign
func (f *CampaignFlowImpl) UpsertContent(ctx context.Context, req *dto.UpsertCampaignContentRequest, metadata *ClientMetadata) (*dto.CampaignDTO, error) {
	campaign, err := f.lookup(ctx, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	site, err := f.siteRepo.ByHandle(ctx, req.SiteHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, req.SiteHandle)
	}

	content := &models.CampaignContent{
		CampaignID:   campaign.ID,
		SiteID:       site.ID,
		Enabled:      req.Enabled == nil || *req.Enabled,
		EmailSubject: req.EmailSubject,
		EmailBody:    req.EmailBody,
		SMSBody:      req.SMSBody,
	}
	if err := f.contentRepo.Upsert(ctx, content); err != nil {
		return nil, err
	}

	return f.Get(ctx, req.CampaignUUID)
}

// ListSites returns all configured sites
func (f *CampaignFlowImpl) ListSites(ctx context.Context) ([]dto.SiteDTO, error) {
	sites, err := f.siteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SiteDTO, 0, len(sites))
	for _, s := range sites {
		out = append(out, ToSiteDTO(s))
	}
	return out, nil
}

// Resolve loads a campaign and wraps it in the CampaignLike capability
func (f *CampaignFlowImpl) Resolve(ctx context.Context, campaignID uint) (CampaignLike, error) {
	campaign, err := f.campaignRepo.ByIDWithContents(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign == nil {
		return nil, NewBusinessErrorf("CAMPAIGN_NOT_FOUND", "campaign %d not found", ErrCampaignNotFound, campaignID)
	}
	return &nativeCampaign{campaign: campaign}, nil
}

func (f *CampaignFlowImpl) lookup(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	if campaignUUID == "" {
		return nil, NewBusinessError("CAMPAIGN_UUID_REQUIRED", "campaign UUID is required", ErrCampaignUUIDRequired)
	}
	campaign, err := f.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	if campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}

func (f *CampaignFlowImpl) sitesByID(ctx context.Context) (map[uint]*models.Site, error) {
	sites, err := f.siteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[uint]*models.Site, len(sites))
	for _, s := range sites {
		out[s.ID] = s
	}
	return out, nil
}
