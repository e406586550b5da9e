package businessflow

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// buildRecipient assembles a new recipient for a campaign. The shared
// invitation code is generated in the model hook when absent; the expiry is
// computed once from the campaign's period at creation and never re-derived
// when the campaign changes later.
func buildRecipient(campaign *models.Campaign, siteID uint, name string, email, phone *string) *models.Recipient {
	r := &models.Recipient{
		CampaignID: campaign.ID,
		SiteID:     siteID,
		Name:       name,
		Email:      email,
		Phone:      phone,
	}
	if campaign.InvitationExpiryPeriod != nil && strings.TrimSpace(*campaign.InvitationExpiryPeriod) != "" {
		if expiry, err := utils.AddISOPeriod(utils.UTCNow(), *campaign.InvitationExpiryPeriod); err == nil {
			r.InvitationExpiryDate = &expiry
		}
	}
	return r
}

// RecipientFlow handles recipient management, export and event correlation
type RecipientFlow interface {
	Create(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error)
	List(ctx context.Context, req *dto.ListRecipientsRequest) (*dto.ListRecipientsResponse, error)
	Delete(ctx context.Context, campaignUUID string, recipientID uint, metadata *ClientMetadata) error
	BulkDelete(ctx context.Context, req *dto.BulkDeleteRecipientsRequest, metadata *ClientMetadata) (*dto.BulkDeleteRecipientsResponse, error)
	Export(ctx context.Context, req *dto.ExportRecipientsRequest) (*dto.ExportRecipientsResult, error)
	HandleSubmission(ctx context.Context, req *dto.SubmissionEventRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error)
	TrackOpen(ctx context.Context, req *dto.OpenTrackingRequest) error
}

// RecipientFlowImpl implements the recipient management flow
type RecipientFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	siteRepo      repository.SiteRepository
	recipientRepo repository.RecipientRepository
	activityRepo  repository.ActivityLogRepository
	smsCfg        config.SMSConfig
	db            *gorm.DB
}

// NewRecipientFlow creates a new recipient flow instance
func NewRecipientFlow(
	campaignRepo repository.CampaignRepository,
	siteRepo repository.SiteRepository,
	recipientRepo repository.RecipientRepository,
	activityRepo repository.ActivityLogRepository,
	smsCfg config.SMSConfig,
	db *gorm.DB,
) RecipientFlow {
	return &RecipientFlowImpl{
		campaignRepo:  campaignRepo,
		siteRepo:      siteRepo,
		recipientRepo: recipientRepo,
		activityRepo:  activityRepo,
		smsCfg:        smsCfg,
		db:            db,
	}
}

// Create adds one recipient manually
func (f *RecipientFlowImpl) Create(ctx context.Context, req *dto.CreateRecipientRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error) {
	campaign, site, err := f.scope(ctx, req.CampaignUUID, req.SiteHandle)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("RECIPIENT_NAME_REQUIRED", "recipient name is required", ErrRecipientNameRequired)
	}

	var email *string
	if req.Email != nil && strings.TrimSpace(*req.Email) != "" {
		if _, err := mail.ParseAddress(*req.Email); err != nil {
			return nil, NewBusinessError("INVALID_EMAIL", "invalid email address", ErrInvalidEmail)
		}
		lowered := strings.ToLower(strings.TrimSpace(*req.Email))
		email = &lowered
	}

	var phone *string
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		var res utils.PhoneResult
		if req.Country != nil && *req.Country != "" {
			res = utils.NormalizePhoneWithCountry(*req.Phone, *req.Country)
		} else {
			defaultRegion := utils.DefaultRegionFor(f.smsCfg.AllowedCountries, f.smsCfg.DefaultRegion)
			res = utils.NormalizePhone(*req.Phone, "", defaultRegion)
		}
		if res.Err != nil || !res.Valid {
			return nil, NewBusinessError("INVALID_PHONE", "invalid phone number", ErrInvalidPhone)
		}
		if !utils.CountryAllowed(f.smsCfg.AllowedCountries, res.DetectedCountry) {
			return nil, NewBusinessError("COUNTRY_NOT_ALLOWED", "phone country not allowed", utils.ErrPhoneCountryNotAllowed)
		}
		phone = &res.Canonical
	}

	if email == nil && phone == nil {
		return nil, NewBusinessError("NO_CONTACT_METHOD", "at least one of email or phone is required", ErrNoContactMethod)
	}

	recipient := buildRecipient(campaign, site.ID, name, email, phone)
	if err := f.recipientRepo.Save(ctx, recipient); err != nil {
		return nil, fmt.Errorf("failed to create recipient: %w", err)
	}

	result := ToRecipientDTO(recipient)
	return &result, nil
}

// List returns a page of recipients for one campaign/site scope
func (f *RecipientFlowImpl) List(ctx context.Context, req *dto.ListRecipientsRequest) (*dto.ListRecipientsResponse, error) {
	campaign, site, err := f.scope(ctx, req.CampaignUUID, req.SiteHandle)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 50
	}

	recipients, err := f.recipientRepo.ListByCampaignSite(ctx, campaign.ID, site.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	total, err := f.recipientRepo.Count(ctx, models.RecipientFilter{CampaignID: &campaign.ID, SiteID: &site.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count recipients: %w", err)
	}

	out := &dto.ListRecipientsResponse{Total: total, Items: make([]dto.RecipientDTO, 0, len(recipients))}
	for _, r := range recipients {
		out.Items = append(out.Items, ToRecipientDTO(r))
	}
	return out, nil
}

// Delete removes one recipient
func (f *RecipientFlowImpl) Delete(ctx context.Context, campaignUUID string, recipientID uint, metadata *ClientMetadata) error {
	campaign, err := f.lookupCampaign(ctx, campaignUUID)
	if err != nil {
		return err
	}

	recipient, err := f.recipientRepo.ByID(ctx, recipientID)
	if err != nil {
		return err
	}
	if recipient == nil || recipient.CampaignID != campaign.ID {
		return NewBusinessError("RECIPIENT_NOT_FOUND", "recipient not found", ErrRecipientNotFound)
	}

	return repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.recipientRepo.Delete(txCtx, recipientID); err != nil {
			return err
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			CampaignID:  &campaign.ID,
			RecipientID: &recipientID,
			Action:      models.ActivityActionRecipientDeleted,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("recipient %d deleted", recipientID),
		})
		return nil
	})
}

// BulkDelete removes many recipients at once
func (f *RecipientFlowImpl) BulkDelete(ctx context.Context, req *dto.BulkDeleteRecipientsRequest, metadata *ClientMetadata) (*dto.BulkDeleteRecipientsResponse, error) {
	campaign, err := f.lookupCampaign(ctx, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	var deleted int64
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var txErr error
		deleted, txErr = f.recipientRepo.DeleteBulk(txCtx, req.IDs)
		if txErr != nil {
			return txErr
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			CampaignID:  &campaign.ID,
			Action:      models.ActivityActionRecipientsDeletedBulk,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("%d recipients deleted in bulk", deleted),
			Details:     activityDetails(map[string]any{"requested": len(req.IDs), "deleted": deleted}),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &dto.BulkDeleteRecipientsResponse{Deleted: deleted}, nil
}

var exportHeaders = []string{
	"ID", "Name", "Email", "Phone", "Invitation Code",
	"Email Send Date", "Email Open Date", "SMS Send Date", "SMS Open Date",
	"Submission ID", "Expiry Date", "Created At",
}

func exportDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(utils.ExportDateLayout)
}

func exportRow(r *models.Recipient) []string {
	return []string{
		fmt.Sprintf("%d", r.ID),
		r.Name,
		utils.Deref(r.Email),
		utils.Deref(r.Phone),
		r.InvitationCode,
		exportDate(r.EmailSendDate),
		exportDate(r.EmailOpenDate),
		exportDate(r.SMSSendDate),
		exportDate(r.SMSOpenDate),
		utils.Deref(r.SubmissionID),
		exportDate(r.InvitationExpiryDate),
		r.CreatedAt.UTC().Format(utils.ExportDateLayout),
	}
}

// Export renders the scope's recipients as CSV, JSON or XLSX
func (f *RecipientFlowImpl) Export(ctx context.Context, req *dto.ExportRecipientsRequest) (*dto.ExportRecipientsResult, error) {
	campaign, site, err := f.scope(ctx, req.CampaignUUID, req.SiteHandle)
	if err != nil {
		return nil, err
	}

	recipients, err := f.recipientRepo.ListByCampaignSite(ctx, campaign.ID, site.ID, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipients for export: %w", err)
	}

	base := fmt.Sprintf("recipients_%s_%s", campaign.UUID, site.Handle)
	switch req.Format {
	case "", "csv":
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		if err := w.Write(exportHeaders); err != nil {
			return nil, fmt.Errorf("failed to write export header: %w", err)
		}
		for _, r := range recipients {
			if err := w.Write(exportRow(r)); err != nil {
				return nil, fmt.Errorf("failed to write export row: %w", err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			return nil, err
		}
		return &dto.ExportRecipientsResult{
			FileName:    base + ".csv",
			ContentType: "text/csv",
			Data:        buf.Bytes(),
		}, nil

	case "json":
		items := make([]dto.RecipientDTO, 0, len(recipients))
		for _, r := range recipients {
			items = append(items, ToRecipientDTO(r))
		}
		raw, err := json.MarshalIndent(items, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode export: %w", err)
		}
		return &dto.ExportRecipientsResult{
			FileName:    base + ".json",
			ContentType: "application/json",
			Data:        raw,
		}, nil

	case "xlsx":
		file := excelize.NewFile()
		sheet := file.GetSheetName(0)
		for col, header := range exportHeaders {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := file.SetCellValue(sheet, cell, header); err != nil {
				return nil, fmt.Errorf("failed to write export header: %w", err)
			}
		}
		for rowIdx, r := range recipients {
			for col, value := range exportRow(r) {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
				if err := file.SetCellValue(sheet, cell, value); err != nil {
					return nil, fmt.Errorf("failed to write export row: %w", err)
				}
			}
		}
		var buf bytes.Buffer
		if err := file.Write(&buf); err != nil {
			return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
		}
		return &dto.ExportRecipientsResult{
			FileName:    base + ".xlsx",
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Data:        buf.Bytes(),
		}, nil

	default:
		return nil, NewBusinessErrorf("INVALID_EXPORT_FORMAT", "unsupported export format %q", nil, req.Format)
	}
}

// HandleSubmission correlates an external form submission with the recipient
// owning the invitation code
func (f *RecipientFlowImpl) HandleSubmission(ctx context.Context, req *dto.SubmissionEventRequest, metadata *ClientMetadata) (*dto.RecipientDTO, error) {
	campaign, site, err := f.scope(ctx, req.CampaignUUID, req.SiteHandle)
	if err != nil {
		return nil, err
	}

	recipient, err := f.recipientRepo.ByInvitationCode(ctx, campaign.ID, site.ID, req.InvitationCode)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, NewBusinessError("INVITATION_CODE_NOT_FOUND", "invitation code not found", ErrInvitationCodeNotFound)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.recipientRepo.SetSubmissionID(txCtx, recipient.ID, req.SubmissionID); err != nil {
			return err
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			CampaignID:  &campaign.ID,
			RecipientID: &recipient.ID,
			Action:      models.ActivityActionSubmissionReceived,
			Source:      models.ActivitySourceSystem,
			Summary:     fmt.Sprintf("submission %s received for recipient %d", req.SubmissionID, recipient.ID),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	recipient.SubmissionID = &req.SubmissionID
	result := ToRecipientDTO(recipient)
	return &result, nil
}

// TrackOpen records an open beacon hit for one channel, set once
func (f *RecipientFlowImpl) TrackOpen(ctx context.Context, req *dto.OpenTrackingRequest) error {
	campaign, site, err := f.scope(ctx, req.CampaignUUID, req.SiteHandle)
	if err != nil {
		return err
	}

	recipient, err := f.recipientRepo.ByInvitationCode(ctx, campaign.ID, site.ID, req.InvitationCode)
	if err != nil {
		return err
	}
	if recipient == nil {
		return NewBusinessError("INVITATION_CODE_NOT_FOUND", "invitation code not found", ErrInvitationCodeNotFound)
	}

	now := utils.UTCNow()
	switch req.Channel {
	case "email":
		return f.recipientRepo.MarkEmailOpened(ctx, recipient.ID, now)
	case "sms":
		return f.recipientRepo.MarkSMSOpened(ctx, recipient.ID, now)
	default:
		return NewBusinessErrorf("INVALID_CHANNEL", "unknown channel %q", ErrInvalidChannel, req.Channel)
	}
}

func (f *RecipientFlowImpl) lookupCampaign(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	if campaignUUID == "" {
		return nil, NewBusinessError("CAMPAIGN_UUID_REQUIRED", "campaign UUID is required", ErrCampaignUUIDRequired)
	}
	campaign, err := f.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}

func (f *RecipientFlowImpl) scope(ctx context.Context, campaignUUID, siteHandle string) (*models.Campaign, *models.Site, error) {
	campaign, err := f.lookupCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, nil, err
	}
	site, err := f.siteRepo.ByHandle(ctx, siteHandle)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, siteHandle)
	}
	return campaign, site, nil
}
