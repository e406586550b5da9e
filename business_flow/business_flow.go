// Package businessflow contains the business logic for the application.
package businessflow

import (
	"context"
	"encoding/json"
	"log"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds client-related information for activity logging
type ClientMetadata struct {
	IPAddress   string `json:"ip_address"`
	UserAgent   string `json:"user_agent"`
	RequestID   string `json:"request_id,omitempty"`
	ActorUserID *uint  `json:"actor_user_id,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress: ipAddress,
		UserAgent: userAgent,
	}
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// recordActivity appends one activity entry. Logging failures are reported
// but never fail the surrounding operation.
func recordActivity(ctx context.Context, repo repository.ActivityLogRepository, entry *models.ActivityLog) {
	if err := repo.Save(ctx, entry); err != nil {
		log.Printf("failed to record activity %s: %v", entry.Action, err)
	}
}

// activityDetails marshals free-form details for an activity entry. A
// marshalling failure degrades to no details rather than an error.
func activityDetails(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return raw
}

// ToCampaignDTO converts a campaign model to its response DTO
func ToCampaignDTO(campaign *models.Campaign, sitesByID map[uint]*models.Site) dto.CampaignDTO {
	out := dto.CampaignDTO{
		ID:                     campaign.ID,
		UUID:                   campaign.UUID.String(),
		Name:                   campaign.Name,
		Type:                   campaign.Type.String(),
		FormID:                 campaign.FormID,
		Enabled:                campaign.Enabled,
		InvitationDelayPeriod:  campaign.InvitationDelayPeriod,
		InvitationExpiryPeriod: campaign.InvitationExpiryPeriod,
		SMSProviderHandle:      campaign.SMSProviderHandle,
		SMSSenderHandle:        campaign.SMSSenderHandle,
		CreatedAt:              campaign.CreatedAt,
		UpdatedAt:              campaign.UpdatedAt,
	}
	for _, content := range campaign.Contents {
		cd := dto.CampaignContentDTO{
			SiteID:       content.SiteID,
			Enabled:      content.Enabled,
			EmailSubject: content.EmailSubject,
			EmailBody:    content.EmailBody,
			SMSBody:      content.SMSBody,
		}
		if site, ok := sitesByID[content.SiteID]; ok {
			cd.SiteHandle = site.Handle
		}
		out.Contents = append(out.Contents, cd)
	}
	return out
}

// ToRecipientDTO converts a recipient model to its response DTO
func ToRecipientDTO(r *models.Recipient) dto.RecipientDTO {
	return dto.RecipientDTO{
		ID:                   r.ID,
		CampaignID:           r.CampaignID,
		SiteID:               r.SiteID,
		Name:                 r.Name,
		Email:                r.Email,
		Phone:                r.Phone,
		InvitationCode:       r.InvitationCode,
		EmailSendDate:        r.EmailSendDate,
		EmailOpenDate:        r.EmailOpenDate,
		SMSSendDate:          r.SMSSendDate,
		SMSOpenDate:          r.SMSOpenDate,
		SubmissionID:         r.SubmissionID,
		InvitationExpiryDate: r.InvitationExpiryDate,
		CreatedAt:            r.CreatedAt,
	}
}

// ToDispatchTaskDTO converts a dispatch task model to its response DTO
func ToDispatchTaskDTO(t *models.DispatchTask) dto.DispatchTaskDTO {
	return dto.DispatchTaskDTO{
		ID:             t.ID,
		UUID:           t.UUID.String(),
		CampaignID:     t.CampaignID,
		SiteID:         t.SiteID,
		RecipientCount: len(t.RecipientIDs),
		SendSMS:        t.SendSMS,
		SendEmail:      t.SendEmail,
		Status:         t.Status.String(),
		Attempts:       t.Attempts,
		Progress:       t.Progress,
		ScheduledAt:    t.ScheduledAt,
		StartedAt:      t.StartedAt,
		FinishedAt:     t.FinishedAt,
		LastError:      t.LastError,
		CreatedAt:      t.CreatedAt,
	}
}

// ToCampaignStatsDTO converts a snapshot model to its response DTO with
// derived rates computed on read
func ToCampaignStatsDTO(s *models.CampaignStats) dto.CampaignStatsDTO {
	return dto.CampaignStatsDTO{
		CampaignID:      s.CampaignID,
		SiteID:          s.SiteID,
		Date:            s.Date.Format("2006-01-02"),
		TotalRecipients: s.TotalRecipients,
		EmailsSent:      s.EmailsSent,
		SMSSent:         s.SMSSent,
		EmailsOpened:    s.EmailsOpened,
		SMSOpened:       s.SMSOpened,
		Submissions:     s.Submissions,
		Expired:         s.Expired,
		EmailOpenRate:   s.EmailOpenRate(),
		SMSOpenRate:     s.SMSOpenRate(),
		ConversionRate:  s.ConversionRate(),
	}
}

// ToActivityEntryDTO converts an activity log model to its response DTO
func ToActivityEntryDTO(a *models.ActivityLog) dto.ActivityEntryDTO {
	return dto.ActivityEntryDTO{
		ID:          a.ID,
		ActorUserID: a.ActorUserID,
		CampaignID:  a.CampaignID,
		RecipientID: a.RecipientID,
		Action:      a.Action,
		Source:      a.Source,
		Summary:     a.Summary,
		Details:     a.Details,
		CreatedAt:   a.CreatedAt,
	}
}

// ToSiteDTO converts a site model to its response DTO
func ToSiteDTO(s *models.Site) dto.SiteDTO {
	return dto.SiteDTO{
		ID:        s.ID,
		UUID:      s.UUID.String(),
		Handle:    s.Handle,
		Name:      s.Name,
		Language:  s.Language,
		IsPrimary: s.IsPrimary,
	}
}
