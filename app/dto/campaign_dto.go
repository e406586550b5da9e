package dto

import (
	"time"
)

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name                   string  `json:"name" validate:"required,min=1,max=255"`
	Type                   string  `json:"type" validate:"omitempty,oneof=survey notification"`
	FormID                 *string `json:"form_id,omitempty" validate:"omitempty,max=128"`
	Enabled                *bool   `json:"enabled,omitempty"`
	InvitationDelayPeriod  *string `json:"invitation_delay_period,omitempty" validate:"omitempty,max=32"`
	InvitationExpiryPeriod *string `json:"invitation_expiry_period,omitempty" validate:"omitempty,max=32"`
	SMSProviderHandle      *string `json:"sms_provider_handle,omitempty" validate:"omitempty,max=64"`
	SMSSenderHandle        *string `json:"sms_sender_handle,omitempty" validate:"omitempty,max=64"`
}

// UpdateCampaignRequest represents the request to update an existing campaign
type UpdateCampaignRequest struct {
	UUID                   string  `json:"-"`
	Name                   *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	FormID                 *string `json:"form_id,omitempty" validate:"omitempty,max=128"`
	Enabled                *bool   `json:"enabled,omitempty"`
	InvitationDelayPeriod  *string `json:"invitation_delay_period,omitempty" validate:"omitempty,max=32"`
	InvitationExpiryPeriod *string `json:"invitation_expiry_period,omitempty" validate:"omitempty,max=32"`
	SMSProviderHandle      *string `json:"sms_provider_handle,omitempty" validate:"omitempty,max=64"`
	SMSSenderHandle        *string `json:"sms_sender_handle,omitempty" validate:"omitempty,max=64"`
}

// CampaignDTO represents a campaign in responses
type CampaignDTO struct {
	ID                     uint                 `json:"id"`
	UUID                   string               `json:"uuid"`
	Name                   string               `json:"name"`
	Type                   string               `json:"type"`
	FormID                 *string              `json:"form_id,omitempty"`
	Enabled                bool                 `json:"enabled"`
	InvitationDelayPeriod  *string              `json:"invitation_delay_period,omitempty"`
	InvitationExpiryPeriod *string              `json:"invitation_expiry_period,omitempty"`
	SMSProviderHandle      *string              `json:"sms_provider_handle,omitempty"`
	SMSSenderHandle        *string              `json:"sms_sender_handle,omitempty"`
	CreatedAt              time.Time            `json:"created_at"`
	UpdatedAt              *time.Time           `json:"updated_at,omitempty"`
	Contents               []CampaignContentDTO `json:"contents,omitempty"`
}

// UpsertCampaignContentRequest represents per-site content to store for a campaign
type UpsertCampaignContentRequest struct {
	CampaignUUID string `json:"-"`
	SiteHandle   string `json:"site_handle" validate:"required,max=64"`
	Enabled      *bool  `json:"enabled,omitempty"`
	EmailSubject string `json:"email_subject" validate:"max=512"`
	EmailBody    string `json:"email_body"`
	SMSBody      string `json:"sms_body"`
}

// CampaignContentDTO represents per-site content in responses
type CampaignContentDTO struct {
	SiteID       uint   `json:"site_id"`
	SiteHandle   string `json:"site_handle,omitempty"`
	Enabled      bool   `json:"enabled"`
	EmailSubject string `json:"email_subject"`
	EmailBody    string `json:"email_body"`
	SMSBody      string `json:"sms_body"`
}

// ListCampaignsRequest represents campaign list filters
type ListCampaignsRequest struct {
	Name     *string `query:"name"`
	Type     *string `query:"type" validate:"omitempty,oneof=survey notification"`
	Enabled  *bool   `query:"enabled"`
	Page     int     `query:"page" validate:"omitempty,min=1"`
	PageSize int     `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListCampaignsResponse represents a page of campaigns
type ListCampaignsResponse struct {
	Items []CampaignDTO `json:"items"`
	Total int64         `json:"total"`
}

// DeleteCampaignResponse reports what a cascading campaign delete removed
type DeleteCampaignResponse struct {
	UUID              string `json:"uuid"`
	RecipientsDeleted int64  `json:"recipients_deleted"`
}

// SiteDTO represents a site in responses
type SiteDTO struct {
	ID        uint   `json:"id"`
	UUID      string `json:"uuid"`
	Handle    string `json:"handle"`
	Name      string `json:"name"`
	Language  string `json:"language"`
	IsPrimary bool   `json:"is_primary"`
}
