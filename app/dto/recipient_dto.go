package dto

import (
	"time"
)

// CreateRecipientRequest represents the request to add one recipient manually
type CreateRecipientRequest struct {
	CampaignUUID string  `json:"-"`
	SiteHandle   string  `json:"site_handle" validate:"required,max=64"`
	Name         string  `json:"name" validate:"required,min=1,max=255"`
	Email        *string `json:"email,omitempty" validate:"omitempty,email,max=320"`
	Phone        *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Country      *string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// RecipientDTO represents a recipient in responses
type RecipientDTO struct {
	ID                   uint       `json:"id"`
	CampaignID           uint       `json:"campaign_id"`
	SiteID               uint       `json:"site_id"`
	Name                 string     `json:"name"`
	Email                *string    `json:"email,omitempty"`
	Phone                *string    `json:"phone,omitempty"`
	InvitationCode       string     `json:"invitation_code"`
	EmailSendDate        *time.Time `json:"email_send_date,omitempty"`
	EmailOpenDate        *time.Time `json:"email_open_date,omitempty"`
	SMSSendDate          *time.Time `json:"sms_send_date,omitempty"`
	SMSOpenDate          *time.Time `json:"sms_open_date,omitempty"`
	SubmissionID         *string    `json:"submission_id,omitempty"`
	InvitationExpiryDate *time.Time `json:"invitation_expiry_date,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// ListRecipientsRequest represents recipient list filters
type ListRecipientsRequest struct {
	CampaignUUID string `json:"-"`
	SiteHandle   string `query:"site" validate:"required,max=64"`
	Page         int    `query:"page" validate:"omitempty,min=1"`
	PageSize     int    `query:"page_size" validate:"omitempty,min=1,max=500"`
}

// ListRecipientsResponse represents a page of recipients
type ListRecipientsResponse struct {
	Items []RecipientDTO `json:"items"`
	Total int64          `json:"total"`
}

// BulkDeleteRecipientsRequest represents the request to delete many recipients
type BulkDeleteRecipientsRequest struct {
	CampaignUUID string `json:"-"`
	IDs          []uint `json:"ids" validate:"required,min=1,dive,min=1"`
}

// BulkDeleteRecipientsResponse reports how many recipients were removed
type BulkDeleteRecipientsResponse struct {
	Deleted int64 `json:"deleted"`
}

// ExportRecipientsRequest represents the export request
type ExportRecipientsRequest struct {
	CampaignUUID string `json:"-"`
	SiteHandle   string `query:"site" validate:"required,max=64"`
	Format       string `query:"format" validate:"omitempty,oneof=csv json xlsx"`
}

// ExportRecipientsResult carries rendered export bytes plus metadata
type ExportRecipientsResult struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// SubmissionEventRequest correlates an external form submission with a
// recipient via its invitation code
type SubmissionEventRequest struct {
	CampaignUUID   string `json:"-"`
	SiteHandle     string `json:"site_handle" validate:"required,max=64"`
	InvitationCode string `json:"invitation_code" validate:"required,max=64"`
	SubmissionID   string `json:"submission_id" validate:"required,max=128"`
}

// OpenTrackingRequest records an email or SMS open beacon hit
type OpenTrackingRequest struct {
	CampaignUUID   string `json:"-"`
	SiteHandle     string `json:"-"`
	InvitationCode string `json:"-"`
	Channel        string `json:"-"`
}
