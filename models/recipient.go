package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// Recipient is one (campaign, site, contact) invitation target. The same
// invitation code is reused for the email and SMS links since both point at
// the same invitation.
type Recipient struct {
	ID         uint    `gorm:"primaryKey" json:"id"`
	CampaignID uint    `gorm:"not null;index:idx_recipients_campaign_site" json:"campaign_id"`
	SiteID     uint    `gorm:"not null;index:idx_recipients_campaign_site" json:"site_id"`
	Name       string  `gorm:"size:255;not null" json:"name"`
	Email      *string `gorm:"size:320;index:idx_recipients_email" json:"email,omitempty"`
	Phone      *string `gorm:"size:32;index:idx_recipients_phone" json:"phone,omitempty"`

	InvitationCode string `gorm:"size:64;not null;index:idx_recipients_invitation_code" json:"invitation_code"`

	EmailSendDate *time.Time `gorm:"index:idx_recipients_email_send_date" json:"email_send_date,omitempty"`
	EmailOpenDate *time.Time `json:"email_open_date,omitempty"`
	SMSSendDate   *time.Time `gorm:"index:idx_recipients_sms_send_date" json:"sms_send_date,omitempty"`
	SMSOpenDate   *time.Time `json:"sms_open_date,omitempty"`

	SubmissionID         *string    `gorm:"size:128" json:"submission_id,omitempty"`
	InvitationExpiryDate *time.Time `json:"invitation_expiry_date,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_recipients_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Site     *Site     `gorm:"foreignKey:SiteID;references:ID" json:"site,omitempty"`
}

// TableName returns the table name for the model
func (Recipient) TableName() string {
	return "recipients"
}

// BeforeCreate is called before creating a new record
func (r *Recipient) BeforeCreate(tx *gorm.DB) error {
	if r.InvitationCode == "" {
		r.InvitationCode = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (r *Recipient) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	r.UpdatedAt = &now
	return nil
}

// HasPhone reports whether a non-empty phone is stored.
func (r *Recipient) HasPhone() bool {
	return r.Phone != nil && strings.TrimSpace(*r.Phone) != ""
}

// HasEmail reports whether a non-empty email is stored.
func (r *Recipient) HasEmail() bool {
	return r.Email != nil && strings.TrimSpace(*r.Email) != ""
}

// SMSPending reports whether the SMS invitation still needs to go out.
func (r *Recipient) SMSPending() bool {
	return r.HasPhone() && r.SMSSendDate == nil
}

// EmailPending reports whether the email invitation still needs to go out.
func (r *Recipient) EmailPending() bool {
	return r.HasEmail() && r.EmailSendDate == nil
}

// Submitted reports whether a form submission has been correlated.
func (r *Recipient) Submitted() bool {
	return r.SubmissionID != nil && *r.SubmissionID != ""
}

// Expired reports whether the invitation expiry has passed without a
// submission.
func (r *Recipient) Expired() bool {
	return !r.Submitted() && utils.IsExpiredPtr(r.InvitationExpiryDate)
}

// RecipientFilter represents filter criteria for recipients
type RecipientFilter struct {
	ID             *uint      `json:"id,omitempty"`
	CampaignID     *uint      `json:"campaign_id,omitempty"`
	SiteID         *uint      `json:"site_id,omitempty"`
	Email          *string    `json:"email,omitempty"`
	Phone          *string    `json:"phone,omitempty"`
	InvitationCode *string    `json:"invitation_code,omitempty"`
	HasSubmission  *bool      `json:"has_submission,omitempty"`
	CreatedAfter   *time.Time `json:"created_after,omitempty"`
	CreatedBefore  *time.Time `json:"created_before,omitempty"`
}
