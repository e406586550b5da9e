package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// CampaignType distinguishes what kind of drive a campaign runs.
type CampaignType string

const (
	CampaignTypeSurvey       CampaignType = "survey"
	CampaignTypeNotification CampaignType = "notification"
)

// String returns the string representation of the type
func (t CampaignType) String() string {
	return string(t)
}

// Valid checks if the type is valid
func (t CampaignType) Valid() bool {
	switch t {
	case CampaignTypeSurvey, CampaignTypeNotification:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for CampaignType
func (t *CampaignType) Scan(value any) error {
	if value == nil {
		*t = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*t = CampaignType(v)
	case []byte:
		*t = CampaignType(string(v))
	default:
		return fmt.Errorf("cannot scan %T into CampaignType", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for CampaignType
func (t CampaignType) Value() (driver.Value, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid CampaignType: %s", t)
	}
	return string(t), nil
}

// Campaign represents one invitation drive. Translatable content lives on
// CampaignContent rows, one per site.
type Campaign struct {
	ID      uint         `gorm:"primaryKey" json:"id"`
	UUID    uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:uk_campaigns_uuid" json:"uuid"`
	Name    string       `gorm:"size:255;not null" json:"name"`
	Type    CampaignType `gorm:"size:32;not null;default:'survey';index:idx_campaigns_type" json:"type"`
	FormID  *string      `gorm:"size:128" json:"form_id,omitempty"`
	Enabled bool         `gorm:"not null;default:true;index:idx_campaigns_enabled" json:"enabled"`

	// ISO-8601 periods, e.g. "P3D" or "PT12H". Nil disables the behavior.
	InvitationDelayPeriod  *string `gorm:"size:32" json:"invitation_delay_period,omitempty"`
	InvitationExpiryPeriod *string `gorm:"size:32" json:"invitation_expiry_period,omitempty"`

	SMSProviderHandle *string `gorm:"size:64" json:"sms_provider_handle,omitempty"`
	SMSSenderHandle   *string `gorm:"size:64" json:"sms_sender_handle,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_campaigns_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Contents   []CampaignContent `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"contents,omitempty"`
	Recipients []Recipient       `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE" json:"recipients,omitempty"`
}

// TableName returns the table name for the model
func (Campaign) TableName() string {
	return "campaigns"
}

// BeforeCreate is called before creating a new record
func (c *Campaign) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.Type == "" {
		c.Type = CampaignTypeSurvey
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *Campaign) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// ContentFor returns the content row for a site, or nil when none exists.
func (c *Campaign) ContentFor(siteID uint) *CampaignContent {
	for i := range c.Contents {
		if c.Contents[i].SiteID == siteID {
			return &c.Contents[i]
		}
	}
	return nil
}

// CampaignFilter represents filter criteria for campaigns
type CampaignFilter struct {
	ID            *uint         `json:"id,omitempty"`
	UUID          *uuid.UUID    `json:"uuid,omitempty"`
	Name          *string       `json:"name,omitempty"`
	Type          *CampaignType `json:"type,omitempty"`
	Enabled       *bool         `json:"enabled,omitempty"`
	CreatedAfter  *time.Time    `json:"created_after,omitempty"`
	CreatedBefore *time.Time    `json:"created_before,omitempty"`
}

// CampaignContent holds the translatable invitation content for one
// (campaign, site) pair.
type CampaignContent struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	CampaignID   uint       `gorm:"not null;uniqueIndex:uk_campaign_contents_campaign_site;index:idx_campaign_contents_campaign_id" json:"campaign_id"`
	SiteID       uint       `gorm:"not null;uniqueIndex:uk_campaign_contents_campaign_site" json:"site_id"`
	Enabled      bool       `gorm:"not null;default:true" json:"enabled"`
	EmailSubject string     `gorm:"size:512" json:"email_subject"`
	EmailBody    string     `gorm:"type:text" json:"email_body"`
	SMSBody      string     `gorm:"type:text" json:"sms_body"`
	CreatedAt    time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
	Site     *Site     `gorm:"foreignKey:SiteID;references:ID" json:"site,omitempty"`
}

// TableName returns the table name for the model
func (CampaignContent) TableName() string {
	return "campaign_contents"
}

// BeforeCreate is called before creating a new record
func (c *CampaignContent) BeforeCreate(tx *gorm.DB) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (c *CampaignContent) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	c.UpdatedAt = &now
	return nil
}

// HasSMSTemplate reports whether the SMS body is usable for dispatch.
func (c *CampaignContent) HasSMSTemplate() bool {
	return strings.TrimSpace(c.SMSBody) != ""
}

// HasEmailTemplate reports whether the email template is usable for dispatch.
func (c *CampaignContent) HasEmailTemplate() bool {
	return strings.TrimSpace(c.EmailBody) != ""
}

// CampaignContentFilter represents filter criteria for campaign content
type CampaignContentFilter struct {
	ID         *uint `json:"id,omitempty"`
	CampaignID *uint `json:"campaign_id,omitempty"`
	SiteID     *uint `json:"site_id,omitempty"`
	Enabled    *bool `json:"enabled,omitempty"`
}
