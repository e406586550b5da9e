package models

import (
	"time"

	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// CampaignStats is the per-day analytics snapshot for one (campaign, site,
// date). Counters are recomputed from the recipient set, never incremented,
// so a refresh is idempotent. Rates are derived on read and never stored.
type CampaignStats struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CampaignID uint      `gorm:"not null;uniqueIndex:uk_campaign_stats_scope" json:"campaign_id"`
	SiteID     uint      `gorm:"not null;uniqueIndex:uk_campaign_stats_scope" json:"site_id"`
	Date       time.Time `gorm:"type:date;not null;uniqueIndex:uk_campaign_stats_scope;index:idx_campaign_stats_date" json:"date"`

	TotalRecipients int `gorm:"not null;default:0" json:"total_recipients"`
	EmailsSent      int `gorm:"not null;default:0" json:"emails_sent"`
	SMSSent         int `gorm:"not null;default:0" json:"sms_sent"`
	EmailsOpened    int `gorm:"not null;default:0" json:"emails_opened"`
	SMSOpened       int `gorm:"not null;default:0" json:"sms_opened"`
	Submissions     int `gorm:"not null;default:0" json:"submissions"`
	Expired         int `gorm:"not null;default:0" json:"expired"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"updated_at"`
}

// TableName returns the table name for the model
func (CampaignStats) TableName() string {
	return "campaign_stats"
}

// BeforeCreate is called before creating a new record
func (s *CampaignStats) BeforeCreate(tx *gorm.DB) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

func ratePercent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	rate := float64(part) / float64(whole) * 100
	if rate > 100 {
		return 100
	}
	return rate
}

// EmailOpenRate returns opened-over-sent as a percentage capped at 100.
func (s *CampaignStats) EmailOpenRate() float64 {
	return ratePercent(s.EmailsOpened, s.EmailsSent)
}

// SMSOpenRate returns opened-over-sent as a percentage capped at 100.
func (s *CampaignStats) SMSOpenRate() float64 {
	return ratePercent(s.SMSOpened, s.SMSSent)
}

// ConversionRate returns submissions over total recipients as a percentage
// capped at 100.
func (s *CampaignStats) ConversionRate() float64 {
	return ratePercent(s.Submissions, s.TotalRecipients)
}

// CampaignStatsFilter represents filter criteria for analytics snapshots
type CampaignStatsFilter struct {
	ID         *uint      `json:"id,omitempty"`
	CampaignID *uint      `json:"campaign_id,omitempty"`
	SiteID     *uint      `json:"site_id,omitempty"`
	DateFrom   *time.Time `json:"date_from,omitempty"`
	DateTo     *time.Time `json:"date_to,omitempty"`
}
