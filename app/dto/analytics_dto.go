package dto

// RefreshAnalyticsRequest recomputes the snapshot for one campaign/site/day
type RefreshAnalyticsRequest struct {
	CampaignUUID string  `json:"-"`
	SiteHandle   string  `json:"site_handle" validate:"required,max=64"`
	Date         *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// CampaignStatsDTO represents one analytics snapshot with derived rates
type CampaignStatsDTO struct {
	CampaignID      uint    `json:"campaign_id"`
	SiteID          uint    `json:"site_id"`
	Date            string  `json:"date"`
	TotalRecipients int     `json:"total_recipients"`
	EmailsSent      int     `json:"emails_sent"`
	SMSSent         int     `json:"sms_sent"`
	EmailsOpened    int     `json:"emails_opened"`
	SMSOpened       int     `json:"sms_opened"`
	Submissions     int     `json:"submissions"`
	Expired         int     `json:"expired"`
	EmailOpenRate   float64 `json:"email_open_rate"`
	SMSOpenRate     float64 `json:"sms_open_rate"`
	ConversionRate  float64 `json:"conversion_rate"`
}

// GetAnalyticsRequest reads snapshots for a date range
type GetAnalyticsRequest struct {
	CampaignUUID string `json:"-"`
	SiteHandle   string `query:"site" validate:"required,max=64"`
	From         string `query:"from" validate:"required,datetime=2006-01-02"`
	To           string `query:"to" validate:"required,datetime=2006-01-02"`
}

// GetAnalyticsResponse represents a range of snapshots
type GetAnalyticsResponse struct {
	Items []CampaignStatsDTO `json:"items"`
}
