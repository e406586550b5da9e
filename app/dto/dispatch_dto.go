package dto

import (
	"time"
)

// DispatchCampaignRequest triggers invitation planning for one campaign/site
type DispatchCampaignRequest struct {
	CampaignUUID string `json:"-"`
	SiteHandle   string `json:"site_handle" validate:"required,max=64"`
	SendSMS      bool   `json:"send_sms"`
	SendEmail    bool   `json:"send_email"`
	ActorUserID  *uint  `json:"-"`
}

// DispatchCampaignResponse reports what planning enqueued
type DispatchCampaignResponse struct {
	BatchesEnqueued int    `json:"batches_enqueued"`
	RecipientsTotal int    `json:"recipients_total"`
	Reason          string `json:"reason,omitempty"`
}

// DispatchTaskDTO represents one queued batch in responses
type DispatchTaskDTO struct {
	ID             uint       `json:"id"`
	UUID           string     `json:"uuid"`
	CampaignID     uint       `json:"campaign_id"`
	SiteID         uint       `json:"site_id"`
	RecipientCount int        `json:"recipient_count"`
	SendSMS        bool       `json:"send_sms"`
	SendEmail      bool       `json:"send_email"`
	Status         string     `json:"status"`
	Attempts       int        `json:"attempts"`
	Progress       float64    `json:"progress"`
	ScheduledAt    time.Time  `json:"scheduled_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	LastError      *string    `json:"last_error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ListDispatchTasksRequest represents task list filters
type ListDispatchTasksRequest struct {
	CampaignUUID string `json:"-"`
	Page         int    `query:"page" validate:"omitempty,min=1"`
	PageSize     int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// ListDispatchTasksResponse represents a page of dispatch tasks
type ListDispatchTasksResponse struct {
	Items []DispatchTaskDTO `json:"items"`
	Total int64             `json:"total"`
}

// CancelDispatchTaskResponse reports whether a queued task was cancelled
type CancelDispatchTaskResponse struct {
	Cancelled bool `json:"cancelled"`
}
