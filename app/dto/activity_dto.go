package dto

import (
	"encoding/json"
	"time"
)

// ActivityEntryDTO represents one activity log entry in responses
type ActivityEntryDTO struct {
	ID          uint            `json:"id"`
	ActorUserID *uint           `json:"actor_user_id,omitempty"`
	CampaignID  *uint           `json:"campaign_id,omitempty"`
	RecipientID *uint           `json:"recipient_id,omitempty"`
	Action      string          `json:"action"`
	Source      string          `json:"source"`
	Summary     string          `json:"summary"`
	Details     json.RawMessage `json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ListActivityRequest represents activity log list filters
type ListActivityRequest struct {
	CampaignUUID *string `query:"campaign" validate:"omitempty,uuid"`
	Action       *string `query:"action" validate:"omitempty,max=64"`
	Source       *string `query:"source" validate:"omitempty,oneof=system queue cp"`
	Page         int     `query:"page" validate:"omitempty,min=1"`
	PageSize     int     `query:"page_size" validate:"omitempty,min=1,max=200"`
}

// ListActivityResponse represents a page of activity entries
type ListActivityResponse struct {
	Items []ActivityEntryDTO `json:"items"`
	Total int64              `json:"total"`
}

// ClearActivityResponse reports how many entries a bulk clear removed
type ClearActivityResponse struct {
	Cleared int64 `json:"cleared"`
}
