package models

import (
	"encoding/json"
	"time"
)

// ActivitySource tells where an activity entry originated.
const (
	ActivitySourceSystem = "system"
	ActivitySourceQueue  = "queue"
	ActivitySourceCP     = "cp"
)

// ActivityLog is an append-only record of dispatch, import and deletion
// events. Rows are never updated; old rows are trimmed by the retention job.
type ActivityLog struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	ActorUserID *uint           `gorm:"index:idx_activity_actor_user_id" json:"actor_user_id,omitempty"`
	CampaignID  *uint           `gorm:"index:idx_activity_campaign_id" json:"campaign_id,omitempty"`
	RecipientID *uint           `gorm:"index:idx_activity_recipient_id" json:"recipient_id,omitempty"`
	Action      string          `gorm:"size:64;not null;index:idx_activity_action" json:"action"`
	Source      string          `gorm:"size:16;not null;default:'system'" json:"source"`
	Summary     string          `gorm:"type:text;not null" json:"summary"`
	Details     json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time       `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_activity_created_at" json:"created_at"`
}

// TableName returns the table name for the model
func (ActivityLog) TableName() string {
	return "activity_log"
}

// Activity action constants
const (
	ActivityActionCampaignCreated       = "campaign_created"
	ActivityActionCampaignDeleted       = "campaign_deleted"
	ActivityActionRecipientsImported    = "recipients_imported"
	ActivityActionInvitationsQueued     = "campaign_invitations_queued"
	ActivityActionInvitationsSentBatch  = "invitations_sent_batch"
	ActivityActionRecipientDeleted      = "recipient_deleted"
	ActivityActionRecipientsDeletedBulk = "recipients_deleted_bulk"
	ActivityActionSubmissionReceived    = "submission_received"
	ActivityActionActivityLogCleared    = "activity_log_cleared"
)

// ActivityLogFilter represents filter criteria for activity log queries
type ActivityLogFilter struct {
	ID            *uint
	ActorUserID   *uint
	CampaignID    *uint
	RecipientID   *uint
	Action        *string
	Source        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// IsDispatchEvent reports whether the entry came out of the dispatch queue.
func (a *ActivityLog) IsDispatchEvent() bool {
	return a.Action == ActivityActionInvitationsQueued ||
		a.Action == ActivityActionInvitationsSentBatch
}
