package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/invitewave/invitewave/utils"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// DispatchTaskStatus represents the lifecycle state of a queued batch.
type DispatchTaskStatus string

const (
	DispatchTaskStatusPending   DispatchTaskStatus = "pending"
	DispatchTaskStatusRunning   DispatchTaskStatus = "running"
	DispatchTaskStatusSucceeded DispatchTaskStatus = "succeeded"
	DispatchTaskStatusFailed    DispatchTaskStatus = "failed"
	DispatchTaskStatusCancelled DispatchTaskStatus = "cancelled"
)

// String returns the string representation of the status
func (s DispatchTaskStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s DispatchTaskStatus) Valid() bool {
	switch s {
	case DispatchTaskStatusPending, DispatchTaskStatusRunning,
		DispatchTaskStatusSucceeded, DispatchTaskStatusFailed,
		DispatchTaskStatusCancelled:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for DispatchTaskStatus
func (s *DispatchTaskStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = DispatchTaskStatus(v)
	case []byte:
		*s = DispatchTaskStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into DispatchTaskStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for DispatchTaskStatus
func (s DispatchTaskStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DispatchTaskStatus: %s", s)
	}
	return string(s), nil
}

// DispatchTask is one queued batch of recipients to send invitations to.
// RecipientIDs partitions never overlap across the tasks of one planning run.
type DispatchTask struct {
	ID           uint               `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:uk_dispatch_tasks_uuid" json:"uuid"`
	CampaignID   uint               `gorm:"not null;index:idx_dispatch_tasks_campaign_id" json:"campaign_id"`
	SiteID       uint               `gorm:"not null" json:"site_id"`
	RecipientIDs pq.Int64Array      `gorm:"type:bigint[];not null" json:"recipient_ids"`
	SendSMS      bool               `gorm:"not null;default:false" json:"send_sms"`
	SendEmail    bool               `gorm:"not null;default:false" json:"send_email"`
	Status       DispatchTaskStatus `gorm:"size:16;not null;default:'pending';index:idx_dispatch_tasks_status_scheduled" json:"status"`
	Attempts     int                `gorm:"not null;default:0" json:"attempts"`
	ScheduledAt  time.Time          `gorm:"not null;index:idx_dispatch_tasks_status_scheduled" json:"scheduled_at"`
	StartedAt    *time.Time         `json:"started_at,omitempty"`
	FinishedAt   *time.Time         `json:"finished_at,omitempty"`
	LastError    *string            `gorm:"type:text" json:"last_error,omitempty"`

	// Progress is processed-over-total within the running batch, 0..1.
	Progress float64 `gorm:"not null;default:0" json:"progress"`

	ActorUserID *uint `json:"actor_user_id,omitempty"`

	CreatedAt time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_dispatch_tasks_created_at" json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// Relations
	Campaign *Campaign `gorm:"foreignKey:CampaignID;references:ID" json:"campaign,omitempty"`
}

// TableName returns the table name for the model
func (DispatchTask) TableName() string {
	return "dispatch_tasks"
}

// BeforeCreate is called before creating a new record
func (t *DispatchTask) BeforeCreate(tx *gorm.DB) error {
	if t.UUID == uuid.Nil {
		t.UUID = uuid.New()
	}
	if t.Status == "" {
		t.Status = DispatchTaskStatusPending
	}
	if t.ScheduledAt.IsZero() {
		t.ScheduledAt = utils.UTCNow()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = utils.UTCNow()
	}
	return nil
}

// BeforeUpdate is called before updating a record
func (t *DispatchTask) BeforeUpdate(tx *gorm.DB) error {
	now := utils.UTCNow()
	t.UpdatedAt = &now
	return nil
}

// Terminal reports whether the task can no longer run.
func (t *DispatchTask) Terminal() bool {
	return t.Status == DispatchTaskStatusSucceeded ||
		t.Status == DispatchTaskStatusFailed ||
		t.Status == DispatchTaskStatusCancelled
}

// Cancellable reports whether the task is still queued and unstarted.
func (t *DispatchTask) Cancellable() bool {
	return t.Status == DispatchTaskStatusPending
}

// DispatchTaskFilter represents filter criteria for dispatch tasks
type DispatchTaskFilter struct {
	ID            *uint               `json:"id,omitempty"`
	UUID          *uuid.UUID          `json:"uuid,omitempty"`
	CampaignID    *uint               `json:"campaign_id,omitempty"`
	SiteID        *uint               `json:"site_id,omitempty"`
	Status        *DispatchTaskStatus `json:"status,omitempty"`
	CreatedAfter  *time.Time          `json:"created_after,omitempty"`
	CreatedBefore *time.Time          `json:"created_before,omitempty"`
}
