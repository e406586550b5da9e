// Package models contains domain entities and business models for the invitation service
package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// Site represents one market/language surface recipients are scoped to.
type Site struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_sites_uuid" json:"uuid"`
	Handle    string    `gorm:"size:64;not null;uniqueIndex:uk_sites_handle" json:"handle"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Language  string    `gorm:"size:16;not null" json:"language"`
	IsPrimary bool      `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');not null" json:"updated_at"`
}

// TableName returns the table name for the model
func (Site) TableName() string {
	return "sites"
}

// BeforeCreate is called before creating a new record
func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// SiteFilter represents filter criteria for sites
type SiteFilter struct {
	ID        *uint      `json:"id,omitempty"`
	UUID      *uuid.UUID `json:"uuid,omitempty"`
	Handle    *string    `json:"handle,omitempty"`
	Language  *string    `json:"language,omitempty"`
	IsPrimary *bool      `json:"is_primary,omitempty"`
}
