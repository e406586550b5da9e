package businessflow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitewave/invitewave/models"
)

func TestBuildRecipientExpiry(t *testing.T) {
	strPtr := func(s string) *string { return &s }

	t.Run("ExpiryDerivedFromCampaignPeriod", func(t *testing.T) {
		period := "P3D"
		campaign := &models.Campaign{ID: 1, InvitationExpiryPeriod: &period}

		before := time.Now().UTC()
		r := buildRecipient(campaign, 1, "Alice", strPtr("alice@example.com"), nil)
		after := time.Now().UTC()

		require.NotNil(t, r.InvitationExpiryDate)
		assert.True(t, !r.InvitationExpiryDate.Before(before.Add(72*time.Hour)))
		assert.True(t, !r.InvitationExpiryDate.After(after.Add(72*time.Hour)))
	})

	t.Run("ExpirySnapshotAtCreation", func(t *testing.T) {
		// Changing the campaign's period afterwards must not move the
		// expiry of recipients that already exist.
		period := "P1D"
		campaign := &models.Campaign{ID: 1, InvitationExpiryPeriod: &period}

		r := buildRecipient(campaign, 1, "Alice", strPtr("alice@example.com"), nil)
		require.NotNil(t, r.InvitationExpiryDate)
		snapshot := *r.InvitationExpiryDate

		newPeriod := "P30D"
		campaign.InvitationExpiryPeriod = &newPeriod

		assert.Equal(t, snapshot, *r.InvitationExpiryDate)
		assert.WithinDuration(t, time.Now().UTC().Add(24*time.Hour), snapshot, time.Minute)
	})

	t.Run("NoPeriodNoExpiry", func(t *testing.T) {
		r := buildRecipient(&models.Campaign{ID: 1}, 1, "Alice", nil, strPtr("+31612345678"))
		assert.Nil(t, r.InvitationExpiryDate)
	})

	t.Run("BlankPeriodNoExpiry", func(t *testing.T) {
		campaign := &models.Campaign{ID: 1, InvitationExpiryPeriod: strPtr("  ")}
		r := buildRecipient(campaign, 1, "Alice", nil, nil)
		assert.Nil(t, r.InvitationExpiryDate)
	})

	t.Run("UnparsablePeriodNoExpiry", func(t *testing.T) {
		campaign := &models.Campaign{ID: 1, InvitationExpiryPeriod: strPtr("3 days")}
		r := buildRecipient(campaign, 1, "Alice", nil, nil)
		assert.Nil(t, r.InvitationExpiryDate)
	})
}
