package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func TestRecipientContactHelpers(t *testing.T) {
	t.Run("HasPhone", func(t *testing.T) {
		assert.False(t, (&Recipient{}).HasPhone())
		assert.False(t, (&Recipient{Phone: strPtr("")}).HasPhone())
		assert.False(t, (&Recipient{Phone: strPtr("   ")}).HasPhone())
		assert.True(t, (&Recipient{Phone: strPtr("+31612345678")}).HasPhone())
	})

	t.Run("HasEmail", func(t *testing.T) {
		assert.False(t, (&Recipient{}).HasEmail())
		assert.False(t, (&Recipient{Email: strPtr(" ")}).HasEmail())
		assert.True(t, (&Recipient{Email: strPtr("alice@example.com")}).HasEmail())
	})
}

func TestRecipientPendingHelpers(t *testing.T) {
	now := time.Now().UTC()

	t.Run("SMSPending", func(t *testing.T) {
		r := &Recipient{Phone: strPtr("+31612345678")}
		assert.True(t, r.SMSPending())

		r.SMSSendDate = timePtr(now)
		assert.False(t, r.SMSPending())

		// No phone means nothing to send.
		assert.False(t, (&Recipient{}).SMSPending())
	})

	t.Run("EmailPending", func(t *testing.T) {
		r := &Recipient{Email: strPtr("alice@example.com")}
		assert.True(t, r.EmailPending())

		r.EmailSendDate = timePtr(now)
		assert.False(t, r.EmailPending())

		assert.False(t, (&Recipient{}).EmailPending())
	})
}

func TestRecipientSubmitted(t *testing.T) {
	assert.False(t, (&Recipient{}).Submitted())
	assert.False(t, (&Recipient{SubmissionID: strPtr("")}).Submitted())
	assert.True(t, (&Recipient{SubmissionID: strPtr("sub-42")}).Submitted())
}

func TestRecipientExpired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(time.Hour)

	t.Run("NoExpirySet", func(t *testing.T) {
		assert.False(t, (&Recipient{}).Expired())
	})

	t.Run("ExpiryPassed", func(t *testing.T) {
		r := &Recipient{InvitationExpiryDate: timePtr(past)}
		assert.True(t, r.Expired())
	})

	t.Run("ExpiryInFuture", func(t *testing.T) {
		r := &Recipient{InvitationExpiryDate: timePtr(future)}
		assert.False(t, r.Expired())
	})

	t.Run("SubmittedNeverExpires", func(t *testing.T) {
		r := &Recipient{
			InvitationExpiryDate: timePtr(past),
			SubmissionID:         strPtr("sub-42"),
		}
		assert.False(t, r.Expired())
	})
}
