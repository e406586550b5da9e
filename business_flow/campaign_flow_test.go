package businessflow

import (
	"testing"

	"github.com/invitewave/invitewave/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNativeCampaignAdapter(t *testing.T) {
	expiry := "P3D"
	provider := "twilio"
	campaign := &models.Campaign{
		ID:                     11,
		Enabled:                true,
		InvitationExpiryPeriod: &expiry,
		SMSProviderHandle:      &provider,
		Contents: []models.CampaignContent{
			{CampaignID: 11, SiteID: 1, Enabled: true, EmailSubject: "Invite", EmailBody: "<p>Hi {name}</p>", SMSBody: "Hi {name}"},
			{CampaignID: 11, SiteID: 2, Enabled: false, SMSBody: "Hallo {name}"},
		},
	}
	var like CampaignLike = &nativeCampaign{campaign: campaign}

	assert.Equal(t, uint(11), like.CampaignID())
	assert.True(t, like.IsEnabled())

	t.Run("site enablement follows the content row", func(t *testing.T) {
		assert.True(t, like.EnabledForSite(1))
		assert.False(t, like.EnabledForSite(2))
		assert.False(t, like.EnabledForSite(3))
	})

	t.Run("templates come from the site content", func(t *testing.T) {
		subject, body, sms, ok := like.TemplatesForSite(1)
		require.True(t, ok)
		assert.Equal(t, "Invite", subject)
		assert.Equal(t, "<p>Hi {name}</p>", body)
		assert.Equal(t, "Hi {name}", sms)

		_, _, _, ok = like.TemplatesForSite(3)
		assert.False(t, ok)
	})

	t.Run("periods and handles pass through", func(t *testing.T) {
		require.NotNil(t, like.ExpiryPeriod())
		assert.Equal(t, "P3D", *like.ExpiryPeriod())
		assert.Nil(t, like.DelayPeriod())

		p, s := like.ProviderHandles()
		require.NotNil(t, p)
		assert.Equal(t, "twilio", *p)
		assert.Nil(t, s)
	})
}

func TestLegacyEntryCampaignAdapter(t *testing.T) {
	like := NewLegacyEntryCampaign(42, true,
		map[string]string{
			"invitation_expiry_period": "P7D",
			"invitation_delay_period":  "",
			"sms_provider":             "cm",
			"sms_sender":               "Invitewave",
		},
		map[uint]map[string]string{
			1: {"email_subject": "Invite", "email_body": "<p>Hi {name}</p>", "sms_body": "Hi {name}"},
			2: {"enabled": "false", "sms_body": "Hallo {name}"},
		},
	)

	assert.Equal(t, uint(42), like.CampaignID())
	assert.True(t, like.IsEnabled())

	t.Run("site without entry is disabled", func(t *testing.T) {
		assert.True(t, like.EnabledForSite(1))
		assert.False(t, like.EnabledForSite(3))
	})

	t.Run("explicit false entry disables the site", func(t *testing.T) {
		assert.False(t, like.EnabledForSite(2))
	})

	t.Run("templates come from the per site entry", func(t *testing.T) {
		subject, body, sms, ok := like.TemplatesForSite(1)
		require.True(t, ok)
		assert.Equal(t, "Invite", subject)
		assert.Equal(t, "<p>Hi {name}</p>", body)
		assert.Equal(t, "Hi {name}", sms)

		_, _, sms, ok = like.TemplatesForSite(2)
		require.True(t, ok)
		assert.Equal(t, "Hallo {name}", sms)

		_, _, _, ok = like.TemplatesForSite(3)
		assert.False(t, ok)
	})

	t.Run("empty values never become periods or handles", func(t *testing.T) {
		require.NotNil(t, like.ExpiryPeriod())
		assert.Equal(t, "P7D", *like.ExpiryPeriod())
		assert.Nil(t, like.DelayPeriod())

		p, s := like.ProviderHandles()
		require.NotNil(t, p)
		assert.Equal(t, "cm", *p)
		require.NotNil(t, s)
		assert.Equal(t, "Invitewave", *s)
	})

	t.Run("disabled entry payload", func(t *testing.T) {
		off := NewLegacyEntryCampaign(43, false, nil, nil)
		assert.False(t, off.IsEnabled())
		assert.False(t, off.EnabledForSite(1))
		_, _, _, ok := off.TemplatesForSite(1)
		assert.False(t, ok)
	})
}
