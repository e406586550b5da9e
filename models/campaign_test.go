package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignContentFor(t *testing.T) {
	campaign := &Campaign{
		Contents: []CampaignContent{
			{SiteID: 1, SMSBody: "main body"},
			{SiteID: 2, SMSBody: "secondary body"},
		},
	}

	content := campaign.ContentFor(2)
	require.NotNil(t, content)
	assert.Equal(t, "secondary body", content.SMSBody)

	assert.Nil(t, campaign.ContentFor(99))
	assert.Nil(t, (&Campaign{}).ContentFor(1))
}

func TestCampaignContentTemplates(t *testing.T) {
	t.Run("HasSMSTemplate", func(t *testing.T) {
		assert.False(t, (&CampaignContent{}).HasSMSTemplate())
		assert.False(t, (&CampaignContent{SMSBody: "   "}).HasSMSTemplate())
		assert.True(t, (&CampaignContent{SMSBody: "Hello {name}"}).HasSMSTemplate())
	})

	t.Run("HasEmailTemplate", func(t *testing.T) {
		assert.False(t, (&CampaignContent{}).HasEmailTemplate())
		assert.False(t, (&CampaignContent{EmailBody: "\n\t"}).HasEmailTemplate())
		assert.True(t, (&CampaignContent{EmailBody: "<p>Hello</p>"}).HasEmailTemplate())
	})
}

func TestDispatchTaskStates(t *testing.T) {
	t.Run("Terminal", func(t *testing.T) {
		assert.False(t, (&DispatchTask{Status: DispatchTaskStatusPending}).Terminal())
		assert.False(t, (&DispatchTask{Status: DispatchTaskStatusRunning}).Terminal())
		assert.True(t, (&DispatchTask{Status: DispatchTaskStatusSucceeded}).Terminal())
		assert.True(t, (&DispatchTask{Status: DispatchTaskStatusFailed}).Terminal())
		assert.True(t, (&DispatchTask{Status: DispatchTaskStatusCancelled}).Terminal())
	})

	t.Run("Cancellable", func(t *testing.T) {
		assert.True(t, (&DispatchTask{Status: DispatchTaskStatusPending}).Cancellable())
		assert.False(t, (&DispatchTask{Status: DispatchTaskStatusRunning}).Cancellable())
		assert.False(t, (&DispatchTask{Status: DispatchTaskStatusCancelled}).Cancellable())
	})
}
