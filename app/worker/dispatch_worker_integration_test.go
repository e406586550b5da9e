package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/app/services"
	businessflow "github.com/invitewave/invitewave/business_flow"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	testingutil "github.com/invitewave/invitewave/testing"
)

// TestDispatchRoundTrip walks one campaign through plan -> worker pass ->
// replan: an SMS-only campaign with one phone-only recipient yields a single
// batch, the worker pass delivers it and records the send date, and a second
// plan finds nothing pending.
func TestDispatchRoundTrip(t *testing.T) {
	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("skipping, test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("failed to teardown test database: %v", err)
		}
	})

	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := context.Background()

	campaignRepo := repository.NewCampaignRepository(testDB.DB)
	contentRepo := repository.NewCampaignContentRepository(testDB.DB)
	siteRepo := repository.NewSiteRepository(testDB.DB)
	recipientRepo := repository.NewRecipientRepository(testDB.DB)
	taskRepo := repository.NewDispatchTaskRepository(testDB.DB)
	statsRepo := repository.NewCampaignStatsRepository(testDB.DB)
	activityRepo := repository.NewActivityLogRepository(testDB.DB)

	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, contentRepo, siteRepo, recipientRepo, activityRepo, testDB.DB)
	analyticsFlow := businessflow.NewAnalyticsFlow(campaignRepo, siteRepo, recipientRepo, statsRepo, testDB.DB)
	activityFlow := businessflow.NewActivityFlow(campaignRepo, activityRepo, config.RetentionConfig{}, testDB.DB)
	dispatchFlow := businessflow.NewDispatchFlow(campaignFlow, campaignRepo, siteRepo, recipientRepo, taskRepo, activityRepo, config.DispatchConfig{BatchSize: 200}, testDB.DB)

	smsMock := services.NewMockSMSService()
	emailMock := services.NewMockEmailService()
	w := NewDispatchWorker(taskRepo, recipientRepo, campaignRepo, activityRepo, analyticsFlow, activityFlow, smsMock, emailMock, testDB.DB, config.DispatchConfig{}, config.LoggingConfig{})

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(site)
	require.NoError(t, err)

	// SMS template only: blank out the fixture's email template.
	require.NoError(t, testDB.DB.Model(&models.CampaignContent{}).
		Where("campaign_id = ? AND site_id = ?", campaign.ID, site.ID).
		Updates(map[string]any{"email_subject": "", "email_body": ""}).Error)

	// One recipient with a phone and no email.
	phone := "+31612345678"
	recipient := &models.Recipient{
		CampaignID: campaign.ID,
		SiteID:     site.ID,
		Name:       "Alice",
		Phone:      &phone,
	}
	require.NoError(t, testDB.DB.Create(recipient).Error)

	req := &dto.DispatchCampaignRequest{
		CampaignUUID: campaign.UUID.String(),
		SiteHandle:   site.Handle,
		SendSMS:      true,
		SendEmail:    true,
	}

	resp, err := dispatchFlow.Dispatch(ctx, req, &businessflow.ClientMetadata{})
	require.NoError(t, err)
	assert.Empty(t, resp.Reason)
	assert.Equal(t, 1, resp.BatchesEnqueued)
	assert.Equal(t, 1, resp.RecipientsTotal)

	// The email channel had no template, so the queued task is SMS-only.
	tasks, err := taskRepo.ListByCampaign(ctx, campaign.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.True(t, tasks[0].SendSMS)
	assert.False(t, tasks[0].SendEmail)

	w.runOnce(ctx)

	sent := smsMock.GetSentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, phone, sent[0].Recipient)
	assert.Contains(t, sent[0].Message, "Alice")
	assert.Empty(t, emailMock.GetSentEmails())

	delivered, err := recipientRepo.ByID(ctx, recipient.ID)
	require.NoError(t, err)
	assert.NotNil(t, delivered.SMSSendDate)
	assert.Nil(t, delivered.EmailSendDate)

	done, err := taskRepo.ByID(ctx, tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.DispatchTaskStatusSucceeded, done.Status)
	assert.Equal(t, float64(1), done.Progress)

	// Nothing left to send, so replanning enqueues nothing.
	resp, err = dispatchFlow.Dispatch(ctx, req, &businessflow.ClientMetadata{})
	require.NoError(t, err)
	assert.Equal(t, businessflow.DispatchReasonNothingPending, resp.Reason)
	assert.Zero(t, resp.BatchesEnqueued)
}
