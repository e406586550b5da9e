package businessflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	testingutil "github.com/invitewave/invitewave/testing"
)

func TestAnalyticsRefresh(t *testing.T) {
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
	ctx := testingutil.CreateTestContext()

	campaignRepo := repository.NewCampaignRepository(testDB.DB)
	siteRepo := repository.NewSiteRepository(testDB.DB)
	recipientRepo := repository.NewRecipientRepository(testDB.DB)
	statsRepo := repository.NewCampaignStatsRepository(testDB.DB)
	flow := NewAnalyticsFlow(campaignRepo, siteRepo, recipientRepo, statsRepo, testDB.DB)

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(site)
	require.NoError(t, err)

	_, err = fixtures.CreateTestRecipients(campaign, site, 2)
	require.NoError(t, err)
	sent, err := fixtures.CreateSentRecipient(campaign, site)
	require.NoError(t, err)
	require.NoError(t, recipientRepo.SetSubmissionID(ctx, sent.ID, "sub-42"))

	req := &dto.RefreshAnalyticsRequest{
		CampaignUUID: campaign.UUID.String(),
		SiteHandle:   site.Handle,
	}

	first, err := flow.Refresh(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 3, first.TotalRecipients)
	assert.Equal(t, 1, first.EmailsSent)
	assert.Equal(t, 1, first.SMSSent)
	assert.Equal(t, 1, first.Submissions)
	assert.Zero(t, first.Expired)

	// A second refresh with unchanged data recomputes from scratch and must
	// land on the same counters.
	second, err := flow.Refresh(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// Exactly one snapshot row exists for the scope after both runs.
	count, err := statsRepo.Count(ctx, models.CampaignStatsFilter{CampaignID: &campaign.ID, SiteID: &site.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
