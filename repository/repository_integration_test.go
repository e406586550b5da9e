package repository

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/invitewave/invitewave/models"
	testingutil "github.com/invitewave/invitewave/testing"
)

// setupRepoTestDB provisions an isolated database per test and skips when no
// PostgreSQL server is reachable locally.
func setupRepoTestDB(t *testing.T) *testingutil.TestDB {
	t.Helper()

	testDB, err := testingutil.SetupTestDB()
	if err != nil {
		t.Skipf("skipping, test database unavailable: %v", err)
	}
	t.Cleanup(func() {
		if err := testDB.TeardownTestDB(); err != nil {
			t.Logf("failed to teardown test database: %v", err)
		}
	})
	return testDB
}

func TestCampaignRepository(t *testing.T) {
	testDB := setupRepoTestDB(t)
	repo := NewCampaignRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)

	t.Run("ByUUID", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		found, err := repo.ByUUID(ctx, campaign.UUID.String())
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, campaign.ID, found.ID)
		assert.Equal(t, campaign.Name, found.Name)
	})

	t.Run("ByUUIDNotFound", func(t *testing.T) {
		found, err := repo.ByUUID(ctx, uuid.NewString())
		require.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("ByUUIDInvalid", func(t *testing.T) {
		_, err := repo.ByUUID(ctx, "not-a-uuid")
		assert.Error(t, err)
	})

	t.Run("ByIDWithContents", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		found, err := repo.ByIDWithContents(ctx, campaign.ID)
		require.NoError(t, err)
		require.NotNil(t, found)
		require.Len(t, found.Contents, 1)
		assert.Equal(t, site.ID, found.Contents[0].SiteID)
		assert.True(t, found.Contents[0].HasSMSTemplate())
	})

	t.Run("ListEnabledExcludesDisabled", func(t *testing.T) {
		enabled, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)
		disabled, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		disabled.Enabled = false
		require.NoError(t, repo.Update(ctx, disabled))

		campaigns, err := repo.ListEnabled(ctx)
		require.NoError(t, err)

		ids := make(map[uint]bool, len(campaigns))
		for _, c := range campaigns {
			ids[c.ID] = true
		}
		assert.True(t, ids[enabled.ID])
		assert.False(t, ids[disabled.ID])
	})

	t.Run("Delete", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, campaign.ID))

		found, err := repo.ByID(ctx, campaign.ID)
		require.NoError(t, err)
		assert.Nil(t, found)
	})
}

func TestRecipientRepository(t *testing.T) {
	testDB := setupRepoTestDB(t)
	repo := NewRecipientRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)

	t.Run("ListPendingIDs", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		pending, err := fixtures.CreateTestRecipient(campaign, site)
		require.NoError(t, err)
		sent, err := fixtures.CreateSentRecipient(campaign, site)
		require.NoError(t, err)

		ids, err := repo.ListPendingIDs(ctx, campaign.ID, site.ID, true, true)
		require.NoError(t, err)
		assert.Contains(t, ids, pending.ID)
		assert.NotContains(t, ids, sent.ID)

		// Neither channel requested yields nothing.
		ids, err = repo.ListPendingIDs(ctx, campaign.ID, site.ID, false, false)
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("MarkSMSSentSetOnce", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)
		recipient, err := fixtures.CreateTestRecipient(campaign, site)
		require.NoError(t, err)

		first := time.Now().UTC().Add(-time.Hour)
		require.NoError(t, repo.MarkSMSSent(ctx, recipient.ID, first))

		// A second mark must not overwrite the original timestamp.
		require.NoError(t, repo.MarkSMSSent(ctx, recipient.ID, time.Now().UTC()))

		found, err := repo.ByID(ctx, recipient.ID)
		require.NoError(t, err)
		require.NotNil(t, found.SMSSendDate)
		assert.WithinDuration(t, first, *found.SMSSendDate, time.Second)
		assert.False(t, found.SMSPending())
	})

	t.Run("SetSubmissionID", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)
		recipient, err := fixtures.CreateTestRecipient(campaign, site)
		require.NoError(t, err)

		require.NoError(t, repo.SetSubmissionID(ctx, recipient.ID, "sub-12345"))

		found, err := repo.ByID(ctx, recipient.ID)
		require.NoError(t, err)
		assert.True(t, found.Submitted())
	})

	t.Run("DeleteBulk", func(t *testing.T) {
		campaign, err := fixtures.CreateTestCampaign(site)
		require.NoError(t, err)
		recipients, err := fixtures.CreateTestRecipients(campaign, site, 3)
		require.NoError(t, err)

		ids := []uint{recipients[0].ID, recipients[1].ID}
		deleted, err := repo.DeleteBulk(ctx, ids)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		remaining, err := repo.ListByCampaignSite(ctx, campaign.ID, site.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, remaining, 1)
		assert.Equal(t, recipients[2].ID, remaining[0].ID)
	})
}

func TestDispatchTaskRepository(t *testing.T) {
	testDB := setupRepoTestDB(t)
	repo := NewDispatchTaskRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(site)
	require.NoError(t, err)
	recipients, err := fixtures.CreateTestRecipients(campaign, site, 2)
	require.NoError(t, err)

	t.Run("ListDueSkipsFutureTasks", func(t *testing.T) {
		due, err := fixtures.CreateTestDispatchTask(campaign, site, recipients)
		require.NoError(t, err)

		future, err := fixtures.CreateTestDispatchTask(campaign, site, recipients)
		require.NoError(t, err)
		future.ScheduledAt = time.Now().UTC().Add(time.Hour)
		require.NoError(t, repo.Update(ctx, future))

		tasks, err := repo.ListDue(ctx, time.Now().UTC(), 50)
		require.NoError(t, err)

		ids := make(map[uint]bool, len(tasks))
		for _, task := range tasks {
			ids[task.ID] = true
		}
		assert.True(t, ids[due.ID])
		assert.False(t, ids[future.ID])
	})

	t.Run("CancelQueued", func(t *testing.T) {
		task, err := fixtures.CreateTestDispatchTask(campaign, site, recipients)
		require.NoError(t, err)

		cancelled, err := repo.CancelQueued(ctx, task.ID)
		require.NoError(t, err)
		assert.True(t, cancelled)

		found, err := repo.ByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DispatchTaskStatusCancelled, found.Status)
		assert.NotNil(t, found.FinishedAt)

		// Already terminal, so a second cancel is a no-op.
		cancelled, err = repo.CancelQueued(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, cancelled)
	})

	t.Run("CancelQueuedSkipsRunning", func(t *testing.T) {
		task, err := fixtures.CreateTestDispatchTask(campaign, site, recipients)
		require.NoError(t, err)
		task.Status = models.DispatchTaskStatusRunning
		require.NoError(t, repo.Update(ctx, task))

		cancelled, err := repo.CancelQueued(ctx, task.ID)
		require.NoError(t, err)
		assert.False(t, cancelled)
	})
}

func TestActivityLogRepository(t *testing.T) {
	testDB := setupRepoTestDB(t)
	repo := NewActivityLogRepository(testDB.DB)
	fixtures := testingutil.NewTestFixtures(testDB)
	ctx := testingutil.CreateTestContext()

	site, err := fixtures.CreateTestSite("en", true)
	require.NoError(t, err)
	campaign, err := fixtures.CreateTestCampaign(site)
	require.NoError(t, err)

	t.Run("ListByCampaign", func(t *testing.T) {
		_, err := fixtures.CreateTestActivity(campaign.ID, models.ActivityActionCampaignCreated)
		require.NoError(t, err)
		_, err = fixtures.CreateTestActivity(campaign.ID, models.ActivityActionRecipientsImported)
		require.NoError(t, err)

		entries, err := repo.ListByCampaign(ctx, campaign.ID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
	})

	t.Run("TrimToMaxRows", func(t *testing.T) {
		require.NoError(t, testDB.ClearAllTables())
		site, err = fixtures.CreateTestSite("en", true)
		require.NoError(t, err)
		campaign, err = fixtures.CreateTestCampaign(site)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			_, err := fixtures.CreateTestActivity(campaign.ID, models.ActivityActionInvitationsSentBatch)
			require.NoError(t, err)
		}

		deleted, err := repo.TrimToMaxRows(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		count, err := repo.Count(ctx, models.ActivityLogFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)
	})

	t.Run("TrimOlderThan", func(t *testing.T) {
		// Nothing is older than an hour ago.
		deleted, err := repo.TrimOlderThan(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, deleted)

		// Everything is older than a future cutoff.
		deleted, err = repo.TrimOlderThan(ctx, time.Now().UTC().Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)
	})

	t.Run("ClearAll", func(t *testing.T) {
		_, err := fixtures.CreateTestActivity(campaign.ID, models.ActivityActionSubmissionReceived)
		require.NoError(t, err)

		cleared, err := repo.ClearAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), cleared)

		count, err := repo.Count(ctx, models.ActivityLogFilter{})
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
