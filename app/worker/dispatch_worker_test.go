package worker

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/invitewave/invitewave/app/services"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyIsRetriable(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:   3,
		RetryInterval: time.Minute,
		MaxBackoff:    30 * time.Minute,
	}

	transient := &services.TransientError{Err: errors.New("connection refused")}
	permanent := errors.New("recipient rejected by provider")

	t.Run("transient failure retries while attempts remain", func(t *testing.T) {
		assert.True(t, policy.IsRetriable(transient, 1))
		assert.True(t, policy.IsRetriable(transient, 2))
	})

	t.Run("attempts budget caps retries even for transient failures", func(t *testing.T) {
		assert.False(t, policy.IsRetriable(transient, 3))
		assert.False(t, policy.IsRetriable(transient, 4))
	})

	t.Run("permanent failure never retries", func(t *testing.T) {
		assert.False(t, policy.IsRetriable(permanent, 1))
	})

	t.Run("wrapped transient failure still retries", func(t *testing.T) {
		wrapped := errors.Join(errors.New("task 7"), transient)
		assert.True(t, policy.IsRetriable(wrapped, 1))
	})
}

func TestRetryPolicyNextBackoff(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:   5,
		RetryInterval: time.Minute,
		MaxBackoff:    10 * time.Minute,
	}

	t.Run("doubles per attempt", func(t *testing.T) {
		assert.Equal(t, time.Minute, policy.NextBackoff(1))
		assert.Equal(t, 2*time.Minute, policy.NextBackoff(2))
		assert.Equal(t, 4*time.Minute, policy.NextBackoff(3))
		assert.Equal(t, 8*time.Minute, policy.NextBackoff(4))
	})

	t.Run("caps at max backoff", func(t *testing.T) {
		assert.Equal(t, 10*time.Minute, policy.NextBackoff(5))
		assert.Equal(t, 10*time.Minute, policy.NextBackoff(20))
	})

	t.Run("zero interval falls back to a minute", func(t *testing.T) {
		bare := RetryPolicy{MaxAttempts: 3}
		assert.Equal(t, time.Minute, bare.NextBackoff(1))
		assert.Equal(t, 2*time.Minute, bare.NextBackoff(2))
	})
}

func TestRenderTemplate(t *testing.T) {
	recipient := &models.Recipient{
		Name:           "Alice",
		InvitationCode: "abc-123",
	}

	t.Run("substitutes name and code", func(t *testing.T) {
		got := renderTemplate("Hi {name}, use {code} to start.", recipient)
		assert.Equal(t, "Hi Alice, use abc-123 to start.", got)
	})

	t.Run("repeats are all substituted", func(t *testing.T) {
		got := renderTemplate("{code} {code}", recipient)
		assert.Equal(t, "abc-123 abc-123", got)
	})

	t.Run("unknown placeholders pass through", func(t *testing.T) {
		got := renderTemplate("Hello {namme}", recipient)
		assert.Equal(t, "Hello {namme}", got)
	})

	t.Run("template without placeholders is unchanged", func(t *testing.T) {
		got := renderTemplate("Plain message", recipient)
		assert.Equal(t, "Plain message", got)
	})
}

// In-memory repository doubles for exercising processTask without a database.
// Only the methods the worker touches are overridden; the embedded interface
// panics on anything else, which keeps the doubles honest.

type fakeTaskRepo struct {
	repository.DispatchTaskRepository
}

func (r *fakeTaskRepo) Update(ctx context.Context, task *models.DispatchTask) error {
	return nil
}

type fakeCampaignRepo struct {
	repository.CampaignRepository
	campaign *models.Campaign
	err      error
}

func (r *fakeCampaignRepo) ByIDWithContents(ctx context.Context, id uint) (*models.Campaign, error) {
	return r.campaign, r.err
}

type fakeRecipientRepo struct {
	repository.RecipientRepository
	recipients map[uint]*models.Recipient
}

func (r *fakeRecipientRepo) ByID(ctx context.Context, id uint) (*models.Recipient, error) {
	return r.recipients[id], nil
}

func (r *fakeRecipientRepo) MarkSMSSent(ctx context.Context, recipientID uint, at time.Time) error {
	return nil
}

func (r *fakeRecipientRepo) MarkEmailSent(ctx context.Context, recipientID uint, at time.Time) error {
	return nil
}

type fakeActivityRepo struct {
	repository.ActivityLogRepository
	entries []*models.ActivityLog
}

func (r *fakeActivityRepo) Save(ctx context.Context, entry *models.ActivityLog) error {
	r.entries = append(r.entries, entry)
	return nil
}

func newTestWorker(campaignRepo repository.CampaignRepository, recipientRepo repository.RecipientRepository) (*DispatchWorker, *fakeActivityRepo, *services.MockSMSService) {
	activityRepo := &fakeActivityRepo{}
	smsMock := services.NewMockSMSService()
	w := &DispatchWorker{
		taskRepo:      &fakeTaskRepo{},
		recipientRepo: recipientRepo,
		campaignRepo:  campaignRepo,
		activityRepo:  activityRepo,
		smsService:    smsMock,
		emailService:  services.NewMockEmailService(),
		logger:        log.New(io.Discard, "", 0),
		retry: RetryPolicy{
			MaxAttempts:   3,
			RetryInterval: time.Minute,
			MaxBackoff:    30 * time.Minute,
		},
	}
	return w, activityRepo, smsMock
}

func pendingTask(recipientIDs ...int64) *models.DispatchTask {
	return &models.DispatchTask{
		ID:           7,
		CampaignID:   1,
		SiteID:       1,
		RecipientIDs: pq.Int64Array(recipientIDs),
		SendSMS:      true,
		Status:       models.DispatchTaskStatusPending,
		ScheduledAt:  utils.UTCNow(),
	}
}

func TestProcessTaskCampaignLoadFailure(t *testing.T) {
	t.Run("transient lookup failure requeues the task", func(t *testing.T) {
		repo := &fakeCampaignRepo{err: &services.TransientError{Err: errors.New("connection refused")}}
		w, _, _ := newTestWorker(repo, &fakeRecipientRepo{})
		task := pendingTask(1)

		before := utils.UTCNow()
		err := w.processTask(context.Background(), task)

		require.Error(t, err)
		assert.Equal(t, models.DispatchTaskStatusPending, task.Status)
		assert.Equal(t, 1, task.Attempts)
		assert.True(t, task.ScheduledAt.After(before))
		require.NotNil(t, task.LastError)
		assert.Contains(t, *task.LastError, "connection refused")
	})

	t.Run("permanent lookup failure fails terminally", func(t *testing.T) {
		repo := &fakeCampaignRepo{err: errors.New("malformed row")}
		w, _, _ := newTestWorker(repo, &fakeRecipientRepo{})
		task := pendingTask(1)

		err := w.processTask(context.Background(), task)

		require.Error(t, err)
		assert.Equal(t, models.DispatchTaskStatusFailed, task.Status)
		assert.NotNil(t, task.FinishedAt)
	})

	t.Run("missing campaign fails terminally", func(t *testing.T) {
		repo := &fakeCampaignRepo{}
		w, _, _ := newTestWorker(repo, &fakeRecipientRepo{})
		task := pendingTask(1)

		err := w.processTask(context.Background(), task)

		require.Error(t, err)
		assert.Equal(t, models.DispatchTaskStatusFailed, task.Status)
		require.NotNil(t, task.LastError)
		assert.Contains(t, *task.LastError, "not found")
	})
}

func TestProcessTaskBudgetExhaustion(t *testing.T) {
	phone := "+31612345678"
	campaign := &models.Campaign{
		ID:      1,
		Name:    "Budget",
		Enabled: true,
		Contents: []models.CampaignContent{
			{CampaignID: 1, SiteID: 1, Enabled: true, SMSBody: "Hi {name}"},
		},
	}
	recipients := map[uint]*models.Recipient{
		1: {ID: 1, CampaignID: 1, SiteID: 1, Name: "Alice", Phone: &phone, InvitationCode: "c1"},
		2: {ID: 2, CampaignID: 1, SiteID: 1, Name: "Bob", Phone: &phone, InvitationCode: "c2"},
	}

	t.Run("expired budget requeues instead of succeeding", func(t *testing.T) {
		w, activityRepo, smsMock := newTestWorker(&fakeCampaignRepo{campaign: campaign}, &fakeRecipientRepo{recipients: recipients})
		task := pendingTask(1, 2)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := w.processTask(ctx, task)

		require.Error(t, err)
		assert.True(t, services.IsTransient(err))
		assert.Equal(t, models.DispatchTaskStatusPending, task.Status)
		assert.NotEqual(t, float64(1), task.Progress)
		assert.Nil(t, task.FinishedAt)
		assert.Empty(t, smsMock.GetSentMessages())
		require.Len(t, activityRepo.entries, 1)
		assert.Equal(t, models.ActivityActionInvitationsSentBatch, activityRepo.entries[0].Action)
	})

	t.Run("live budget completes the batch", func(t *testing.T) {
		w, _, smsMock := newTestWorker(&fakeCampaignRepo{campaign: campaign}, &fakeRecipientRepo{recipients: recipients})
		task := pendingTask(1, 2)

		err := w.processTask(context.Background(), task)

		require.NoError(t, err)
		assert.Equal(t, models.DispatchTaskStatusSucceeded, task.Status)
		assert.Equal(t, float64(1), task.Progress)
		assert.Len(t, smsMock.GetSentMessages(), 2)
	})
}
