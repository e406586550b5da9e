// Package worker runs the background loops: batch invitation delivery,
// analytics refresh and activity log retention.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/invitewave/invitewave/app/middleware"
	"github.com/invitewave/invitewave/app/services"
	businessflow "github.com/invitewave/invitewave/business_flow"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// RetryPolicy decides whether a failed task goes back on the queue
type RetryPolicy struct {
	MaxAttempts   int
	RetryInterval time.Duration
	MaxBackoff    time.Duration
}

// IsRetriable reports whether the failure is worth another attempt
func (p RetryPolicy) IsRetriable(err error, attempts int) bool {
	if attempts >= p.MaxAttempts {
		return false
	}
	return services.IsTransient(err)
}

// NextBackoff returns the delay before the given attempt number runs again
func (p RetryPolicy) NextBackoff(attempts int) time.Duration {
	interval := p.RetryInterval
	if interval <= 0 {
		interval = time.Minute
	}
	backoff := interval
	for i := 1; i < attempts; i++ {
		backoff *= 2
		if p.MaxBackoff > 0 && backoff >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && backoff > p.MaxBackoff {
		backoff = p.MaxBackoff
	}
	return backoff
}

// DispatchWorker polls due dispatch tasks and delivers invitation batches
type DispatchWorker struct {
	taskRepo      repository.DispatchTaskRepository
	recipientRepo repository.RecipientRepository
	campaignRepo  repository.CampaignRepository
	activityRepo  repository.ActivityLogRepository
	analyticsFlow businessflow.AnalyticsFlow
	activityFlow  businessflow.ActivityFlow
	smsService    services.SMSService
	emailService  services.EmailService
	logger        *log.Logger
	retry         RetryPolicy
	interval      time.Duration

	db  *gorm.DB
	cfg config.DispatchConfig
}

// NewDispatchWorker creates a new dispatch worker instance
func NewDispatchWorker(
	taskRepo repository.DispatchTaskRepository,
	recipientRepo repository.RecipientRepository,
	campaignRepo repository.CampaignRepository,
	activityRepo repository.ActivityLogRepository,
	analyticsFlow businessflow.AnalyticsFlow,
	activityFlow businessflow.ActivityFlow,
	smsService services.SMSService,
	emailService services.EmailService,
	db *gorm.DB,
	cfg config.DispatchConfig,
	logCfg config.LoggingConfig,
) *DispatchWorker {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = time.Minute
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = utils.DispatchMaxAttempts
	}

	w := &DispatchWorker{
		taskRepo:      taskRepo,
		recipientRepo: recipientRepo,
		campaignRepo:  campaignRepo,
		activityRepo:  activityRepo,
		analyticsFlow: analyticsFlow,
		activityFlow:  activityFlow,
		smsService:    smsService,
		emailService:  emailService,
		interval:      interval,
		retry: RetryPolicy{
			MaxAttempts:   maxAttempts,
			RetryInterval: cfg.RetryInterval,
			MaxBackoff:    cfg.MaxBackoff,
		},
		db:  db,
		cfg: cfg,
	}
	w.initLogger(logCfg)
	return w
}

// initLogger writes to stdout plus a rotating file when a path is configured
func (w *DispatchWorker) initLogger(logCfg config.LoggingConfig) {
	var out io.Writer = os.Stdout
	if logCfg.FilePath != "" {
		out = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   logCfg.FilePath,
			MaxSize:    logCfg.MaxSize,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAge,
			Compress:   logCfg.Compress,
		})
	}
	w.logger = log.New(out, "worker ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
}

// Start launches the worker loops in background goroutines and returns a stop
// function
func (w *DispatchWorker) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		w.runOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.runOnce(ctx)
			}
		}
	}()

	go w.startAnalyticsLoop(ctx)
	go w.startRetentionLoop(ctx)

	return cancel
}

func (w *DispatchWorker) runOnce(ctx context.Context) {
	due, err := w.taskRepo.ListDue(ctx, utils.UTCNow(), 50)
	if err != nil {
		w.logger.Printf("worker: list due tasks failed: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}
	w.logger.Printf("worker: %d tasks due", len(due))

	for _, task := range due {
		if err := w.processTask(ctx, task); err != nil {
			w.logger.Printf("worker: process task id=%d failed: %v", task.ID, err)
		}
	}
}

// processTask claims one task and delivers its batch. Each recipient is
// handled independently so one bad number never sinks the batch; send dates
// persist immediately after each successful send, which keeps retries from
// re-sending.
func (w *DispatchWorker) processTask(ctx context.Context, task *models.DispatchTask) error {
	now := utils.UTCNow()
	task.Status = models.DispatchTaskStatusRunning
	task.Attempts++
	task.StartedAt = &now
	if err := w.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("claim task: %w", err)
	}

	campaign, err := w.campaignRepo.ByIDWithContents(ctx, task.CampaignID)
	if err != nil {
		return w.failTask(ctx, task, fmt.Errorf("load campaign %d: %w", task.CampaignID, err))
	}
	if campaign == nil {
		return w.failTask(ctx, task, fmt.Errorf("campaign %d not found", task.CampaignID))
	}
	content := campaign.ContentFor(task.SiteID)
	if content == nil || !content.Enabled {
		return w.failTask(ctx, task, fmt.Errorf("no enabled content for site %d", task.SiteID))
	}

	budget := time.Duration(len(task.RecipientIDs)) * utils.PerSendTimeAllowance
	if w.cfg.TaskTimeout > budget {
		budget = w.cfg.TaskTimeout
	}
	if budget < utils.DispatchTaskMinTimeout {
		budget = utils.DispatchTaskMinTimeout
	}
	taskCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var smsSent, emailsSent, errorCount, processed int
	total := len(task.RecipientIDs)

	for i, rid := range task.RecipientIDs {
		if taskCtx.Err() != nil {
			break
		}
		processed = i + 1

		recipient, err := w.recipientRepo.ByID(taskCtx, uint(rid))
		if err != nil || recipient == nil {
			errorCount++
			continue
		}

		if task.SendSMS && recipient.SMSPending() && content.HasSMSTemplate() {
			message := renderTemplate(content.SMSBody, recipient)
			provider, sender := campaign.SMSProviderHandle, campaign.SMSSenderHandle
			if err := w.smsService.Send(taskCtx, *recipient.Phone, message, provider, sender); err != nil {
				w.logger.Printf("worker: sms send failed task=%d recipient=%d: %v", task.ID, recipient.ID, err)
				errorCount++
			} else if err := w.recipientRepo.MarkSMSSent(taskCtx, recipient.ID, utils.UTCNow()); err != nil {
				w.logger.Printf("worker: mark sms sent failed recipient=%d: %v", recipient.ID, err)
				errorCount++
			} else {
				smsSent++
				middleware.InvitationsSentTotal.WithLabelValues("sms").Inc()
			}
		}

		if task.SendEmail && recipient.EmailPending() && content.HasEmailTemplate() {
			subject := renderTemplate(content.EmailSubject, recipient)
			body := renderTemplate(content.EmailBody, recipient)
			if err := w.emailService.Send(taskCtx, *recipient.Email, subject, body); err != nil {
				w.logger.Printf("worker: email send failed task=%d recipient=%d: %v", task.ID, recipient.ID, err)
				errorCount++
			} else if err := w.recipientRepo.MarkEmailSent(taskCtx, recipient.ID, utils.UTCNow()); err != nil {
				w.logger.Printf("worker: mark email sent failed recipient=%d: %v", recipient.ID, err)
				errorCount++
			} else {
				emailsSent++
				middleware.InvitationsSentTotal.WithLabelValues("email").Inc()
			}
		}

		task.Progress = float64(i+1) / float64(total)
		if err := w.taskRepo.Update(taskCtx, task); err != nil {
			w.logger.Printf("worker: progress update failed task=%d: %v", task.ID, err)
		}
	}

	// Sends already delivered are safe to leave behind; the set-once send
	// dates keep a retry from contacting the same recipient twice.
	if taskCtx.Err() != nil && processed < total {
		w.recordBatchActivity(ctx, task, smsSent, emailsSent, errorCount, total)
		return w.failTask(ctx, task, &services.TransientError{
			Err: fmt.Errorf("time budget exhausted after %d of %d recipients", processed, total),
		})
	}

	finished := utils.UTCNow()
	task.Progress = 1
	task.Status = models.DispatchTaskStatusSucceeded
	task.FinishedAt = &finished
	task.LastError = nil
	if err := w.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("finish task: %w", err)
	}

	w.recordBatchActivity(ctx, task, smsSent, emailsSent, errorCount, total)
	w.logger.Printf("worker: task id=%d done sms=%d email=%d errors=%d", task.ID, smsSent, emailsSent, errorCount)
	return nil
}

// failTask marks a terminal or retriable failure depending on the error kind
func (w *DispatchWorker) failTask(ctx context.Context, task *models.DispatchTask, cause error) error {
	now := utils.UTCNow()
	msg := cause.Error()
	task.LastError = &msg

	if w.retry.IsRetriable(cause, task.Attempts) {
		task.Status = models.DispatchTaskStatusPending
		task.ScheduledAt = now.Add(w.retry.NextBackoff(task.Attempts))
		w.logger.Printf("worker: task id=%d requeued attempt=%d: %v", task.ID, task.Attempts, cause)
	} else {
		task.Status = models.DispatchTaskStatusFailed
		task.FinishedAt = &now
		middleware.DispatchTaskFailuresTotal.Inc()
		w.logger.Printf("worker: task id=%d failed terminally: %v", task.ID, cause)
	}
	if err := w.taskRepo.Update(ctx, task); err != nil {
		return fmt.Errorf("persist task failure: %w", err)
	}
	return cause
}

func (w *DispatchWorker) recordBatchActivity(ctx context.Context, task *models.DispatchTask, smsSent, emailsSent, errorCount, total int) {
	details, _ := json.Marshal(map[string]any{
		"task_id":     task.ID,
		"site_id":     task.SiteID,
		"recipients":  total,
		"sms_sent":    smsSent,
		"emails_sent": emailsSent,
		"errors":      errorCount,
	})
	entry := &models.ActivityLog{
		ActorUserID: task.ActorUserID,
		CampaignID:  &task.CampaignID,
		Action:      models.ActivityActionInvitationsSentBatch,
		Source:      models.ActivitySourceQueue,
		Summary:     fmt.Sprintf("batch sent: %d sms, %d emails, %d errors", smsSent, emailsSent, errorCount),
		Details:     details,
	}
	if err := w.activityRepo.Save(ctx, entry); err != nil {
		w.logger.Printf("worker: record batch activity failed task=%d: %v", task.ID, err)
	}
}

// renderTemplate substitutes recipient fields into a message template
func renderTemplate(template string, r *models.Recipient) string {
	return strings.NewReplacer(
		"{name}", r.Name,
		"{code}", r.InvitationCode,
	).Replace(template)
}

// startAnalyticsLoop refreshes today's snapshots on an hourly cadence
func (w *DispatchWorker) startAnalyticsLoop(ctx context.Context) {
	interval := w.cfg.AnalyticsInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.analyticsFlow.RefreshAll(ctx, utils.UTCNow()); err != nil {
				w.logger.Printf("worker: analytics refresh failed: %v", err)
			}
		}
	}
}

// startRetentionLoop trims the activity log once a day
func (w *DispatchWorker) startRetentionLoop(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			trimmed, err := w.activityFlow.Trim(ctx)
			if err != nil {
				w.logger.Printf("worker: activity trim failed: %v", err)
			} else if trimmed > 0 {
				w.logger.Printf("worker: trimmed %d activity entries", trimmed)
			}
		}
	}
}
