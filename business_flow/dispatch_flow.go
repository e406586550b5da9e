package businessflow

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"gorm.io/gorm"
)

// Reasons reported when planning finishes without enqueueing any work.
const (
	DispatchReasonCampaignDisabled  = "campaign_disabled"
	DispatchReasonContentDisabled   = "site_content_disabled"
	DispatchReasonNoUsableTemplates = "no_usable_templates"
	DispatchReasonNothingPending    = "nothing_pending"
)

// DispatchFlow plans invitation batches and manages queued tasks
type DispatchFlow interface {
	Dispatch(ctx context.Context, req *dto.DispatchCampaignRequest, metadata *ClientMetadata) (*dto.DispatchCampaignResponse, error)
	ListTasks(ctx context.Context, req *dto.ListDispatchTasksRequest) (*dto.ListDispatchTasksResponse, error)
	CancelTask(ctx context.Context, campaignUUID string, taskID uint, metadata *ClientMetadata) (*dto.CancelDispatchTaskResponse, error)
}

// DispatchFlowImpl implements the dispatch planning flow
type DispatchFlowImpl struct {
	campaignFlow  CampaignFlow
	campaignRepo  repository.CampaignRepository
	siteRepo      repository.SiteRepository
	recipientRepo repository.RecipientRepository
	taskRepo      repository.DispatchTaskRepository
	activityRepo  repository.ActivityLogRepository
	dispatchCfg   config.DispatchConfig
	db            *gorm.DB
}

// NewDispatchFlow creates a new dispatch flow instance
func NewDispatchFlow(
	campaignFlow CampaignFlow,
	campaignRepo repository.CampaignRepository,
	siteRepo repository.SiteRepository,
	recipientRepo repository.RecipientRepository,
	taskRepo repository.DispatchTaskRepository,
	activityRepo repository.ActivityLogRepository,
	dispatchCfg config.DispatchConfig,
	db *gorm.DB,
) DispatchFlow {
	return &DispatchFlowImpl{
		campaignFlow:  campaignFlow,
		campaignRepo:  campaignRepo,
		siteRepo:      siteRepo,
		recipientRepo: recipientRepo,
		taskRepo:      taskRepo,
		activityRepo:  activityRepo,
		dispatchCfg:   dispatchCfg,
		db:            db,
	}
}

// Dispatch plans invitation delivery for one campaign/site scope. Planning is
// cheap and idempotent at the recipient level: only recipients whose send date
// for a requested channel is still unset are picked up, so repeating a
// dispatch never re-sends.
func (f *DispatchFlowImpl) Dispatch(ctx context.Context, req *dto.DispatchCampaignRequest, metadata *ClientMetadata) (*dto.DispatchCampaignResponse, error) {
	if !req.SendSMS && !req.SendEmail {
		return nil, NewBusinessError("NO_CHANNEL_REQUESTED", "at least one channel must be requested", ErrNoChannelRequested)
	}

	campaign, err := f.lookupCampaign(ctx, req.CampaignUUID)
	if err != nil {
		return nil, err
	}
	site, err := f.siteRepo.ByHandle(ctx, req.SiteHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up site: %w", err)
	}
	if site == nil {
		return nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, req.SiteHandle)
	}

	like, err := f.campaignFlow.Resolve(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}

	if !like.IsEnabled() {
		return skipDispatch(campaign.ID, site.ID, DispatchReasonCampaignDisabled), nil
	}
	if !like.EnabledForSite(site.ID) {
		return skipDispatch(campaign.ID, site.ID, DispatchReasonContentDisabled), nil
	}

	emailSubject, emailBody, smsBody, ok := like.TemplatesForSite(site.ID)
	if !ok {
		return skipDispatch(campaign.ID, site.ID, DispatchReasonNoUsableTemplates), nil
	}
	smsUsable := strings.TrimSpace(smsBody) != ""
	emailUsable := strings.TrimSpace(emailSubject) != "" && strings.TrimSpace(emailBody) != ""

	// A requested channel with no template is silently dropped, not an
	// error. Only when nothing usable remains does planning stop.
	sendSMS := req.SendSMS && smsUsable
	sendEmail := req.SendEmail && emailUsable
	if !sendSMS && !sendEmail {
		return skipDispatch(campaign.ID, site.ID, DispatchReasonNoUsableTemplates), nil
	}

	pending, err := f.recipientRepo.ListPendingIDs(ctx, campaign.ID, site.ID, sendSMS, sendEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending recipients: %w", err)
	}
	if len(pending) == 0 {
		return skipDispatch(campaign.ID, site.ID, DispatchReasonNothingPending), nil
	}

	scheduledAt := utils.UTCNow()
	if delay := like.DelayPeriod(); delay != nil && strings.TrimSpace(*delay) != "" {
		if at, err := utils.AddISOPeriod(scheduledAt, *delay); err == nil {
			scheduledAt = at
		}
	}

	batchSize := f.dispatchCfg.BatchSize
	if batchSize <= 0 {
		batchSize = utils.DispatchBatchSize
	}

	batches := partitionIDs(pending, batchSize)
	tasks := make([]*models.DispatchTask, 0, len(batches))
	for _, batch := range batches {
		ids := make([]int64, 0, len(batch))
		for _, id := range batch {
			ids = append(ids, int64(id))
		}
		tasks = append(tasks, &models.DispatchTask{
			CampaignID:   campaign.ID,
			SiteID:       site.ID,
			RecipientIDs: ids,
			SendSMS:      sendSMS,
			SendEmail:    sendEmail,
			Status:       models.DispatchTaskStatusPending,
			ScheduledAt:  scheduledAt,
			ActorUserID:  req.ActorUserID,
		})
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.taskRepo.SaveBatch(txCtx, tasks); err != nil {
			return err
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: req.ActorUserID,
			CampaignID:  &campaign.ID,
			Action:      models.ActivityActionInvitationsQueued,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("%d recipients queued in %d batches", len(pending), len(tasks)),
			Details: activityDetails(map[string]any{
				"site_id":    site.ID,
				"recipients": len(pending),
				"batches":    len(tasks),
				"send_sms":   sendSMS,
				"send_email": sendEmail,
			}),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue dispatch tasks: %w", err)
	}

	return &dto.DispatchCampaignResponse{
		BatchesEnqueued: len(tasks),
		RecipientsTotal: len(pending),
	}, nil
}

// ListTasks returns a page of dispatch tasks for one campaign
func (f *DispatchFlowImpl) ListTasks(ctx context.Context, req *dto.ListDispatchTasksRequest) (*dto.ListDispatchTasksResponse, error) {
	campaign, err := f.lookupCampaign(ctx, req.CampaignUUID)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}

	tasks, err := f.taskRepo.ListByCampaign(ctx, campaign.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch tasks: %w", err)
	}
	total, err := f.taskRepo.Count(ctx, models.DispatchTaskFilter{CampaignID: &campaign.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to count dispatch tasks: %w", err)
	}

	out := &dto.ListDispatchTasksResponse{Total: total, Items: make([]dto.DispatchTaskDTO, 0, len(tasks))}
	for _, t := range tasks {
		out.Items = append(out.Items, ToDispatchTaskDTO(t))
	}
	return out, nil
}

// CancelTask cancels one queued task. Tasks already claimed by the worker are
// left alone so a batch is never interrupted mid send.
func (f *DispatchFlowImpl) CancelTask(ctx context.Context, campaignUUID string, taskID uint, metadata *ClientMetadata) (*dto.CancelDispatchTaskResponse, error) {
	campaign, err := f.lookupCampaign(ctx, campaignUUID)
	if err != nil {
		return nil, err
	}

	task, err := f.taskRepo.ByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil || task.CampaignID != campaign.ID {
		return nil, NewBusinessError("DISPATCH_TASK_NOT_FOUND", "dispatch task not found", ErrDispatchTaskNotFound)
	}

	cancelled, err := f.taskRepo.CancelQueued(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel dispatch task: %w", err)
	}
	return &dto.CancelDispatchTaskResponse{Cancelled: cancelled}, nil
}

// skipDispatch records a zero-work planning exit in the application log and
// builds the response carrying the reason.
func skipDispatch(campaignID, siteID uint, reason string) *dto.DispatchCampaignResponse {
	log.Printf("dispatch skipped for campaign %d site %d: %s", campaignID, siteID, reason)
	return &dto.DispatchCampaignResponse{Reason: reason}
}

func (f *DispatchFlowImpl) lookupCampaign(ctx context.Context, campaignUUID string) (*models.Campaign, error) {
	if campaignUUID == "" {
		return nil, NewBusinessError("CAMPAIGN_UUID_REQUIRED", "campaign UUID is required", ErrCampaignUUIDRequired)
	}
	campaign, err := f.campaignRepo.ByUUID(ctx, campaignUUID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}
	return campaign, nil
}

// partitionIDs splits ids into consecutive chunks of at most size elements.
// Every id lands in exactly one chunk.
func partitionIDs(ids []uint, size int) [][]uint {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	chunks := make([][]uint, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}
