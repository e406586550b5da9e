package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/models"
	"github.com/invitewave/invitewave/repository"
	"github.com/invitewave/invitewave/utils"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Import wizard stages. Transitions only move forward: upload -> map ->
// preview -> committed.
const (
	importStageUpload    = "upload"
	importStageMap       = "map"
	importStagePreview   = "preview"
	importStageCommitted = "committed"
)

const importSessionKeyPrefix = "import:session:"

// importSession is the wizard state cached between steps. Losing it (TTL
// expiry) surfaces as a session-expired business error, never a crash.
type importSession struct {
	ID             string                   `json:"id"`
	CampaignID     uint                     `json:"campaign_id"`
	Stage          string                   `json:"stage"`
	FileName       string                   `json:"file_name"`
	Headers        []string                 `json:"headers"`
	Rows           [][]string               `json:"rows"`
	Delimiter      string                   `json:"delimiter"`
	Mapping        dto.ColumnMapping        `json:"mapping"`
	DefaultSiteID  uint                     `json:"default_site_id"`
	DefaultCountry string                   `json:"default_country,omitempty"`
	Summary        dto.ImportSummary        `json:"summary"`
	ValidRows      []dto.ImportValidRow     `json:"valid_rows,omitempty"`
	DuplicateRows  []dto.ImportRowDuplicate `json:"duplicate_rows,omitempty"`
	ErrorRows      []dto.ImportRowError     `json:"error_rows,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
}

// ImportFlow handles the CSV recipient import wizard
type ImportFlow interface {
	Upload(ctx context.Context, req *dto.UploadImportFileRequest, metadata *ClientMetadata) (*dto.UploadImportFileResponse, error)
	MapColumns(ctx context.Context, req *dto.MapImportColumnsRequest) (*dto.PreviewImportResponse, error)
	Preview(ctx context.Context, sessionID string) (*dto.PreviewImportResponse, error)
	Commit(ctx context.Context, req *dto.CommitImportRequest, metadata *ClientMetadata) (*dto.CommitImportResponse, error)
	Abandon(ctx context.Context, sessionID string) error
}

// ImportFlowImpl implements the import wizard flow
type ImportFlowImpl struct {
	campaignRepo  repository.CampaignRepository
	siteRepo      repository.SiteRepository
	recipientRepo repository.RecipientRepository
	activityRepo  repository.ActivityLogRepository
	rc            *redis.Client
	importCfg     config.ImportConfig
	smsCfg        config.SMSConfig
	db            *gorm.DB
}

// NewImportFlow creates a new import flow instance
func NewImportFlow(
	campaignRepo repository.CampaignRepository,
	siteRepo repository.SiteRepository,
	recipientRepo repository.RecipientRepository,
	activityRepo repository.ActivityLogRepository,
	rc *redis.Client,
	importCfg config.ImportConfig,
	smsCfg config.SMSConfig,
	db *gorm.DB,
) ImportFlow {
	return &ImportFlowImpl{
		campaignRepo:  campaignRepo,
		siteRepo:      siteRepo,
		recipientRepo: recipientRepo,
		activityRepo:  activityRepo,
		rc:            rc,
		importCfg:     importCfg,
		smsCfg:        smsCfg,
		db:            db,
	}
}

// Upload parses the uploaded file and opens a wizard session
func (f *ImportFlowImpl) Upload(ctx context.Context, req *dto.UploadImportFileRequest, metadata *ClientMetadata) (*dto.UploadImportFileResponse, error) {
	if len(req.Data) == 0 {
		return nil, NewBusinessError("IMPORT_FILE_EMPTY", "import file is empty", ErrImportFileEmpty)
	}

	campaign, err := f.campaignRepo.ByUUID(ctx, req.CampaignUUID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}

	doc, err := utils.ParseCSV(req.Data, utils.CSVOptions{
		MaxRows:  f.importCfg.MaxRows,
		MaxBytes: f.importCfg.MaxBytes,
	})
	if err != nil {
		return nil, NewBusinessError("IMPORT_PARSE_FAILED", "could not parse import file", err)
	}

	session := &importSession{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Stage:      importStageUpload,
		FileName:   req.FileName,
		Headers:    doc.Headers,
		Rows:       doc.Rows,
		Delimiter:  string(doc.Delimiter),
		CreatedAt:  utils.UTCNow(),
	}
	if err := f.saveSession(ctx, session); err != nil {
		return nil, err
	}

	preview := doc.Rows
	if len(preview) > 5 {
		preview = preview[:5]
	}
	return &dto.UploadImportFileResponse{
		SessionID: session.ID,
		Headers:   doc.Headers,
		RowCount:  doc.RowCount(),
		Delimiter: session.Delimiter,
		Preview:   preview,
	}, nil
}

// MapColumns stores the operator's column mapping and runs validation,
// returning the partitions for confirmation. Nothing is persisted.
func (f *ImportFlowImpl) MapColumns(ctx context.Context, req *dto.MapImportColumnsRequest) (*dto.PreviewImportResponse, error) {
	session, err := f.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage == importStageCommitted {
		return nil, NewBusinessError("IMPORT_STAGE_INVALID", "import session already committed", ErrImportStageInvalid)
	}

	defaultSite, err := f.siteRepo.ByHandle(ctx, req.DefaultSiteHandle)
	if err != nil {
		return nil, fmt.Errorf("failed to look up default site: %w", err)
	}
	if defaultSite == nil {
		return nil, NewBusinessErrorf("SITE_NOT_FOUND", "site %q not found", ErrSiteNotFound, req.DefaultSiteHandle)
	}

	session.Mapping = req.Mapping
	session.DefaultSiteID = defaultSite.ID
	if req.DefaultCountry != nil {
		session.DefaultCountry = strings.ToUpper(*req.DefaultCountry)
	} else {
		session.DefaultCountry = ""
	}
	session.Stage = importStageMap

	sites, err := f.siteRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	f.validateRows(session, sites)
	session.Stage = importStagePreview

	if err := f.saveSession(ctx, session); err != nil {
		return nil, err
	}
	return sessionToPreview(session), nil
}

// Preview returns the validation partitions of an already-mapped session
func (f *ImportFlowImpl) Preview(ctx context.Context, sessionID string) (*dto.PreviewImportResponse, error) {
	session, err := f.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != importStagePreview {
		return nil, NewBusinessError("IMPORT_STAGE_INVALID", "import session has not been mapped yet", ErrImportStageInvalid)
	}
	return sessionToPreview(session), nil
}

// Commit persists exactly the rows the preview validated. Rows are not
// re-validated against live data beyond normal row-level constraints.
func (f *ImportFlowImpl) Commit(ctx context.Context, req *dto.CommitImportRequest, metadata *ClientMetadata) (*dto.CommitImportResponse, error) {
	session, err := f.loadSession(ctx, req.SessionID)
	if err != nil {
		return nil, err
	}
	if session.Stage != importStagePreview {
		return nil, NewBusinessError("IMPORT_NOT_VALIDATED", "import session has no validated rows", ErrImportNotValidated)
	}

	campaign, err := f.campaignRepo.ByID(ctx, session.CampaignID)
	if err != nil || campaign == nil {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "campaign not found", ErrCampaignNotFound)
	}

	recipients := make([]*models.Recipient, 0, len(session.ValidRows))
	for _, row := range session.ValidRows {
		recipients = append(recipients, buildRecipient(campaign, row.SiteID, row.Name, row.Email, row.Phone))
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.recipientRepo.SaveBatch(txCtx, recipients); err != nil {
			return fmt.Errorf("failed to persist imported recipients: %w", err)
		}
		recordActivity(txCtx, f.activityRepo, &models.ActivityLog{
			ActorUserID: metadata.ActorUserID,
			CampaignID:  &campaign.ID,
			Action:      models.ActivityActionRecipientsImported,
			Source:      models.ActivitySourceCP,
			Summary:     fmt.Sprintf("%d recipients imported from %s", len(recipients), session.FileName),
			Details: activityDetails(map[string]any{
				"file":       session.FileName,
				"total":      session.Summary.Total,
				"valid":      session.Summary.Valid,
				"duplicates": session.Summary.Duplicates,
				"errors":     session.Summary.Errors,
			}),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	session.Stage = importStageCommitted
	session.Rows = nil
	if err := f.saveSession(ctx, session); err != nil {
		return nil, err
	}

	return &dto.CommitImportResponse{Imported: len(recipients), Summary: session.Summary}, nil
}

// Abandon drops a wizard session
func (f *ImportFlowImpl) Abandon(ctx context.Context, sessionID string) error {
	if f.rc == nil {
		return NewBusinessError("IMPORT_SESSION_NOT_FOUND", "import session not found", ErrImportSessionNotFound)
	}
	return f.rc.Del(ctx, importSessionKeyPrefix+sessionID).Err()
}

// validateRows runs the per-row pipeline and fills the session partitions.
// Later duplicate rows reference the winning row's number; processing is
// stable top to bottom so the outcome is deterministic.
func (f *ImportFlowImpl) validateRows(session *importSession, sites []*models.Site) {
	sitesByHandle := make(map[string]*models.Site, len(sites))
	sitesByID := make(map[uint]*models.Site, len(sites))
	for _, s := range sites {
		sitesByHandle[strings.ToLower(s.Handle)] = s
		sitesByID[s.ID] = s
	}

	allowed := f.smsCfg.AllowedCountries
	restricted := utils.CountryRestricted(allowed)
	dialTable := utils.BuildDialCodeTable(allowed)
	defaultRegion := utils.DefaultRegionFor(allowed, f.smsCfg.DefaultRegion)

	session.ValidRows = nil
	session.DuplicateRows = nil
	session.ErrorRows = nil

	type seenEntry struct {
		rowNumber int
	}
	seen := make(map[string]seenEntry)

	cell := func(row []string, idx *int) string {
		if idx == nil || *idx < 0 || *idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[*idx])
	}

	for i, row := range session.Rows {
		// Header is row 1; data rows start at 2.
		rowNumber := i + 2

		name := cell(row, session.Mapping.NameColumn)
		email := cell(row, session.Mapping.EmailColumn)
		phone := cell(row, session.Mapping.PhoneColumn)
		siteHint := cell(row, session.Mapping.SiteColumn)

		if name == "" {
			session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: "Missing required field: Name"})
			continue
		}
		if email == "" && phone == "" {
			session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: "Missing required field: Email or Phone"})
			continue
		}

		siteID := session.DefaultSiteID
		if siteHint != "" {
			if s, ok := sitesByHandle[strings.ToLower(siteHint)]; ok {
				siteID = s.ID
			} else if s := siteByNumericID(sitesByID, siteHint); s != nil {
				siteID = s.ID
			} else {
				session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: fmt.Sprintf("Unknown site: %s", siteHint)})
				continue
			}
		}

		var canonicalPhone string
		if phone != "" {
			country := dialTable.DetectCountry(phone)
			if country == "" {
				country = session.DefaultCountry
			}
			if country == "" && restricted {
				session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: "No phone country configured"})
				continue
			}

			res := utils.NormalizePhone(phone, country, defaultRegion)
			if res.Err != nil || !res.Valid {
				msg := "Invalid phone number"
				if res.Err != nil {
					msg = fmt.Sprintf("Invalid phone number: %v", res.Err)
				}
				session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: msg})
				continue
			}
			if !utils.CountryAllowed(allowed, res.DetectedCountry) {
				session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: fmt.Sprintf("Country not allowed: %s", res.DetectedCountry)})
				continue
			}
			canonicalPhone = res.Canonical
		}

		var canonicalEmail string
		if email != "" {
			if _, err := mail.ParseAddress(email); err != nil {
				session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: fmt.Sprintf("Invalid email: %s", email)})
				continue
			}
			canonicalEmail = strings.ToLower(email)
		}

		if canonicalPhone == "" && canonicalEmail == "" {
			session.ErrorRows = append(session.ErrorRows, dto.ImportRowError{RowNumber: rowNumber, Message: "No valid contact method"})
			continue
		}

		// Duplicate key prefers phone; scope is this batch only, never the
		// live database.
		var key string
		if canonicalPhone != "" {
			key = fmt.Sprintf("%d|phone|%s", siteID, strings.ToLower(canonicalPhone))
		} else {
			key = fmt.Sprintf("%d|email|%s", siteID, canonicalEmail)
		}
		if prior, ok := seen[key]; ok {
			session.DuplicateRows = append(session.DuplicateRows, dto.ImportRowDuplicate{
				RowNumber:      rowNumber,
				DuplicateOfRow: prior.rowNumber,
				Key:            key,
			})
			continue
		}
		seen[key] = seenEntry{rowNumber: rowNumber}

		valid := dto.ImportValidRow{RowNumber: rowNumber, SiteID: siteID, Name: name}
		if canonicalEmail != "" {
			valid.Email = &canonicalEmail
		}
		if canonicalPhone != "" {
			valid.Phone = &canonicalPhone
		}
		session.ValidRows = append(session.ValidRows, valid)
	}

	session.Summary = dto.ImportSummary{
		Total:      len(session.Rows),
		Valid:      len(session.ValidRows),
		Duplicates: len(session.DuplicateRows),
		Errors:     len(session.ErrorRows),
	}
}

func siteByNumericID(sitesByID map[uint]*models.Site, hint string) *models.Site {
	var id uint
	if _, err := fmt.Sscanf(hint, "%d", &id); err != nil {
		return nil
	}
	return sitesByID[id]
}

func sessionToPreview(session *importSession) *dto.PreviewImportResponse {
	return &dto.PreviewImportResponse{
		SessionID:     session.ID,
		Summary:       session.Summary,
		ValidRows:     session.ValidRows,
		DuplicateRows: session.DuplicateRows,
		ErrorRows:     session.ErrorRows,
	}
}

func (f *ImportFlowImpl) saveSession(ctx context.Context, session *importSession) error {
	if f.rc == nil {
		return NewBusinessError("CACHE_UNAVAILABLE", "session cache not available", ErrImportSessionNotFound)
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize import session: %w", err)
	}
	ttl := f.importCfg.SessionTTL
	if ttl <= 0 {
		ttl = utils.ImportSessionTTL
	}
	if err := f.rc.Set(ctx, importSessionKeyPrefix+session.ID, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store import session: %w", err)
	}
	return nil
}

func (f *ImportFlowImpl) loadSession(ctx context.Context, sessionID string) (*importSession, error) {
	if f.rc == nil || sessionID == "" {
		return nil, NewBusinessError("IMPORT_SESSION_NOT_FOUND", "import session not found or expired", ErrImportSessionNotFound)
	}
	raw, err := f.rc.Get(ctx, importSessionKeyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, NewBusinessError("IMPORT_SESSION_NOT_FOUND", "import session not found or expired", ErrImportSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load import session: %w", err)
	}
	var session importSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("failed to decode import session: %w", err)
	}
	return &session, nil
}
