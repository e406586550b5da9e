package handlers

import (
	"context"
	"io"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/invitewave/invitewave/app/dto"
	businessflow "github.com/invitewave/invitewave/business_flow"
)

// ImportHandlerInterface defines the contract for import wizard handlers
type ImportHandlerInterface interface {
	UploadFile(c fiber.Ctx) error
	MapColumns(c fiber.Ctx) error
	Preview(c fiber.Ctx) error
	Commit(c fiber.Ctx) error
	Abandon(c fiber.Ctx) error
}

// ImportHandler handles the CSV import wizard HTTP requests
type ImportHandler struct {
	importFlow businessflow.ImportFlow
	validator  *validator.Validate
}

func (h *ImportHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ImportHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewImportHandler creates a new import handler
func NewImportHandler(importFlow businessflow.ImportFlow) *ImportHandler {
	return &ImportHandler{
		importFlow: importFlow,
		validator:  validator.New(),
	}
}

// UploadFile accepts the CSV file and opens an import session
func (h *ImportHandler) UploadFile(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "CSV file is required", "MISSING_FILE", nil)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to open uploaded file", "INVALID_FILE", nil)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read uploaded file", "INVALID_FILE", nil)
	}

	req := &dto.UploadImportFileRequest{
		CampaignUUID: campaignUUID,
		FileName:     fileHeader.Filename,
		Data:         data,
	}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.importFlow.Upload(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/import"), req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Import upload failed", err)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import upload failed", "IMPORT_UPLOAD_FAILED", err.Error())
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Import session opened", result)
}

// MapColumns assigns column roles and validates the rows
func (h *ImportHandler) MapColumns(c fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import session id is required", "MISSING_SESSION_ID", nil)
	}

	var req dto.MapImportColumnsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.SessionID = sessionID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.importFlow.MapColumns(h.createRequestContext(c, "/api/v1/import/"+sessionID+"/map"), &req)
	if err != nil {
		if businessflow.IsImportSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Import session not found or expired", "IMPORT_SESSION_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}

		log.Println("Import mapping failed", err)
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import mapping failed", "IMPORT_MAPPING_FAILED", err.Error())
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Columns mapped and rows validated", result)
}

// Preview returns the validation outcome of a mapped session
func (h *ImportHandler) Preview(c fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import session id is required", "MISSING_SESSION_ID", nil)
	}

	result, err := h.importFlow.Preview(h.createRequestContext(c, "/api/v1/import/"+sessionID+"/preview"), sessionID)
	if err != nil {
		if businessflow.IsImportSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Import session not found or expired", "IMPORT_SESSION_NOT_FOUND", nil)
		}
		if businessflow.IsImportStageInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Import session is not mapped yet", "IMPORT_STAGE_INVALID", nil)
		}

		log.Println("Import preview failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Import preview failed", "IMPORT_PREVIEW_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Import preview retrieved", result)
}

// Commit persists the previously validated rows
func (h *ImportHandler) Commit(c fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import session id is required", "MISSING_SESSION_ID", nil)
	}

	req := &dto.CommitImportRequest{SessionID: sessionID}
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.importFlow.Commit(h.createRequestContext(c, "/api/v1/import/"+sessionID+"/commit"), req, metadata)
	if err != nil {
		if businessflow.IsImportSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Import session not found or expired", "IMPORT_SESSION_NOT_FOUND", nil)
		}
		if businessflow.IsImportStageInvalid(err) {
			return h.ErrorResponse(c, fiber.StatusConflict, "Import session is not ready to commit", "IMPORT_STAGE_INVALID", nil)
		}

		log.Println("Import commit failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Import commit failed", "IMPORT_COMMIT_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Import committed successfully", result)
}

// Abandon discards an import session
func (h *ImportHandler) Abandon(c fiber.Ctx) error {
	sessionID := c.Params("session")
	if sessionID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Import session id is required", "MISSING_SESSION_ID", nil)
	}

	if err := h.importFlow.Abandon(h.createRequestContext(c, "/api/v1/import/"+sessionID), sessionID); err != nil {
		if businessflow.IsImportSessionNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Import session not found or expired", "IMPORT_SESSION_NOT_FOUND", nil)
		}

		log.Println("Import abandon failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Import abandon failed", "IMPORT_ABANDON_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Import session abandoned", nil)
}

func (h *ImportHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 60*time.Second)
}
