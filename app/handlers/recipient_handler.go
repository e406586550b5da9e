package handlers

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/invitewave/invitewave/app/dto"
	businessflow "github.com/invitewave/invitewave/business_flow"
)

// trackingPixel is a 1x1 transparent GIF served by the open beacons
var trackingPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xFF, 0xFF, 0xFF, 0x21, 0xF9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2C, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3B,
}

// RecipientHandlerInterface defines the contract for recipient handlers
type RecipientHandlerInterface interface {
	CreateRecipient(c fiber.Ctx) error
	ListRecipients(c fiber.Ctx) error
	DeleteRecipient(c fiber.Ctx) error
	BulkDeleteRecipients(c fiber.Ctx) error
	ExportRecipients(c fiber.Ctx) error
	SubmissionWebhook(c fiber.Ctx) error
	TrackOpen(c fiber.Ctx) error
}

// RecipientHandler handles recipient-related HTTP requests
type RecipientHandler struct {
	recipientFlow businessflow.RecipientFlow
	validator     *validator.Validate
}

func (h *RecipientHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *RecipientHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewRecipientHandler creates a new recipient handler
func NewRecipientHandler(recipientFlow businessflow.RecipientFlow) *RecipientHandler {
	return &RecipientHandler{
		recipientFlow: recipientFlow,
		validator:     validator.New(),
	}
}

// CreateRecipient adds one recipient manually
func (h *RecipientHandler) CreateRecipient(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.CreateRecipientRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.recipientFlow.Create(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}
		if businessflow.IsInvalidEmail(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", "INVALID_EMAIL", nil)
		}
		if businessflow.IsInvalidPhone(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid phone number", "INVALID_PHONE", nil)
		}

		log.Println("Recipient creation failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient creation failed", "RECIPIENT_CREATION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusCreated, "Recipient created successfully", result)
}

// ListRecipients returns a page of recipients for one campaign/site scope
func (h *RecipientHandler) ListRecipients(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 50
	if v, err := strconv.Atoi(c.Query("page_size", "50")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > 500 {
		pageSize = 500
	}

	req := &dto.ListRecipientsRequest{
		CampaignUUID: campaignUUID,
		SiteHandle:   c.Query("site"),
		Page:         page,
		PageSize:     pageSize,
	}
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.recipientFlow.List(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}

		log.Println("List recipients failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list recipients", "LIST_RECIPIENTS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients retrieved successfully", result)
}

// DeleteRecipient removes one recipient
func (h *RecipientHandler) DeleteRecipient(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	recipientID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if campaignUUID == "" || err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID and recipient id are required", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	if err := h.recipientFlow.Delete(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients"), campaignUUID, uint(recipientID), metadata); err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsRecipientNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Recipient not found", "RECIPIENT_NOT_FOUND", nil)
		}

		log.Println("Recipient deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient deletion failed", "RECIPIENT_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipient deleted successfully", nil)
}

// BulkDeleteRecipients removes many recipients at once
func (h *RecipientHandler) BulkDeleteRecipients(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.BulkDeleteRecipientsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.recipientFlow.BulkDelete(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients/bulk-delete"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("Bulk recipient deletion failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Bulk recipient deletion failed", "BULK_DELETION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Recipients deleted successfully", result)
}

// ExportRecipients streams the scope's recipients as CSV, JSON or XLSX
func (h *RecipientHandler) ExportRecipients(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	req := &dto.ExportRecipientsRequest{
		CampaignUUID: campaignUUID,
		SiteHandle:   c.Query("site"),
		Format:       c.Query("format", "csv"),
	}
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.recipientFlow.Export(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/recipients/export"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}

		log.Println("Recipient export failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Recipient export failed", "EXPORT_FAILED", nil)
	}

	c.Set("Content-Type", result.ContentType)
	c.Set("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	return c.Status(fiber.StatusOK).Send(result.Data)
}

// SubmissionWebhook correlates an external form submission with a recipient
func (h *RecipientHandler) SubmissionWebhook(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.SubmissionEventRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.CampaignUUID = campaignUUID

	if err := h.validator.Struct(&req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.recipientFlow.HandleSubmission(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/submissions"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsInvitationCodeNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Invitation code not found", "INVITATION_CODE_NOT_FOUND", nil)
		}

		log.Println("Submission webhook failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Submission processing failed", "SUBMISSION_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Submission recorded successfully", result)
}

// TrackOpen serves the open beacon and records the open date, set once.
// Always answers with the pixel so broken codes do not break rendering.
func (h *RecipientHandler) TrackOpen(c fiber.Ctx) error {
	req := &dto.OpenTrackingRequest{
		CampaignUUID:   c.Params("uuid"),
		SiteHandle:     c.Params("site"),
		InvitationCode: c.Params("code"),
		Channel:        c.Params("channel"),
	}

	if err := h.recipientFlow.TrackOpen(h.createRequestContext(c, "/t/open"), req); err != nil {
		log.Println("Open tracking failed", err)
	}

	c.Set("Content-Type", "image/gif")
	c.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	return c.Status(fiber.StatusOK).Send(trackingPixel)
}

func (h *RecipientHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
