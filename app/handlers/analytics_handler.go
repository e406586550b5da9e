package handlers

import (
	"context"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/invitewave/invitewave/app/dto"
	businessflow "github.com/invitewave/invitewave/business_flow"
)

// AnalyticsHandlerInterface defines the contract for analytics handlers
type AnalyticsHandlerInterface interface {
	RefreshAnalytics(c fiber.Ctx) error
	GetAnalytics(c fiber.Ctx) error
}

// AnalyticsHandler handles analytics HTTP requests
type AnalyticsHandler struct {
	analyticsFlow businessflow.AnalyticsFlow
	validator     *validator.Validate
}

func (h *AnalyticsHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *AnalyticsHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsFlow businessflow.AnalyticsFlow) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsFlow: analyticsFlow,
		validator:     validator.New(),
	}
}

// RefreshAnalytics recomputes the snapshot for one campaign/site/day
func (h *AnalyticsHandler) RefreshAnalytics(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.RefreshAnalyticsRequest
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

	result, err := h.analyticsFlow.Refresh(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/analytics/refresh"), &req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}

		log.Println("Analytics refresh failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Analytics refresh failed", "ANALYTICS_REFRESH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics refreshed successfully", result)
}

// GetAnalytics reads snapshots for a date range
func (h *AnalyticsHandler) GetAnalytics(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	req := &dto.GetAnalyticsRequest{
		CampaignUUID: campaignUUID,
		SiteHandle:   c.Query("site"),
		From:         c.Query("from"),
		To:           c.Query("to"),
	}
	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.analyticsFlow.Get(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/analytics"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}

		log.Println("Get analytics failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to get analytics", "GET_ANALYTICS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved successfully", result)
}

func (h *AnalyticsHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
