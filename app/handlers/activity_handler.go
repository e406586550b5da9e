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

// ActivityHandlerInterface defines the contract for activity log handlers
type ActivityHandlerInterface interface {
	ListActivity(c fiber.Ctx) error
	ClearActivity(c fiber.Ctx) error
}

// ActivityHandler handles activity log HTTP requests
type ActivityHandler struct {
	activityFlow businessflow.ActivityFlow
	validator    *validator.Validate
}

func (h *ActivityHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *ActivityHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewActivityHandler creates a new activity handler
func NewActivityHandler(activityFlow businessflow.ActivityFlow) *ActivityHandler {
	return &ActivityHandler{
		activityFlow: activityFlow,
		validator:    validator.New(),
	}
}

// ListActivity returns a page of activity entries, newest first
func (h *ActivityHandler) ListActivity(c fiber.Ctx) error {
	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 50
	if v, err := strconv.Atoi(c.Query("page_size", "50")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > 200 {
		pageSize = 200
	}

	req := &dto.ListActivityRequest{
		Page:     page,
		PageSize: pageSize,
	}
	if campaign := c.Query("campaign"); campaign != "" {
		req.CampaignUUID = &campaign
	}
	if action := c.Query("action"); action != "" {
		req.Action = &action
	}
	if source := c.Query("source"); source != "" {
		req.Source = &source
	}

	if err := h.validator.Struct(req); err != nil {
		var validationErrors []string
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, getValidationErrorMessage(err))
		}
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}

	result, err := h.activityFlow.List(h.createRequestContext(c, "/api/v1/activity"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("List activity failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list activity", "LIST_ACTIVITY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Activity retrieved successfully", result)
}

// ClearActivity wipes the activity log
func (h *ActivityHandler) ClearActivity(c fiber.Ctx) error {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.activityFlow.Clear(h.createRequestContext(c, "/api/v1/activity"), metadata)
	if err != nil {
		log.Println("Clear activity failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to clear activity", "CLEAR_ACTIVITY_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Activity log cleared", result)
}

func (h *ActivityHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
