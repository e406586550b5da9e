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

// DispatchHandlerInterface defines the contract for dispatch handlers
type DispatchHandlerInterface interface {
	DispatchCampaign(c fiber.Ctx) error
	ListDispatchTasks(c fiber.Ctx) error
	CancelDispatchTask(c fiber.Ctx) error
}

// DispatchHandler handles dispatch-related HTTP requests
type DispatchHandler struct {
	dispatchFlow businessflow.DispatchFlow
	validator    *validator.Validate
}

func (h *DispatchHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *DispatchHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(dispatchFlow businessflow.DispatchFlow) *DispatchHandler {
	return &DispatchHandler{
		dispatchFlow: dispatchFlow,
		validator:    validator.New(),
	}
}

// DispatchCampaign plans invitation batches for one campaign/site scope
func (h *DispatchHandler) DispatchCampaign(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	var req dto.DispatchCampaignRequest
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

	result, err := h.dispatchFlow.Dispatch(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/dispatch"), &req, metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsSiteNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Site not found", "SITE_NOT_FOUND", nil)
		}
		if businessflow.IsNoChannelRequested(err) {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "At least one channel must be requested", "NO_CHANNEL_REQUESTED", nil)
		}

		log.Println("Campaign dispatch failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Campaign dispatch failed", "DISPATCH_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch planned successfully", result)
}

// ListDispatchTasks returns a page of dispatch tasks for one campaign
func (h *DispatchHandler) ListDispatchTasks(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	if campaignUUID == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID is required", "MISSING_CAMPAIGN_UUID", nil)
	}

	page := 1
	if v, err := strconv.Atoi(c.Query("page", "1")); err == nil && v > 0 {
		page = v
	}
	pageSize := 20
	if v, err := strconv.Atoi(c.Query("page_size", "20")); err == nil && v > 0 {
		pageSize = v
	}
	if pageSize > 100 {
		pageSize = 100
	}

	req := &dto.ListDispatchTasksRequest{
		CampaignUUID: campaignUUID,
		Page:         page,
		PageSize:     pageSize,
	}

	result, err := h.dispatchFlow.ListTasks(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/dispatch-tasks"), req)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}

		log.Println("List dispatch tasks failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to list dispatch tasks", "LIST_TASKS_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch tasks retrieved successfully", result)
}

// CancelDispatchTask cancels one queued task
func (h *DispatchHandler) CancelDispatchTask(c fiber.Ctx) error {
	campaignUUID := c.Params("uuid")
	taskID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if campaignUUID == "" || err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Campaign UUID and task id are required", "INVALID_REQUEST", nil)
	}

	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))

	result, err := h.dispatchFlow.CancelTask(h.createRequestContext(c, "/api/v1/campaigns/"+campaignUUID+"/dispatch-tasks"), campaignUUID, uint(taskID), metadata)
	if err != nil {
		if businessflow.IsCampaignNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Campaign not found", "CAMPAIGN_NOT_FOUND", nil)
		}
		if businessflow.IsDispatchTaskNotFound(err) {
			return h.ErrorResponse(c, fiber.StatusNotFound, "Dispatch task not found", "DISPATCH_TASK_NOT_FOUND", nil)
		}

		log.Println("Cancel dispatch task failed", err)
		return h.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to cancel dispatch task", "CANCEL_TASK_FAILED", nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Dispatch task cancel processed", result)
}

func (h *DispatchHandler) createRequestContext(c fiber.Ctx, endpoint string) context.Context {
	return createRequestContextWithTimeout(c, endpoint, 30*time.Second)
}
