// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/invitewave/invitewave/app/dto"
	"github.com/invitewave/invitewave/app/handlers"
	"github.com/invitewave/invitewave/app/middleware"
	"github.com/invitewave/invitewave/config"
	"github.com/invitewave/invitewave/utils"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app              *fiber.App
	campaignHandler  handlers.CampaignHandlerInterface
	recipientHandler handlers.RecipientHandlerInterface
	importHandler    handlers.ImportHandlerInterface
	dispatchHandler  handlers.DispatchHandlerInterface
	analyticsHandler handlers.AnalyticsHandlerInterface
	activityHandler  handlers.ActivityHandlerInterface
	securityCfg      config.SecurityConfig
	metricsCfg       config.MetricsConfig
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	campaignHandler handlers.CampaignHandlerInterface,
	recipientHandler handlers.RecipientHandlerInterface,
	importHandler handlers.ImportHandlerInterface,
	dispatchHandler handlers.DispatchHandlerInterface,
	analyticsHandler handlers.AnalyticsHandlerInterface,
	activityHandler handlers.ActivityHandlerInterface,
	securityCfg config.SecurityConfig,
	metricsCfg config.MetricsConfig,
) Router {
	app := fiber.New(fiber.Config{
		AppName:      "Invitewave API",
		ServerHeader: "Invitewave",
		ErrorHandler: errorHandler,
		BodyLimit:    16 * 1024 * 1024, // imports upload CSV files
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:              app,
		campaignHandler:  campaignHandler,
		recipientHandler: recipientHandler,
		importHandler:    importHandler,
		dispatchHandler:  dispatchHandler,
		analyticsHandler: analyticsHandler,
		activityHandler:  activityHandler,
		securityCfg:      securityCfg,
		metricsCfg:       metricsCfg,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	r.setupMiddleware()

	// Open beacons live outside /api/v1 so templates can embed short URLs.
	// They are excluded from rate limiting: a popular campaign hits them hard.
	r.app.Get("/t/:uuid/:site/:code/:channel", r.recipientHandler.TrackOpen)

	api := r.app.Group("/api/v1")

	api.Get("/health", r.healthCheck)

	api.Use(limiter.New(limiter.Config{
		Max:        r.securityCfg.RateLimitPerMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	// Sites
	api.Get("/sites", r.campaignHandler.ListSites)

	// Campaigns
	campaigns := api.Group("/campaigns")
	campaigns.Post("/", r.campaignHandler.CreateCampaign)
	campaigns.Get("/", r.campaignHandler.ListCampaigns)
	campaigns.Get("/:uuid", r.campaignHandler.GetCampaign)
	campaigns.Put("/:uuid", r.campaignHandler.UpdateCampaign)
	campaigns.Delete("/:uuid", r.campaignHandler.DeleteCampaign)
	campaigns.Put("/:uuid/content", r.campaignHandler.UpsertContent)

	// Recipients
	campaigns.Post("/:uuid/recipients", r.recipientHandler.CreateRecipient)
	campaigns.Get("/:uuid/recipients", r.recipientHandler.ListRecipients)
	campaigns.Delete("/:uuid/recipients/:id", r.recipientHandler.DeleteRecipient)
	campaigns.Post("/:uuid/recipients/bulk-delete", r.recipientHandler.BulkDeleteRecipients)
	campaigns.Get("/:uuid/recipients/export", r.recipientHandler.ExportRecipients)

	// Import wizard
	campaigns.Post("/:uuid/import", r.importHandler.UploadFile)
	imports := api.Group("/import")
	imports.Post("/:session/map", r.importHandler.MapColumns)
	imports.Get("/:session/preview", r.importHandler.Preview)
	imports.Post("/:session/commit", r.importHandler.Commit)
	imports.Delete("/:session", r.importHandler.Abandon)

	// Dispatch
	campaigns.Post("/:uuid/dispatch", r.dispatchHandler.DispatchCampaign)
	campaigns.Get("/:uuid/dispatch-tasks", r.dispatchHandler.ListDispatchTasks)
	campaigns.Post("/:uuid/dispatch-tasks/:id/cancel", r.dispatchHandler.CancelDispatchTask)

	// Analytics
	campaigns.Post("/:uuid/analytics/refresh", r.analyticsHandler.RefreshAnalytics)
	campaigns.Get("/:uuid/analytics", r.analyticsHandler.GetAnalytics)

	// Submission webhook from the external form engine
	campaigns.Post("/:uuid/submissions", r.recipientHandler.SubmissionWebhook)

	// Activity log
	api.Get("/activity", r.activityHandler.ListActivity)
	api.Delete("/activity", r.activityHandler.ClearActivity)

	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// setupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		XDNSPrefetchControl:   "off",
		XDownloadOptions:      "noopen",
		XPermittedCrossDomain: "none",
	}))

	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.securityCfg.AllowedOrigins,
		AllowMethods: []string{
			"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"X-Requested-With",
			"X-Request-ID",
			"Cache-Control",
		},
		ExposeHeaders: []string{
			"X-Request-ID",
			"Content-Disposition",
		},
		AllowCredentials: true,
		MaxAge:           utils.CORSMaxAge,
	}))

	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			contentType := c.Get("Content-Type")
			return contains(contentType, "image/")
		},
	}))

	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			return c.Path() == "/api/v1/health"
		},
	}))

	if r.metricsCfg.Enabled {
		r.app.Use(middleware.Metrics())
	}

	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "invitewave-api",
		},
	})
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	log.Printf("Error %d: %v", code, err)

	requestID := c.Locals("requestid")

	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	for i := 0; i+len(substr) <= len(str); i++ {
		if str[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
