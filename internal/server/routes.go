package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// RegisterRoutes configures all API routes, middleware, and error handlers
func RegisterRoutes(e *echo.Echo, h *Handlers, cfg ServerConfig) {
	// Set custom error handler for consistent JSON responses
	e.HTTPErrorHandler = NotFoundJSON()

	// Apply global middleware
	e.Use(SetJSONContentType) // Ensure all responses are JSON
	e.Use(SetNoCacheHeaders)  // Prevent caching of API responses

	// Optional API key authentication
	if cfg.APIKey != "" {
		e.Use(middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			KeyLookup: "header:X-API-Key", // Look for API key in X-API-Key header
			Validator: func(key string, c echo.Context) (bool, error) {
				return key == cfg.APIKey, nil // Simple string comparison
			},
		}))
	}

	// API v1 routes
	v1 := e.Group("/v1")
	v1.GET("/health", h.Health) // Health check endpoint

	// Ingestion endpoint with rate limiting: bursts of event batches are
	// fine, sustained floods are not
	metrics := v1.Group("/metrics")
	metrics.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(50), // 50 events per second per client
		Burst:     100,            // Allow burst of 100 events
		ExpiresIn: 2 * time.Minute,
	})))
	metrics.POST("", h.Metrics) // Record one activity event

	v1.POST("/analytics", h.Analytics) // Resolve one analytics query

	// Runtime switch CRUD endpoints, registered only when a toggle store
	// is wired in
	if h.Toggles != nil {
		toggleGroup := v1.Group("/toggles")
		toggleGroup.GET("", h.TogglesList)
		toggleGroup.POST("", h.TogglesSet)
		toggleGroup.GET("/:name", h.TogglesGet)
		toggleGroup.DELETE("/:name", h.TogglesDelete)
	}

	// Catch-all route for 404 responses
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found", Code: http.StatusNotFound})
	})
}
