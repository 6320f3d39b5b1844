package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"dapp-metrics/internal/aggregator"
	"dapp-metrics/internal/analytics"
	"dapp-metrics/internal/models"
	"dapp-metrics/internal/toggles"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// Handlers contains all dependencies for API endpoint handlers
type Handlers struct {
	Aggregator *aggregator.Aggregator // Event ingestion write path
	Resolver   *analytics.Resolver    // Analytics read path
	Toggles    *toggles.Store         // Runtime switches (optional, can be nil)
	DevMode    bool                   // Enable detailed error responses in development
	Logger     *logrus.Logger         // Structured logger
}

// err returns a standardized JSON error response
// In dev mode, includes additional error details for debugging
func (h *Handlers) err(c echo.Context, code int, msg string, details any) error {
	resp := ErrorResponse{Error: msg, Code: code}
	if h.DevMode && details != nil {
		resp.Details = details
	}
	return c.JSON(code, resp)
}

// withTimeout creates a context with timeout, defaulting to 10 seconds if duration <= 0
func (h *Handlers) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = 10 * time.Second
	}
	return context.WithTimeout(ctx, d)
}

// Health returns a simple health check endpoint
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{OK: true})
}

// Metrics ingests one activity event. Validation problems come back as 400
// with the offending field names; everything else is a 500 so upstream
// delivery retries the event.
func (h *Handlers) Metrics(c echo.Context) error {
	var req MetricsRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	req.EventType = strings.TrimSpace(req.EventType)
	if req.EventType == "" {
		return h.err(c, http.StatusBadRequest, "eventType is required", map[string]any{"eventType": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if h.Toggles != nil && !h.Toggles.Enabled(ctx, toggles.IngestEnabled, true) {
		return h.err(c, http.StatusServiceUnavailable, "ingestion is paused", nil)
	}

	if err := h.Aggregator.Ingest(ctx, req.EventType, req.Payload); err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			return h.err(c, http.StatusBadRequest, "invalid payload", map[string]any{"fields": verr.Fields})
		case errors.Is(err, aggregator.ErrUnsupportedEvent):
			return h.err(c, http.StatusBadRequest, "unsupported event type", map[string]any{"eventType": req.EventType})
		default:
			h.Logger.WithError(err).WithField("event_type", req.EventType).Error("event ingestion failed")
			return h.err(c, http.StatusInternalServerError, "failed to record event", nil)
		}
	}
	return c.JSON(http.StatusOK, AckResponse{Status: "recorded"})
}

// Analytics resolves one query. Point queries answer with a single object,
// series queries with an array ordered most-recent-first.
func (h *Handlers) Analytics(c echo.Context) error {
	var req models.QueryRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if strings.TrimSpace(req.QueryType) == "" {
		return h.err(c, http.StatusBadRequest, "queryType is required", map[string]any{"queryType": "required"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	out, err := h.Resolver.Resolve(ctx, req)
	if err != nil {
		var verr *models.ValidationError
		switch {
		case errors.As(err, &verr):
			return h.err(c, http.StatusBadRequest, "invalid query", map[string]any{"fields": verr.Fields})
		case errors.Is(err, analytics.ErrUnsupportedQuery):
			return h.err(c, http.StatusBadRequest, "unsupported query type", map[string]any{"queryType": req.QueryType})
		default:
			h.Logger.WithError(err).WithField("query_type", req.QueryType).Error("query resolution failed")
			return h.err(c, http.StatusInternalServerError, "failed to resolve query", nil)
		}
	}
	return c.JSON(http.StatusOK, out)
}

// TogglesList returns all runtime switches
func (h *Handlers) TogglesList(c echo.Context) error {
	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, err := h.Toggles.List(ctx)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to list toggles", nil)
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

// TogglesSet creates or updates a runtime switch
func (h *Handlers) TogglesSet(c echo.Context) error {
	var req ToggleSetRequest
	if err := c.Bind(&req); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid json", nil)
	}
	if err := toggles.ValidateName(req.Name); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid name", map[string]any{"name": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Toggles.Set(ctx, req.Name, req.Value)
	if err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to set toggle", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// TogglesGet retrieves one runtime switch, 404 when it was never set
func (h *Handlers) TogglesGet(c echo.Context) error {
	name := c.Param("name")
	if err := toggles.ValidateName(name); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid name", map[string]any{"name": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	out, err := h.Toggles.Get(ctx, name)
	if err != nil {
		if errors.Is(err, toggles.ErrNotFound) {
			return h.err(c, http.StatusNotFound, "toggle not found", nil)
		}
		return h.err(c, http.StatusInternalServerError, "failed to get toggle", nil)
	}
	return c.JSON(http.StatusOK, out)
}

// TogglesDelete removes a runtime switch, reverting its gate to the default
func (h *Handlers) TogglesDelete(c echo.Context) error {
	name := c.Param("name")
	if err := toggles.ValidateName(name); err != nil {
		return h.err(c, http.StatusBadRequest, "invalid name", map[string]any{"name": "invalid format"})
	}

	ctx, cancel := h.withTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Toggles.Delete(ctx, name); err != nil {
		return h.err(c, http.StatusInternalServerError, "failed to delete toggle", nil)
	}
	return c.NoContent(http.StatusNoContent)
}
