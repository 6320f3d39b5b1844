package server

import "encoding/json"

// ErrorResponse represents a standardized error response format
type ErrorResponse struct {
	Error   string `json:"error"`             // Human-readable error message
	Code    int    `json:"code"`              // HTTP status code
	Details any    `json:"details,omitempty"` // Additional error details (dev mode only)
}

// HealthResponse represents the health check response
type HealthResponse struct {
	OK bool `json:"ok"` // Service health status
}

// MetricsRequest is the ingestion envelope: a discriminant plus the
// event-specific payload, decoded downstream per eventType
type MetricsRequest struct {
	EventType string          `json:"eventType"` // entrance, swap, lending or earn
	Payload   json.RawMessage `json:"payload"`   // Event-specific body, absent for entrance
}

// AckResponse acknowledges a recorded metrics event
type AckResponse struct {
	Status string `json:"status"` // Always "recorded" on success
}

// ToggleSetRequest represents a request to create or update a runtime switch
type ToggleSetRequest struct {
	Name  string `json:"name"`  // Switch name (must match regex pattern)
	Value bool   `json:"value"` // Switch value (true/false)
}
