package api

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/baditaflorin/go_startup_os/internal/middleware"
)

// ErrorCode represents application-specific error codes.
type ErrorCode string

const (
	ErrorCodeInvalidRequest   ErrorCode = "INVALID_REQUEST"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeServiceNotFound  ErrorCode = "SERVICE_NOT_FOUND"
	ErrorCodeSweepInProgress  ErrorCode = "SWEEP_IN_PROGRESS"
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrorCodeStreaming        ErrorCode = "STREAMING_UNSUPPORTED"
	ErrorCodeMonitorStopped   ErrorCode = "MONITOR_STOPPED"
)

// ErrorResponse represents the standard error response format.
type ErrorResponse struct {
	Status    string    `json:"status"`
	ErrorCode ErrorCode `json:"error_code"`
	Message   string    `json:"message"`
	RequestID string    `json:"request_id,omitempty"`
}

// ErrorWriter writes error envelopes and logs them.
type ErrorWriter struct {
	logger *zap.Logger
}

// NewErrorWriter creates a new error writer.
func NewErrorWriter(logger *zap.Logger) *ErrorWriter {
	return &ErrorWriter{logger: logger}
}

// Write sends an error envelope with the request's ID.
func (e *ErrorWriter) Write(w http.ResponseWriter, r *http.Request, statusCode int, code ErrorCode, message string) {
	requestID := middleware.GetRequestID(r.Context())

	e.logger.Warn("HTTP error response",
		zap.Int("status_code", statusCode),
		zap.String("error_code", string(code)),
		zap.String("message", message),
		zap.String("request_id", requestID),
	)

	writeJSON(w, statusCode, ErrorResponse{
		Status:    "error",
		ErrorCode: code,
		Message:   message,
		RequestID: requestID,
	})
}

// NotFound is the router's fallback for unknown API paths.
func (e *ErrorWriter) NotFound(w http.ResponseWriter, r *http.Request) {
	e.Write(w, r, http.StatusNotFound, ErrorCodeNotFound, "endpoint not found")
}

// MethodNotAllowed is the router's fallback for known paths.
func (e *ErrorWriter) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	e.Write(w, r, http.StatusMethodNotAllowed, ErrorCodeMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
