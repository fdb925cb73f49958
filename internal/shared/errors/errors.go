// Package errors provides the API error types and the JSON error writer.
package errors

import (
	"encoding/json"
	"net/http"
	"strconv"
)

// PrayerError is the base error type for all errors surfaced to API clients.
type PrayerError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	StatusCode int            `json:"-"`
	Details    map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *PrayerError) Error() string {
	return e.Message
}

// ErrorResponse represents the JSON error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the error details.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ValidationError represents a 400 Bad Request error for invalid input.
func ValidationError(message string) *PrayerError {
	return &PrayerError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

// NotFoundError represents a 404 Not Found error.
func NotFoundError(message string) *PrayerError {
	return &PrayerError{
		Code:       "NOT_FOUND",
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

// InvalidTransitionError is a 409 for a timer command that does not apply to
// the current state. The current state is echoed back so clients can resync.
func InvalidTransitionError(message string, state string, elapsedSeconds int64) *PrayerError {
	return &PrayerError{
		Code:       "INVALID_TRANSITION",
		Message:    message,
		StatusCode: http.StatusConflict,
		Details: map[string]any{
			"state":           state,
			"elapsed_seconds": elapsedSeconds,
		},
	}
}

// SessionTooShortError is a 422 for a commit below the recording minimum.
func SessionTooShortError(elapsedSeconds, minSeconds int64) *PrayerError {
	return &PrayerError{
		Code:       "SESSION_TOO_SHORT",
		Message:    "Session is too short to be recorded",
		StatusCode: http.StatusUnprocessableEntity,
		Details: map[string]any{
			"elapsed_seconds": elapsedSeconds,
			"min_seconds":     minSeconds,
		},
	}
}

// RateLimitedError represents a 429 Too Many Requests error. WriteError sets
// Retry-After from the retry_after_seconds detail.
func RateLimitedError(retryAfter int) *PrayerError {
	return &PrayerError{
		Code:       "RATE_LIMITED",
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
		Details: map[string]any{
			"retry_after_seconds": retryAfter,
		},
	}
}

// UnauthorizedError represents a 401 Unauthorized error.
func UnauthorizedError(message string) *PrayerError {
	return &PrayerError{
		Code:       "UNAUTHORIZED",
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// InternalError represents a 500 Internal Server Error.
// Note: This should NOT expose internal details to the client.
func InternalError() *PrayerError {
	return &PrayerError{
		Code:       "INTERNAL_ERROR",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}
}

// WriteError writes an error response to the HTTP response writer.
// It ensures no internal details are exposed in the response.
func WriteError(w http.ResponseWriter, err error) {
	var statusCode int
	var response ErrorResponse

	switch e := err.(type) {
	case *PrayerError:
		statusCode = e.StatusCode
		if retryAfter, ok := e.Details["retry_after_seconds"].(int); ok {
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		}
		response = ErrorResponse{
			Error: ErrorDetail{
				Code:    e.Code,
				Message: e.Message,
				Details: e.Details,
			},
		}
	default:
		// For unknown errors, return a generic internal error
		// to avoid exposing internal details
		statusCode = http.StatusInternalServerError
		response = ErrorResponse{
			Error: ErrorDetail{
				Code:    "INTERNAL_ERROR",
				Message: "An internal error occurred",
			},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
