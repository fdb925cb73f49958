// Package models defines session ledger records and their validation.
package models

import (
	"errors"
	"fmt"
	"time"

	"prayer-tracker/internal/shared/config"
	"prayer-tracker/internal/shared/validation"
)

// LabelMaxLen bounds the free-form session label.
const LabelMaxLen = 200

// Validation errors
var (
	ErrLabelTooLong = errors.New("label must be at most 200 characters")
)

// ErrSessionTooShort is matched by RejectedError via errors.Is.
var ErrSessionTooShort = errors.New("too short to record")

// RejectedError reports a commit whose elapsed time was below the recording
// minimum. No record is created for it.
type RejectedError struct {
	ElapsedSeconds int64
	MinSeconds     int64
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("session of %ds is too short to record (minimum %ds)", e.ElapsedSeconds, e.MinSeconds)
}

// Is lets errors.Is(err, ErrSessionTooShort) match.
func (e *RejectedError) Is(target error) bool {
	return target == ErrSessionTooShort
}

// SessionRecord is one committed timer run. Records are never mutated.
type SessionRecord struct {
	ID              string
	DurationMinutes int
	CreatedAt       time.Time
	Label           string
}

// SessionCommit is the input for committing the running timer.
type SessionCommit struct {
	Label string `json:"label"`
}

// Validate sanitizes the label and applies the default.
func (s *SessionCommit) Validate() error {
	s.Label = validation.SanitizeString(validation.RemoveControlChars(s.Label))
	if s.Label == "" {
		s.Label = config.DefaultLabel
	}
	if !validation.ValidateStringLength(s.Label, 1, LabelMaxLen) {
		return ErrLabelTooLong
	}
	return nil
}

// SessionResponse represents a session returned from the API.
type SessionResponse struct {
	ID              string `json:"id"`
	DurationMinutes int    `json:"duration_minutes"`
	CreatedAt       string `json:"created_at"`
	Label           string `json:"label"`
}

// ToResponse converts a record to its API form.
func (r SessionRecord) ToResponse() SessionResponse {
	return SessionResponse{
		ID:              r.ID,
		DurationMinutes: r.DurationMinutes,
		CreatedAt:       FormatRFC3339(r.CreatedAt),
		Label:           r.Label,
	}
}

// PaginatedResponse wraps a list of items with pagination metadata.
type PaginatedResponse[T any] struct {
	Items  []T   `json:"items"`
	Total  int64 `json:"total"`
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
}

// FormatRFC3339 formats a time.Time to RFC3339 UTC string.
func FormatRFC3339(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
