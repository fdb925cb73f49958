package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"prayer-tracker/internal/sessions/models"
	"prayer-tracker/internal/sessions/repository"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/config"
)

// Recorder turns committed timer runs into ledger records.
type Recorder struct {
	ledger     repository.Ledger
	clock      clock.Clock
	minSeconds int64
	newID      func() string
}

// NewRecorder creates a Recorder. A non-positive minSeconds falls back to the
// default recording minimum.
func NewRecorder(ledger repository.Ledger, clk clock.Clock, minSeconds int64) *Recorder {
	if minSeconds <= 0 {
		minSeconds = config.DefaultMinSessionSeconds
	}
	if clk == nil {
		clk = clock.System
	}
	return &Recorder{
		ledger:     ledger,
		clock:      clk,
		minSeconds: minSeconds,
		newID:      func() string { return uuid.New().String() },
	}
}

// MinSeconds returns the shortest run that will be recorded.
func (r *Recorder) MinSeconds() int64 {
	return r.minSeconds
}

// Record appends a session for elapsedSeconds of practice. Runs shorter than
// the minimum return *models.RejectedError and leave the ledger untouched.
func (r *Recorder) Record(ctx context.Context, elapsedSeconds int64, label string) (*models.SessionRecord, error) {
	if elapsedSeconds < r.minSeconds {
		return nil, &models.RejectedError{ElapsedSeconds: elapsedSeconds, MinSeconds: r.minSeconds}
	}

	input := models.SessionCommit{Label: label}
	if err := input.Validate(); err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	rec := models.SessionRecord{
		ID:              r.newID(),
		DurationMinutes: DurationMinutes(elapsedSeconds),
		CreatedAt:       r.clock.Now(),
		Label:           input.Label,
	}
	if err := r.ledger.Append(ctx, rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DurationMinutes rounds seconds to the nearest minute, never below one.
func DurationMinutes(elapsedSeconds int64) int {
	m := int(math.Round(float64(elapsedSeconds) / 60))
	if m < 1 {
		return 1
	}
	return m
}
