package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"

	"prayer-tracker/internal/sessions/models"
	"prayer-tracker/internal/sessions/repository"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/database"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "service_test_*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	db, err := database.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create database: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(tmpFile.Name())
	}

	return db, cleanup
}

func setupRecorder(t *testing.T) (*Recorder, *repository.SessionRepository, *clock.Fake, func()) {
	t.Helper()
	db, cleanup := setupTestDB(t)
	repo := repository.NewSessionRepository(db)
	clk := clock.NewFake(time.Date(2024, 4, 2, 6, 0, 0, 0, time.UTC))
	return NewRecorder(repo, clk, 10), repo, clk, cleanup
}

func TestRecorder_RejectsShortSessions(t *testing.T) {
	rec, repo, _, cleanup := setupRecorder(t)
	defer cleanup()

	ctx := context.Background()
	got, err := rec.Record(ctx, 5, "x")
	if got != nil {
		t.Fatalf("expected no record, got %+v", got)
	}
	var rejected *models.RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected RejectedError, got %v", err)
	}
	if rejected.ElapsedSeconds != 5 || rejected.MinSeconds != 10 {
		t.Fatalf("unexpected rejection details: %+v", rejected)
	}

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected ledger unchanged, got %d records", count)
	}
}

func TestRecorder_RoundsToMinutes(t *testing.T) {
	tests := []struct {
		elapsed int64
		want    int
	}{
		{10, 1},
		{29, 1},
		{65, 1},
		{89, 1},
		{90, 2},
		{95, 2},
		{125, 2},
		{3600, 60},
	}

	rec, _, clk, cleanup := setupRecorder(t)
	defer cleanup()

	for _, tt := range tests {
		got, err := rec.Record(context.Background(), tt.elapsed, "x")
		if err != nil {
			t.Fatalf("record(%d) failed: %v", tt.elapsed, err)
		}
		if got.DurationMinutes != tt.want {
			t.Errorf("record(%d): expected %d minutes, got %d", tt.elapsed, tt.want, got.DurationMinutes)
		}
		if !got.CreatedAt.Equal(clk.Now()) {
			t.Errorf("record(%d): expected created_at from clock, got %v", tt.elapsed, got.CreatedAt)
		}
	}
}

func TestRecorder_AppendsToLedger(t *testing.T) {
	rec, repo, _, cleanup := setupRecorder(t)
	defer cleanup()

	ctx := context.Background()
	got, err := rec.Record(ctx, 300, "  Compline ")
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if got.ID == "" {
		t.Fatal("expected generated id")
	}
	if got.Label != "Compline" {
		t.Fatalf("expected sanitized label, got %q", got.Label)
	}

	stored, err := repo.GetByID(ctx, got.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if stored == nil || stored.DurationMinutes != 5 {
		t.Fatalf("expected stored 5-minute record, got %+v", stored)
	}
}

func TestNewRecorder_DefaultsMinimum(t *testing.T) {
	rec := NewRecorder(nil, nil, 0)
	if rec.MinSeconds() != 10 {
		t.Fatalf("expected default minimum 10, got %d", rec.MinSeconds())
	}
}

// Accepted runs always yield at least one minute and stay within half a
// minute of the true duration.
func TestRecorder_Property_DurationPolicy(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		elapsed := rapid.Int64Range(10, 24*3600).Draw(t, "elapsed")
		m := DurationMinutes(elapsed)
		if m < 1 {
			t.Fatalf("duration %d below one minute for %ds", m, elapsed)
		}
		if elapsed >= 30 {
			diff := int64(m)*60 - elapsed
			if diff < -30 || diff > 30 {
				t.Fatalf("rounding of %ds to %d minutes is off by %ds", elapsed, m, diff)
			}
		}
	})
}

func TestRecorder_Property_ShortRunsNeverRecorded(t *testing.T) {
	rec, repo, _, cleanup := setupRecorder(t)
	defer cleanup()

	rapid.Check(t, func(t *rapid.T) {
		elapsed := rapid.Int64Range(0, 9).Draw(t, "elapsed")
		if _, err := rec.Record(context.Background(), elapsed, "x"); !errors.Is(err, models.ErrSessionTooShort) {
			t.Fatalf("expected rejection for %ds, got %v", elapsed, err)
		}
	})

	count, _ := repo.Count(context.Background())
	if count != 0 {
		t.Fatalf("expected empty ledger, got %d", count)
	}
}
