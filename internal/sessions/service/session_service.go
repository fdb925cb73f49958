package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"time"

	"prayer-tracker/internal/sessions/models"
	"prayer-tracker/internal/sessions/repository"
	"prayer-tracker/internal/sessions/stats"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/config"
)

// Session service errors
var (
	ErrSessionNotFound = errors.New("session not found")
)

// StatsResponse is the aggregate view of the ledger.
type StatsResponse struct {
	stats.Stats
	Timezone string           `json:"timezone"`
	Daily    []stats.DayTotal `json:"daily"`
}

// SessionService handles read and delete operations on the ledger.
type SessionService struct {
	repo  repository.Ledger
	clock clock.Clock
	loc   *time.Location
}

// NewSessionService creates a new SessionService. Calendar days for
// statistics are taken in loc.
func NewSessionService(repo repository.Ledger, clk clock.Clock, loc *time.Location) *SessionService {
	if clk == nil {
		clk = clock.System
	}
	if loc == nil {
		loc = time.Local
	}
	return &SessionService{
		repo:  repo,
		clock: clk,
		loc:   loc,
	}
}

// GetSessions retrieves a page of records, newest first.
func (s *SessionService) GetSessions(ctx context.Context, limit, offset int) (*models.PaginatedResponse[models.SessionResponse], error) {
	if limit <= 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	records, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]models.SessionResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, rec.ToResponse())
	}

	return &models.PaginatedResponse[models.SessionResponse]{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetSession returns one record. Returns ErrSessionNotFound if absent.
func (s *SessionService) GetSession(ctx context.Context, id string) (*models.SessionResponse, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrSessionNotFound
	}
	resp := rec.ToResponse()
	return &resp, nil
}

// DeleteSession removes a record at the user's request.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	if errors.Is(err, repository.ErrSessionNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Stats computes aggregate statistics over the whole ledger.
func (s *SessionService) Stats(ctx context.Context) (*StatsResponse, error) {
	records, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	return &StatsResponse{
		Stats:    stats.Compute(records, now, s.loc),
		Timezone: s.loc.String(),
		Daily:    stats.DailyTotals(records, now, s.loc, config.StatsDays),
	}, nil
}

// ExportCSV exports the ledger as CSV with UTF-8 BOM for Excel compatibility.
// Timestamps are written in the configured timezone.
func (s *SessionService) ExportCSV(ctx context.Context) ([]byte, error) {
	records, err := s.repo.List(ctx, config.MaxExportLimit, 0)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(&buf)

	header := []string{"id", "label", "created_at", "date", "duration_minutes"}
	if err := writer.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, rec := range records {
		local := rec.CreatedAt.In(s.loc)
		row := []string{
			rec.ID,
			rec.Label,
			local.Format(time.RFC3339),
			local.Format("2006-01-02"),
			fmt.Sprintf("%d", rec.DurationMinutes),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}
