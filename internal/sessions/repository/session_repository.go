package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"prayer-tracker/internal/sessions/models"

	"prayer-tracker/internal/shared/database"
)

// ErrSessionNotFound is returned when deleting an unknown session.
var ErrSessionNotFound = errors.New("session not found")

const selectColumns = "SELECT id, duration_minutes, created_at, label FROM prayer_sessions"

// storedTimeLayout is fixed-width so created_at sorts lexically in time order.
const storedTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SessionRepository stores the session ledger in SQLite.
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Append inserts a record at the end of the ledger.
func (r *SessionRepository) Append(ctx context.Context, rec models.SessionRecord) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO prayer_sessions (id, duration_minutes, created_at, label) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.DurationMinutes, rec.CreatedAt.UTC().Format(storedTimeLayout), rec.Label,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// All returns every record in ledger (append) order.
func (r *SessionRepository) All(ctx context.Context) ([]models.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" ORDER BY rowid ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return scanSessions(rows)
}

// List retrieves records newest first with pagination.
func (r *SessionRepository) List(ctx context.Context, limit, offset int) ([]models.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		selectColumns+" ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?",
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	return scanSessions(rows)
}

// Count returns the number of records in the ledger.
func (r *SessionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prayer_sessions").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// GetByID retrieves a record by ID, or nil if none exists.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	var createdAt string

	err := r.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id).
		Scan(&rec.ID, &rec.DurationMinutes, &createdAt, &rec.Label)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	if rec.CreatedAt, err = time.Parse(storedTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	return &rec, nil
}

// Delete removes a record by ID. Deletion is a user action; the timer
// engine itself only appends.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM prayer_sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func scanSessions(rows *sql.Rows) ([]models.SessionRecord, error) {
	defer rows.Close()

	records := []models.SessionRecord{}
	for rows.Next() {
		var rec models.SessionRecord
		var createdAt string
		if err := rows.Scan(&rec.ID, &rec.DurationMinutes, &createdAt, &rec.Label); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		t, err := time.Parse(storedTimeLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		rec.CreatedAt = t
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating session rows: %w", err)
	}
	return records, nil
}
