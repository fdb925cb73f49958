package repository

import (
	"context"

	"prayer-tracker/internal/sessions/models"
)

// Ledger is the append-only session record collection.
type Ledger interface {
	Append(ctx context.Context, rec models.SessionRecord) error
	All(ctx context.Context) ([]models.SessionRecord, error)
	List(ctx context.Context, limit, offset int) ([]models.SessionRecord, error)
	Count(ctx context.Context) (int64, error)
	GetByID(ctx context.Context, id string) (*models.SessionRecord, error)
	Delete(ctx context.Context, id string) error
}
