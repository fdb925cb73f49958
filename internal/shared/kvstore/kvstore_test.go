package kvstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"pgregory.net/rapid"

	"prayer-tracker/internal/shared/clock"
	"prayer-tracker/internal/shared/database"
)

func setupTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kvstore_test_*.db")
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

func TestSQLiteStore_GetMissingKey(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSQLiteStore(db, nil)
	_, err := store.Get(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteStore_SetOverwrites(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewSQLiteStore(db, nil)

	if err := store.Set(ctx, "timer.snapshot", []byte("first")); err != nil {
		t.Fatalf("first set failed: %v", err)
	}
	if err := store.Set(ctx, "timer.snapshot", []byte("second")); err != nil {
		t.Fatalf("second set failed: %v", err)
	}

	got, err := store.Get(ctx, "timer.snapshot")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if string(got) != "second" {
		t.Fatalf("expected last write to win, got %q", got)
	}
}

func TestSQLiteStore_StampsUpdatedAtFromClock(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	at := time.Date(2024, 2, 1, 6, 0, 0, 0, time.UTC)
	store := NewSQLiteStore(db, clock.NewFake(at))
	if err := store.Set(context.Background(), "timer.snapshot", []byte("v")); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	var updatedAt string
	if err := db.QueryRow("SELECT updated_at FROM kv WHERE key = ?", "timer.snapshot").Scan(&updatedAt); err != nil {
		t.Fatalf("read updated_at: %v", err)
	}
	if updatedAt != "2024-02-01T06:00:00Z" {
		t.Fatalf("expected updated_at from clock, got %q", updatedAt)
	}
}

// Any value written is read back unchanged, for both implementations.
func TestStores_RoundTrip(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	stores := map[string]Store{
		"sqlite": NewSQLiteStore(db, nil),
		"memory": NewMemoryStore(),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				key := rapid.StringMatching(`[a-z.]{1,20}`).Draw(t, "key")
				value := rapid.SliceOfN(rapid.Byte(), 1, 64).Draw(t, "value")

				if err := store.Set(context.Background(), key, value); err != nil {
					t.Fatalf("set failed: %v", err)
				}
				got, err := store.Get(context.Background(), key)
				if err != nil {
					t.Fatalf("get failed: %v", err)
				}
				if string(got) != string(value) {
					t.Fatalf("expected %v, got %v", value, got)
				}
			})
		})
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	value := []byte("abc")
	if err := store.Set(ctx, "k", value); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	value[0] = 'z'

	got, _ := store.Get(ctx, "k")
	if string(got) != "abc" {
		t.Fatalf("stored value was aliased to caller slice: %q", got)
	}
}
