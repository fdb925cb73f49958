// Package database provides SQLite connection management and table initialization.
package database

import (
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database connection with initialization logic.
type DB struct {
	*sql.DB
	path string
	mu   sync.Mutex
}

// New creates a new database connection and initializes tables.
func New(dbPath string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := sqlDB.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	// SQLite allows a single writer; one connection keeps the snapshot and
	// ledger writes serialized in issue order.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	db := &DB{
		DB:   sqlDB,
		path: dbPath,
	}

	if err := db.initTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}

	return db, nil
}

// initTables creates the kv and prayer_sessions tables with indexes.
func (db *DB) initTables() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	kvTableSQL := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);`

	if _, err := db.Exec(kvTableSQL); err != nil {
		return fmt.Errorf("failed to create kv table: %w", err)
	}

	// rowid preserves ledger append order.
	sessionsTableSQL := `
	CREATE TABLE IF NOT EXISTS prayer_sessions (
		id TEXT PRIMARY KEY,
		duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 1),
		created_at TEXT NOT NULL,
		label TEXT NOT NULL
	);`

	if _, err := db.Exec(sessionsTableSQL); err != nil {
		return fmt.Errorf("failed to create prayer_sessions table: %w", err)
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_prayer_sessions_created_at ON prayer_sessions(created_at);"); err != nil {
		return fmt.Errorf("failed to create prayer_sessions index: %w", err)
	}

	return nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}
