package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const slotTimeLayout = time.RFC3339Nano

// SQLiteBackend persists slot values in one local SQLite file.
// Params: database handle and file path.
// Returns: durable backend surviving process restarts.
type SQLiteBackend struct {
	mu     sync.Mutex
	db     *sql.DB
	dbPath string
}

// NewSQLiteBackend opens (or creates) slot database.
// Params: database file path; parent directory is created when missing.
// Returns: backend or open/migrate error.
func NewSQLiteBackend(dbPath string) (*SQLiteBackend, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create slot dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open slot sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set slot sqlite wal: %w", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS launch_alert_slots (
			slot_key TEXT PRIMARY KEY,
			slot_value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate slot sqlite: %w", err)
	}
	return &SQLiteBackend{db: db, dbPath: dbPath}, nil
}

// Path returns database file path.
// Params: none.
// Returns: path passed at open time.
func (b *SQLiteBackend) Path() string {
	return b.dbPath
}

// Get reads slot value.
// Params: context and key.
// Returns: value or ErrNotFound.
func (b *SQLiteBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var value string
	err := b.db.QueryRowContext(ctx, `SELECT slot_value FROM launch_alert_slots WHERE slot_key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("select slot: %w", err)
	}
	return value, nil
}

// Put upserts slot value.
// Params: context, key, and value.
// Returns: write error.
func (b *SQLiteBackend) Put(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.db.ExecContext(ctx, `
		INSERT INTO launch_alert_slots (slot_key, slot_value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(slot_key) DO UPDATE SET
			slot_value = excluded.slot_value,
			updated_at = excluded.updated_at
	`, key, value, time.Now().UTC().Format(slotTimeLayout))
	if err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// Delete removes slot row.
// Params: context and key.
// Returns: delete error.
func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.db.ExecContext(ctx, `DELETE FROM launch_alert_slots WHERE slot_key = ?`, key); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// Close closes database handle.
// Params: none.
// Returns: close error.
func (b *SQLiteBackend) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}
