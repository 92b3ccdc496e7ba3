package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scoreboard/internal/blob"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps each slot as one row of the slots table.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ blob.Store       = (*SQLiteRepository)(nil)
	_ blob.BatchWriter = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer avoids SQLITE_BUSY between the web server goroutines.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := migrateSlots(dbPath)
	if err != nil {
		db.Close()
		return nil, err
	}
	slog.Debug("slots schema ready", "db_path", dbPath, "version", version)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get implements blob.Reader
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	slot, err := r.queries.GetSlot(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %s: %w", key, err)
	}
	return slot.Value, true, nil
}

// Set implements blob.Writer
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.queries.UpsertSlot(ctx, UpsertSlotParams{Key: key, Value: value}); err != nil {
		return fmt.Errorf("set slot %s: %w", key, err)
	}
	return nil
}

// SetMany writes every slot in one transaction so a crash never leaves a
// half-written snapshot behind.
func (r *SQLiteRepository) SetMany(ctx context.Context, blobs map[string][]byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	for key, value := range blobs {
		if err := qtx.UpsertSlot(ctx, UpsertSlotParams{Key: key, Value: value}); err != nil {
			return fmt.Errorf("set slot %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.DebugContext(ctx, "Slots saved to SQLite", "count", len(blobs))
	return nil
}

// Slots lists every stored slot, ordered by key.
func (r *SQLiteRepository) Slots(ctx context.Context) ([]Slot, error) {
	items, err := r.queries.ListSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return items, nil
}
