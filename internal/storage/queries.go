package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Slot struct {
	Key       string
	Value     []byte
	UpdatedAt time.Time
}

const getSlot = `SELECT key, value, updated_at FROM slots WHERE key = ?`

func (q *Queries) GetSlot(ctx context.Context, key string) (Slot, error) {
	row := q.db.QueryRowContext(ctx, getSlot, key)
	var s Slot
	err := row.Scan(&s.Key, &s.Value, &s.UpdatedAt)
	return s, err
}

const upsertSlot = `INSERT INTO slots (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

type UpsertSlotParams struct {
	Key   string
	Value []byte
}

func (q *Queries) UpsertSlot(ctx context.Context, arg UpsertSlotParams) error {
	_, err := q.db.ExecContext(ctx, upsertSlot, arg.Key, arg.Value)
	return err
}

const listSlots = `SELECT key, value, updated_at FROM slots ORDER BY key`

func (q *Queries) ListSlots(ctx context.Context) ([]Slot, error) {
	rows, err := q.db.QueryContext(ctx, listSlots)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Slot
	for rows.Next() {
		var s Slot
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
