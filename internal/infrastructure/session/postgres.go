package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"share2care/internal/ports/output"
)

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps the session in the session_entries table.
type PostgresStore struct {
	db DB
}

var _ output.SessionStore = (*PostgresStore)(nil)

func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	getEntrySQL = `SELECT value FROM session_entries WHERE key = $1`
	setEntrySQL = `INSERT INTO session_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteEntriesSQL = `DELETE FROM session_entries WHERE key = ANY($1)`
)

func (s *PostgresStore) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRow(ctx, getEntrySQL, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", output.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select session entry %s: %w", key, err)
	}
	return v, nil
}

func (s *PostgresStore) Set(ctx context.Context, key, value string) error {
	if _, err := s.db.Exec(ctx, setEntrySQL, key, value); err != nil {
		return fmt.Errorf("upsert session entry %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.db.Exec(ctx, deleteEntriesSQL, keys); err != nil {
		return fmt.Errorf("delete session entries: %w", err)
	}
	return nil
}
