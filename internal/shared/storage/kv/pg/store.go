package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"cv-optimizer/internal/shared/storage/kv"
)

// Store implements kv.Store over the client_state table.
type Store struct {
	DB  *sql.DB
	Now func() time.Time
}

// Get returns the stored value for key.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	const query = `
SELECT value
FROM client_state
WHERE key = $1`
	var value string
	err := s.DB.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", kv.ErrNotFound
		}
		return "", err
	}
	return value, nil
}

// Set upserts the value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	const query = `
INSERT INTO client_state (key, value, updated_at)
VALUES ($1, $2, $3)
ON CONFLICT (key) DO UPDATE
SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	_, err := s.DB.ExecContext(ctx, query, key, value, s.now())
	return err
}

// Remove deletes key; deleting a missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	const query = `DELETE FROM client_state WHERE key = $1`
	_, err := s.DB.ExecContext(ctx, query, key)
	return err
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

var _ kv.Store = (*Store)(nil)
