package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key has never been set or was removed.
	ErrNotFound = errors.New("kv: key not found")

	// ErrQuotaExceeded mirrors a browser's "storage full" failure.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)

// Store is a string-keyed storage backend.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
