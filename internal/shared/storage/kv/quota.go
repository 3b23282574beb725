package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Quota caps the total size (key plus value bytes) held by one Store view.
// Sizes of keys not yet seen are read from the inner store on first touch.
type Quota struct {
	inner    Store
	maxBytes int64

	mu    sync.Mutex
	sizes map[string]int64
	used  int64
}

// WithQuota wraps inner with a byte budget. maxBytes <= 0 disables the check.
func WithQuota(inner Store, maxBytes int64) *Quota {
	return &Quota{inner: inner, maxBytes: maxBytes, sizes: make(map[string]int64)}
}

// Get reads through to the inner store.
func (q *Quota) Get(ctx context.Context, key string) (string, error) {
	return q.inner.Get(ctx, key)
}

// Set writes value when the resulting usage stays within budget, else ErrQuotaExceeded.
func (q *Quota) Set(ctx context.Context, key, value string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev, err := q.sizeOf(ctx, key)
	if err != nil {
		return err
	}
	next := int64(len(key) + len(value))
	if q.maxBytes > 0 && q.used-prev+next > q.maxBytes {
		return fmt.Errorf("set %s (%d bytes, %d/%d used): %w", key, next, q.used, q.maxBytes, ErrQuotaExceeded)
	}
	if err := q.inner.Set(ctx, key, value); err != nil {
		return err
	}
	q.used += next - prev
	q.sizes[key] = next
	return nil
}

// Remove deletes key and releases its bytes.
func (q *Quota) Remove(ctx context.Context, key string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	prev, err := q.sizeOf(ctx, key)
	if err != nil {
		return err
	}
	if err := q.inner.Remove(ctx, key); err != nil {
		return err
	}
	q.used -= prev
	q.sizes[key] = 0
	return nil
}

// Used reports the bytes currently accounted for.
func (q *Quota) Used() int64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.used
}

func (q *Quota) sizeOf(ctx context.Context, key string) (int64, error) {
	if size, ok := q.sizes[key]; ok {
		return size, nil
	}
	val, err := q.inner.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		q.sizes[key] = 0
		return 0, nil
	case err != nil:
		return 0, err
	}
	size := int64(len(key) + len(val))
	q.sizes[key] = size
	q.used += size
	return size, nil
}

var _ Store = (*Quota)(nil)
