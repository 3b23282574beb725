package clientstate

import (
	"errors"
	"fmt"

	"cv-optimizer/internal/shared/storage/kv"
)

var (
	ErrNoMaster     = errors.New("no master resume saved")
	ErrNotConfirmed = errors.New("reset not confirmed")
	ErrNotFound     = errors.New("history entry not found")
	ErrInFlight     = errors.New("an optimization is already in progress")
)

// StorageError reports a failed write to the backend.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageFull reports whether err stems from the backend quota.
func IsStorageFull(err error) bool {
	return errors.Is(err, kv.ErrQuotaExceeded)
}
