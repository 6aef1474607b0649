package index

import (
	"errors"
	"fmt"

	"shutter/internal/services"
)

var (
	// ErrStore marks failures reading or writing the index database.
	ErrStore = errors.New("index store failure")
	// ErrLocked indicates another process holds the index lock.
	ErrLocked = errors.New("index is locked by another process")
	// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
	ErrSchemaMismatch = errors.New("schema version mismatch")
)

// storeError wraps a database failure with ErrStore and the transient marker
// so callers can match either.
func storeError(operation, subject string, err error) error {
	if err == nil {
		return nil
	}
	return services.Wrap(services.ErrTransient, "index", operation, subject, fmt.Errorf("%w: %w", ErrStore, err))
}
