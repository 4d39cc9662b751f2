package repository

import "time"

// Checkpoint persists the watermark marking the end of the last successfully
// synced window.
type Checkpoint interface {
	// Load returns the persisted watermark, initializing the store with its
	// default on first use. A missing or malformed value yields
	// domain.ErrCheckpointUnavailable rather than a fatal error.
	Load() (time.Time, error)

	// Save atomically replaces the watermark. A failed write must not
	// corrupt the previous value.
	Save(t time.Time) error

	// Reset deletes the watermark and reinitializes the default. Idempotent.
	Reset() error
}
