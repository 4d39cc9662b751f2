package syncer

import "time"

// mainKeyField is the uniqueness key of the main table: one row per
// approval instance.
const mainKeyField = "instance_id"

const (
	initWindow      = 7 * 24 * time.Hour
	fullCheckWindow = 30 * 24 * time.Hour

	// DefaultBatchSize is the page size for source listing.
	DefaultBatchSize = 20
	// DefaultHours is the fallback window width when no checkpoint exists.
	DefaultHours = 24
)
