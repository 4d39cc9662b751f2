package domain

import "time"

// TimeLayout is the single fixed format used for checkpoint values, CLI time
// arguments and normalized timestamp strings.
const TimeLayout = "2006-01-02 15:04:05"

// RunMode selects how the sync window is resolved.
type RunMode int

const (
	// ModeIncremental derives the window from the persisted checkpoint.
	ModeIncremental RunMode = iota
	// ModeInit covers a fixed 7-day window ending now.
	ModeInit
	// ModeFullCheck covers a fixed 30-day window ending now.
	ModeFullCheck
)

// Window is the [Start, End) time range a run lists instances over. The
// source treats both bounds as inclusive; the engine must not assume
// exclusivity.
type Window struct {
	Start time.Time
	End   time.Time
}

// ListQuery bounds one page request against the source platform.
type ListQuery struct {
	Start       time.Time
	End         time.Time
	ProcessCode string
	Statuses    []string
	Cursor      int64
	Size        int
}

// InstancePage is one page of an instance listing.
type InstancePage struct {
	Items      []InstanceSummary
	HasMore    bool
	NextCursor int64
}

// RunStats accumulates per-run counters. They are the run's observable
// output alongside the new checkpoint value.
type RunStats struct {
	Total          int
	Success        int
	Failed         int
	MainUpserted   int
	ActionInserted int
}

// MillisFromTime converts t to a millisecond epoch.
func MillisFromTime(t time.Time) int64 { return t.UnixMilli() }

// TimeFromMillis converts a millisecond epoch to local time.
func TimeFromMillis(ms int64) time.Time { return time.UnixMilli(ms) }
