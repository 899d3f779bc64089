// Package store persists the post counter and the append-only run log.
//
// The counter only advances after a run fully succeeds through publish
// ("commit last"): callers read the counter up front to compute the
// prospective run number, and write counter+1 only as the terminal action of
// a completed run. WriteCounterIfUnchanged is a compare-and-set so a
// concurrent or replayed finalization cannot double-advance the counter.
package store

import (
	"context"
	"errors"
	"time"

	"stoicbot/types"
)

// ErrCounterConflict is returned by WriteCounterIfUnchanged when the stored
// value no longer matches the expected one.
var ErrCounterConflict = errors.New("post counter changed since read")

// Store is the narrow persistence interface the orchestrator depends on.
// Implementations must keep AppendRun append-only: persisted run records are
// never mutated.
type Store interface {
	// ReadCounter returns the number of successfully completed runs so far.
	// A store with no counter yet returns 0.
	ReadCounter(ctx context.Context) (int, error)

	// WriteCounterIfUnchanged sets the counter to next if it still equals
	// old, otherwise returns ErrCounterConflict.
	WriteCounterIfUnchanged(ctx context.Context, old, next int) error

	// AppendRun appends one run record to the log for the record's start day.
	AppendRun(ctx context.Context, rec types.RunRecord) error

	// RunsForDay returns all records logged for the given calendar day.
	RunsForDay(ctx context.Context, day time.Time) ([]types.RunRecord, error)
}

// DayKey formats a time as the per-day log key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}
