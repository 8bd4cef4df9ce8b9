package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ivr-analytics/internal/model"
)

// ErrInvalidStep is returned when a step event names a step that is not part
// of the menu tree. Nothing is persisted in that case.
var ErrInvalidStep = eris.New("invalid IVR step")

// PathFilter bounds a path listing by updated-at calendar date (inclusive).
// Dates are YYYY-MM-DD strings; empty means unbounded.
type PathFilter struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

// PathCount is one entry of the top-paths ranking.
type PathCount struct {
	Path  string `json:"path"`
	Count int    `json:"count"`
}

// ChoiceCount is one entry of a per-step digit distribution.
type ChoiceCount struct {
	Digit string `json:"digit"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

// IVRStats is the aggregate view served by the stats API.
type IVRStats struct {
	TotalCalls   int           `json:"total_calls"`
	TopPaths     []PathCount   `json:"top_paths"`
	LanguageDist []ChoiceCount `json:"language_distribution"`
	StateDist    []ChoiceCount `json:"state_distribution"`
	ServiceDist  []ChoiceCount `json:"service_distribution"`
}

// Store persists IVR step events and the derived per-call path rows.
//
// Two tables back it: ivr_inputs, an append-only log of every digit event,
// and ivr_paths, the canonical current state with one row per call SID. The
// derived row is maintained incrementally as events arrive — it is never
// rebuilt from the log.
type Store interface {
	// RecordStep appends the raw event and folds it into the call's path row
	// in a single transaction: the choice column and the recomputed
	// complete_path are never observable out of sync.
	RecordStep(ctx context.Context, ev model.StepEvent) error

	// GetPath returns the path row for a call, or nil if no step event has
	// ever been recorded for it.
	GetPath(ctx context.Context, callSid string) (*model.PathRecord, error)

	// ListPaths returns path rows newest-first, optionally bounded by
	// updated-at date.
	ListPaths(ctx context.Context, filter PathFilter) ([]model.PathRecord, error)

	// Stats computes the aggregate IVR statistics from current store contents.
	Stats(ctx context.Context) (*IVRStats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
