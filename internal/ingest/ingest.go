// Package ingest validates IVR step events and folds them into the path store.
package ingest

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ivr-analytics/internal/flow"
	"github.com/sells-group/ivr-analytics/internal/model"
	"github.com/sells-group/ivr-analytics/internal/store"
)

// ErrMissingCallID is returned when an event carries no call SID. The event
// is rejected before any store access.
var ErrMissingCallID = eris.New("CallSid is required")

// Ingestor records step events into a Store, one mutation per valid event.
// It does not retry: the telephony provider retries per its own policy when
// the webhook responds with an error.
type Ingestor struct {
	store store.Store
}

// New creates an Ingestor backed by the given store.
func New(st store.Store) *Ingestor {
	return &Ingestor{store: st}
}

// Record validates the event and persists it. Events without a call SID fail
// with ErrMissingCallID; unknown step names fail with store.ErrInvalidStep.
// In both cases nothing is written.
func (i *Ingestor) Record(ctx context.Context, ev model.StepEvent) error {
	if ev.CallSid == "" {
		return ErrMissingCallID
	}
	if !flow.ValidStep(ev.Step) {
		return eris.Wrapf(store.ErrInvalidStep, "ingest: step %q", ev.Step)
	}

	if err := i.store.RecordStep(ctx, ev); err != nil {
		return eris.Wrapf(err, "ingest: record step %s for call %s", ev.Step, ev.CallSid)
	}

	zap.L().Info("ivr input recorded",
		zap.String("call_sid", ev.CallSid),
		zap.String("step", ev.Step),
		zap.String("digit", flow.CleanDigit(ev.Digit)),
	)
	return nil
}
