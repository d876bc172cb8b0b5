package reconcile

import (
	"context"

	"git.home.luguber.info/inful/polycrystal/internal/eventstore"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
	"git.home.luguber.info/inful/polycrystal/internal/observability"
)

type recordFunc func(rec eventstore.Record, err error)

// journalFor returns a recorder appending to the journal for runID. Journal
// failures are logged and never fail the run.
func (e *Engine) journalFor(ctx context.Context, runID string) recordFunc {
	if e.journal == nil {
		return func(eventstore.Record, error) {}
	}
	appendCtx := context.WithoutCancel(ctx)
	return func(rec eventstore.Record, err error) {
		if err == nil {
			err = e.journal.Append(appendCtx, runID, rec.Type, rec.Payload, nil)
		}
		if err != nil {
			observability.WarnContext(ctx, "Failed to journal run event", logfields.Error(err))
		}
	}
}
