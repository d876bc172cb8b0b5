package eventstore

import (
	"context"
	"time"
)

// RunSummary is a folded view of one run's events.
type RunSummary struct {
	RunID      string
	Trigger    string
	StartedAt  time.Time
	FinishedAt time.Time
	ToInstall  []string
	ToRemove   []string
	Outcome    string
	Error      string
}

// Outcome values reported by RunSummary.
const (
	OutcomeApplied = "applied"
	OutcomeNoop    = "noop"
	OutcomeFailed  = "failed"
	OutcomeRunning = "running"
)

// Summarize folds the events of a single run into a RunSummary.
// Events must be in append order.
func Summarize(runID string, events []Event) RunSummary {
	s := RunSummary{RunID: runID, Outcome: OutcomeRunning}
	for _, e := range events {
		if s.StartedAt.IsZero() {
			s.StartedAt = e.Timestamp()
		}
		s.FinishedAt = e.Timestamp()

		switch e.Type() {
		case TypeRunStarted:
			var p RunStarted
			if Decode(e, &p) == nil {
				s.Trigger = p.Trigger
			}
		case TypePlanComputed:
			var p PlanComputed
			if Decode(e, &p) == nil {
				s.ToInstall = p.ToInstall
				s.ToRemove = p.ToRemove
			}
		case TypeTransactionSkipped:
			s.Outcome = OutcomeNoop
		case TypeStateCommitted:
			s.Outcome = OutcomeApplied
		case TypeRunFailed:
			var p RunFailed
			if Decode(e, &p) == nil {
				s.Error = p.Message
			}
			s.Outcome = OutcomeFailed
		}
	}
	return s
}

// RecentRuns returns summaries of the last limit runs, newest first.
func RecentRuns(ctx context.Context, store Store, limit int) ([]RunSummary, error) {
	ids, err := store.RecentRunIDs(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]RunSummary, 0, len(ids))
	for _, id := range ids {
		events, err := store.GetByRunID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summarize(id, events))
	}
	return out, nil
}
