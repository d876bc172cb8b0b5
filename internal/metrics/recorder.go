package metrics

import "time"

// OutcomeLabel enumerates run outcomes for counters.
type OutcomeLabel string

const (
	OutcomeApplied OutcomeLabel = "applied" // transaction executed or fully satisfied
	OutcomeNoop    OutcomeLabel = "noop"    // empty diff, nothing touched
	OutcomeFailed  OutcomeLabel = "failed"
)

// OperationResult enumerates what happened to a queued operation.
type OperationResult string

const (
	OperationQueued    OperationResult = "queued"
	OperationSatisfied OperationResult = "satisfied"
)

// Recorder defines observability hooks for reconciliation runs.
type Recorder interface {
	ObserveRunDuration(d time.Duration)
	IncRunOutcome(outcome OutcomeLabel)
	IncOperation(kind string, result OperationResult)
	SetRecordedEntries(n int)
	SetLastSuccess(t time.Time)
}

// NoopRecorder is a Recorder that does nothing (default when metrics are not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveRunDuration(time.Duration)     {}
func (NoopRecorder) IncRunOutcome(OutcomeLabel)           {}
func (NoopRecorder) IncOperation(string, OperationResult) {}
func (NoopRecorder) SetRecordedEntries(int)               {}
func (NoopRecorder) SetLastSuccess(time.Time)             {}
