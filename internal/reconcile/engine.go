// Package reconcile drives one reconciliation run: lock the recorded state,
// aggregate the desired entries, diff, apply the difference as one transaction
// and commit the new state. All execution paths (CLI, daemon, tests) go through Engine.
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/polycrystal/internal/diff"
	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/eventstore"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
	"git.home.luguber.info/inful/polycrystal/internal/metrics"
	"git.home.luguber.info/inful/polycrystal/internal/notify"
	"git.home.luguber.info/inful/polycrystal/internal/observability"
	"git.home.luguber.info/inful/polycrystal/internal/state"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// Source yields the desired set. *entry.Aggregator is the production implementation.
type Source interface {
	Desired() (entry.Set, error)
}

// Trigger names what started a run.
type Trigger string

const (
	TriggerManual   Trigger = "manual"
	TriggerStartup  Trigger = "startup"
	TriggerWatch    Trigger = "watch"
	TriggerInterval Trigger = "interval"
)

// Request contains the inputs of a single run.
type Request struct {
	Trigger Trigger
}

// Result describes the outcome of a run. It is returned on failure too.
type Result struct {
	RunID   string
	Trigger Trigger

	// Plan is the computed difference. Zero if the run failed before diffing.
	Plan diff.Plan

	// Report is what the applier queued and ran.
	Report transaction.Report

	Outcome metrics.OutcomeLabel

	// Recorded is the size of the recorded state after the run.
	Recorded int

	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Engine performs reconciliation runs.
type Engine struct {
	source    Source
	store     *state.Store
	applier   *transaction.Applier
	recorder  metrics.Recorder
	journal   eventstore.Store
	publisher notify.Publisher
	now       func() time.Time
}

// NewEngine creates an engine with no journal, no metrics and no notifications.
func NewEngine(source Source, store *state.Store, installation transaction.Installation) *Engine {
	return &Engine{
		source:    source,
		store:     store,
		applier:   transaction.NewApplier(installation),
		recorder:  metrics.NoopRecorder{},
		publisher: notify.Noop{},
		now:       time.Now,
	}
}

// WithRecorder sets the metrics recorder.
func (e *Engine) WithRecorder(r metrics.Recorder) *Engine {
	if r != nil {
		e.recorder = r
	}
	return e
}

// WithJournal enables the run journal.
func (e *Engine) WithJournal(s eventstore.Store) *Engine {
	e.journal = s
	return e
}

// WithPublisher sets where run summaries are sent.
func (e *Engine) WithPublisher(p notify.Publisher) *Engine {
	if p != nil {
		e.publisher = p
	}
	return e
}

// Run executes one reconciliation. The recorded state is only rewritten when
// the plan is non-empty and the transaction succeeded; on any error it keeps
// its last committed value.
func (e *Engine) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Trigger == "" {
		req.Trigger = TriggerManual
	}
	res := &Result{
		RunID:     uuid.NewString(),
		Trigger:   req.Trigger,
		StartTime: e.now(),
	}
	ctx = observability.WithRunID(ctx, res.RunID)
	ctx = observability.WithTrigger(ctx, string(req.Trigger))
	record := e.journalFor(ctx, res.RunID)

	record(eventstore.NewRunStarted(eventstore.RunStarted{
		Trigger:    string(req.Trigger),
		EntriesDir: sourceDir(e.source),
		StatePath:  e.store.Path(),
	}))

	err := e.run(ctx, res, record)

	res.EndTime = e.now()
	res.Duration = res.EndTime.Sub(res.StartTime)
	e.recorder.ObserveRunDuration(res.Duration)

	if err != nil {
		res.Outcome = metrics.OutcomeFailed
		record(eventstore.NewRunFailed(eventstore.RunFailed{
			Category: string(errors.GetCategory(err)),
			Message:  err.Error(),
		}))
	} else {
		e.recorder.SetLastSuccess(res.EndTime)
	}
	e.recorder.IncRunOutcome(res.Outcome)
	e.publish(ctx, res)

	if err == nil {
		observability.InfoContext(ctx, "Reconciliation finished",
			logfields.Outcome(string(res.Outcome)),
			logfields.DurationMS(float64(res.Duration.Milliseconds())))
	}
	return res, err
}

func (e *Engine) run(ctx context.Context, res *Result, record recordFunc) error {
	handle, err := e.store.Open()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			observability.WarnContext(ctx, "Failed to release state lock", logfields.Error(cerr))
		}
	}()

	desired, err := e.source.Desired()
	if err != nil {
		return err
	}
	recorded := handle.Recorded()

	plan := diff.Compute(desired, recorded)
	res.Plan = plan
	observability.InfoContext(observability.WithStage(ctx, "diff"), "Computed plan",
		logfields.ToInstall(plan.ToInstall.Len()),
		logfields.ToRemove(plan.ToRemove.Len()))
	record(eventstore.NewPlanComputed(eventstore.PlanComputed{
		Desired:   desired.Len(),
		Recorded:  recorded.Len(),
		ToInstall: Names(plan.ToInstall),
		ToRemove:  Names(plan.ToRemove),
	}))

	if plan.Empty() {
		res.Outcome = metrics.OutcomeNoop
		res.Recorded = recorded.Len()
		e.recorder.SetRecordedEntries(res.Recorded)
		record(eventstore.NewTransactionSkipped(eventstore.TransactionSkipped{Reason: "plan empty"}))
		observability.InfoContext(ctx, "Nothing to do, recorded state already converged")
		return nil
	}

	report, err := e.applier.Apply(ctx, plan)
	res.Report = report
	e.countOperations(report)
	if err != nil {
		return err
	}
	record(eventstore.NewTransactionApplied(eventstore.TransactionApplied{
		Queued:    len(report.Queued),
		Satisfied: len(report.Satisfied),
		Executed:  report.Executed,
	}))

	next := plan.Apply(recorded)
	if err := handle.Commit(next); err != nil {
		return err
	}
	res.Outcome = metrics.OutcomeApplied
	res.Recorded = next.Len()
	e.recorder.SetRecordedEntries(res.Recorded)
	record(eventstore.NewStateCommitted(eventstore.StateCommitted{Entries: res.Recorded}))
	observability.InfoContext(observability.WithStage(ctx, "commit"), "Committed recorded state",
		logfields.Path(e.store.Path()),
		slog.Int("entries", res.Recorded))
	return nil
}

// Plan computes the difference between desired and recorded state under the
// state lock without applying or committing anything.
func (e *Engine) Plan(ctx context.Context) (diff.Plan, error) {
	handle, err := e.store.Open()
	if err != nil {
		return diff.Plan{}, err
	}
	defer func() {
		if cerr := handle.Close(); cerr != nil {
			observability.WarnContext(ctx, "Failed to release state lock", logfields.Error(cerr))
		}
	}()

	desired, err := e.source.Desired()
	if err != nil {
		return diff.Plan{}, err
	}
	return diff.Compute(desired, handle.Recorded()), nil
}

func (e *Engine) countOperations(report transaction.Report) {
	for _, op := range report.Queued {
		e.recorder.IncOperation(string(op.Kind), metrics.OperationQueued)
	}
	for _, op := range report.Satisfied {
		e.recorder.IncOperation(string(op.Kind), metrics.OperationSatisfied)
	}
}

func (e *Engine) publish(ctx context.Context, res *Result) {
	summary := notify.Summary{RunID: res.RunID, Outcome: string(res.Outcome)}
	if res.Outcome == metrics.OutcomeApplied {
		summary.Installed = Names(res.Plan.ToInstall)
		summary.Removed = Names(res.Plan.ToRemove)
	}
	if err := e.publisher.Publish(ctx, summary); err != nil {
		observability.WarnContext(ctx, "Failed to publish run summary", logfields.Error(err))
	}
}

// Names renders s as sorted remote:id//branch strings.
func Names(s entry.Set) []string {
	out := make([]string, 0, s.Len())
	for _, e := range entry.Sorted(s) {
		out = append(out, e.String())
	}
	return out
}

func sourceDir(s Source) string {
	if d, ok := s.(interface{ Dir() string }); ok {
		return d.Dir()
	}
	return ""
}
