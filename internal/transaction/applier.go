package transaction

import (
	"context"
	stderrors "errors"
	"log/slog"

	"git.home.luguber.info/inful/polycrystal/internal/diff"
	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
)

// OperationKind distinguishes queued installs from uninstalls.
type OperationKind string

const (
	OpInstall   OperationKind = "install"
	OpUninstall OperationKind = "uninstall"
)

// Operation is one entry of a plan as submitted to the mechanism.
type Operation struct {
	Kind  OperationKind
	Entry entry.PackageEntry
	Ref   string
}

// Report describes what the applier did.
type Report struct {
	// Queued holds operations handed to the transaction.
	Queued []Operation
	// Satisfied holds operations the mechanism reported as already done.
	Satisfied []Operation
	// Executed is true when the transaction was run.
	Executed bool
}

// Applier turns a plan into one transaction.
type Applier struct {
	installation Installation
}

// NewApplier creates an applier for installation.
func NewApplier(installation Installation) *Applier {
	return &Applier{installation: installation}
}

// Apply queues every install and uninstall of plan and runs the batch. An empty
// plan touches nothing. Already-installed and not-installed conditions count as
// success for that operation; any other failure aborts.
func (a *Applier) Apply(ctx context.Context, plan diff.Plan) (Report, error) {
	var report Report
	if plan.Empty() {
		return report, nil
	}

	arch, err := a.installation.Arch(ctx)
	if err != nil {
		return report, errors.TransactionError("cannot determine installation architecture").WithCause(err).Build()
	}
	tx, err := a.installation.NewTransaction(ctx)
	if err != nil {
		return report, errors.TransactionError("cannot create transaction").WithCause(err).Build()
	}

	for _, e := range entry.Sorted(plan.ToInstall) {
		op := Operation{Kind: OpInstall, Entry: e, Ref: refFor(e, arch)}
		err := tx.AddInstall(e.Remote, op.Ref)
		if err := a.record(&report, op, err, ErrAlreadyInstalled); err != nil {
			return report, err
		}
	}
	for _, e := range entry.Sorted(plan.ToRemove) {
		op := Operation{Kind: OpUninstall, Entry: e, Ref: refFor(e, arch)}
		err := tx.AddUninstall(op.Ref)
		if err := a.record(&report, op, err, ErrNotInstalled); err != nil {
			return report, err
		}
	}

	if tx.IsEmpty() {
		slog.Info("All operations already satisfied, transaction not run")
		return report, nil
	}
	if err := tx.Run(ctx); err != nil {
		return report, errors.TransactionError("transaction failed").WithCause(err).
			WithContext("operations", len(report.Queued)).
			Build()
	}
	report.Executed = true
	return report, nil
}

func (a *Applier) record(report *Report, op Operation, err, tolerated error) error {
	attrs := []any{
		slog.String("op", string(op.Kind)),
		logfields.Remote(op.Entry.Remote),
		logfields.Ref(op.Ref),
	}
	switch {
	case err == nil:
		slog.Debug("Queued operation", attrs...)
		report.Queued = append(report.Queued, op)
		return nil
	case stderrors.Is(err, tolerated):
		slog.Info("Operation already satisfied", append(attrs, slog.String("reason", tolerated.Error()))...)
		report.Satisfied = append(report.Satisfied, op)
		return nil
	default:
		return errors.TransactionError("cannot queue "+string(op.Kind)).WithCause(err).
			WithContext("ref", op.Ref).
			WithContext("remote", op.Entry.Remote).
			Build()
	}
}

func refFor(e entry.PackageEntry, arch string) string {
	return Ref{Kind: KindApp, Name: e.ID, Arch: arch, Branch: e.Branch}.Format()
}
