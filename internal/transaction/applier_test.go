package transaction_test

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/polycrystal/internal/diff"
	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
	"git.home.luguber.info/inful/polycrystal/internal/transaction/transactiontest"
)

var (
	appA = entry.PackageEntry{ID: "org.app.A", Remote: "flathub", Branch: "stable"}
	appB = entry.PackageEntry{ID: "org.app.B", Remote: "flathub", Branch: "stable"}
)

const (
	refA = "app/org.app.A/x86_64/stable"
	refB = "app/org.app.B/x86_64/stable"
)

func TestApplyEmptyPlanDoesNotTouchMechanism(t *testing.T) {
	fake := transactiontest.New()
	report, err := transaction.NewApplier(fake).Apply(t.Context(), diff.Compute(entry.NewSet(appA), entry.NewSet(appA)))
	require.NoError(t, err)

	assert.False(t, report.Executed)
	assert.Zero(t, fake.Transactions)
	assert.Empty(t, fake.Calls)
}

func TestApplyInstallsAndRemoves(t *testing.T) {
	fake := transactiontest.New(refB)
	plan := diff.Compute(entry.NewSet(appA), entry.NewSet(appB))

	report, err := transaction.NewApplier(fake).Apply(t.Context(), plan)
	require.NoError(t, err)

	assert.True(t, report.Executed)
	assert.Equal(t, 1, fake.Transactions)
	assert.Equal(t, 1, fake.Runs)
	assert.ElementsMatch(t, []transactiontest.Call{
		{Op: "install", Remote: "flathub", Ref: refA},
		{Op: "uninstall", Ref: refB},
	}, fake.Calls)
	assert.True(t, fake.IsInstalled(refA))
	assert.False(t, fake.IsInstalled(refB))
	assert.Len(t, report.Queued, 2)
	assert.Empty(t, report.Satisfied)
}

func TestApplyToleratesAlreadySatisfied(t *testing.T) {
	// A is installed out of band and B was removed out of band.
	fake := transactiontest.New(refA)
	plan := diff.Compute(entry.NewSet(appA), entry.NewSet(appB))

	report, err := transaction.NewApplier(fake).Apply(t.Context(), plan)
	require.NoError(t, err)

	assert.Len(t, report.Satisfied, 2)
	assert.Empty(t, report.Queued)
	assert.False(t, report.Executed, "an empty transaction is not run")
	assert.Zero(t, fake.Runs)
}

func TestApplyPartiallySatisfied(t *testing.T) {
	fake := transactiontest.New(refA)
	plan := diff.Compute(entry.NewSet(appA, appB), entry.NewSet())

	report, err := transaction.NewApplier(fake).Apply(t.Context(), plan)
	require.NoError(t, err)

	assert.True(t, report.Executed)
	require.Len(t, report.Satisfied, 1)
	assert.Equal(t, appA, report.Satisfied[0].Entry)
	require.Len(t, report.Queued, 1)
	assert.Equal(t, refB, report.Queued[0].Ref)
}

func TestApplyQueueFailureIsFatal(t *testing.T) {
	fake := transactiontest.New()
	fake.AddErr[refA] = stderrors.New("remote flathub not found")

	_, err := transaction.NewApplier(fake).Apply(t.Context(), diff.Compute(entry.NewSet(appA, appB), entry.NewSet()))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransaction))
	assert.Zero(t, fake.Runs, "nothing runs after a queue failure")
}

func TestApplyRunFailureIsFatal(t *testing.T) {
	fake := transactiontest.New()
	fake.RunErr = stderrors.New("download failed")

	report, err := transaction.NewApplier(fake).Apply(t.Context(), diff.Compute(entry.NewSet(appA), entry.NewSet()))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransaction))
	assert.False(t, report.Executed)
	assert.False(t, fake.IsInstalled(refA))
}

func TestApplyTransactionCreationFailure(t *testing.T) {
	fake := transactiontest.New()
	fake.NewErr = stderrors.New("no system installation")

	_, err := transaction.NewApplier(fake).Apply(t.Context(), diff.Compute(entry.NewSet(appA), entry.NewSet()))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryTransaction))
}
