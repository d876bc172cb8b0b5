package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := ParseError("malformed entry file").
			WithContext("file", "apps.json").
			Build()

		assert.Equal(t, CategoryParse, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "malformed entry file", err.Message())

		file, ok := err.Context().GetString("file")
		require.True(t, ok)
		assert.Equal(t, "apps.json", file)
		assert.Equal(t, "[parse] malformed entry file file=apps.json", err.Error())
	})

	t.Run("Wrapped cause", func(t *testing.T) {
		cause := stderrors.New("permission denied")
		err := WrapError(cause, CategoryConfig, "cannot list entries directory").Fatal().Build()

		assert.ErrorIs(t, err, cause)
		assert.True(t, err.IsFatal())
		assert.Contains(t, err.Error(), "permission denied")
	})

	t.Run("Detection through fmt wrapping", func(t *testing.T) {
		inner := LockError("cannot lock state").Build()
		wrapped := fmt.Errorf("open state: %w", inner)

		assert.True(t, HasCategory(wrapped, CategoryLock))
		assert.Equal(t, CategoryLock, GetCategory(wrapped))
		assert.Equal(t, CategoryInternal, GetCategory(stderrors.New("plain")))
	})

	t.Run("Sentinel matching", func(t *testing.T) {
		sentinel := CommitError("cannot commit state").Build()
		err := CommitError("cannot commit state").WithContext("path", "/tmp/x").Build()
		assert.ErrorIs(t, err, sentinel)
		assert.NotErrorIs(t, ParseError("cannot commit state").Build(), sentinel)
	})
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 2}
	b := ErrorContext{"b": 3}

	merged := a.Merge(b)
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 3, merged["b"])
	assert.Equal(t, 2, a["b"], "merge must not mutate receiver")

	var empty ErrorContext
	assert.Equal(t, b, empty.Merge(b))
}

func TestConstructorsSetCategoryAndSeverity(t *testing.T) {
	cause := stderrors.New("boom")
	tests := []struct {
		name     string
		builder  *ErrorBuilder
		category ErrorCategory
		severity ErrorSeverity
	}{
		{"lock", LockError("cannot lock state"), CategoryLock, SeverityFatal},
		{"transaction", TransactionError("transaction failed"), CategoryTransaction, SeverityFatal},
		{"commit", CommitError("cannot commit state"), CategoryCommit, SeverityFatal},
		{"notify", NotifyError("failed to publish run summary"), CategoryNotify, SeverityWarning},
		{"eventstore", EventStoreError("failed to append event"), CategoryEventStore, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.builder.WithCause(cause).Build()
			assert.Equal(t, tt.category, err.Category())
			assert.Equal(t, tt.severity, err.Severity())
			assert.ErrorIs(t, err, cause)
		})
	}
}
