package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
)

var (
	appA = entry.PackageEntry{ID: "org.app.A", Remote: "flathub", Branch: "stable"}
	appB = entry.PackageEntry{ID: "org.app.B", Remote: "flathub", Branch: "beta"}
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "lib", "state"))
}

func TestOpenMissingFileIsEmpty(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Open()
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	assert.Equal(t, 0, h.Recorded().Len())
	info, err := os.Stat(s.Path())
	require.NoError(t, err, "open creates the state file")
	assert.Zero(t, info.Size())
}

func TestOpenEmptyFileIsEmpty(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
	require.NoError(t, os.WriteFile(s.Path(), nil, 0o644))

	h, err := s.Open()
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	assert.Equal(t, 0, h.Recorded().Len())
}

func TestOpenMalformedFileIsParseError(t *testing.T) {
	for name, content := range map[string]string{
		"garbage":       "not json at all",
		"object":        `{"id":"org.app.A"}`,
		"missing field": `[{"id":"org.app.A","remote":"flathub"}]`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)
			require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0o755))
			require.NoError(t, os.WriteFile(s.Path(), []byte(content), 0o644))

			h, err := s.Open()
			require.Error(t, err)
			assert.Nil(t, h)
			assert.True(t, errors.HasCategory(err, errors.CategoryParse))

			// The failed open must not keep the lock.
			h2, err := New(s.Path()).Open()
			require.Error(t, err)
			assert.Nil(t, h2)
		})
	}
}

func TestCommitRoundTrip(t *testing.T) {
	for name, set := range map[string]entry.Set{
		"empty":    entry.NewSet(),
		"single":   entry.NewSet(appA),
		"multiple": entry.NewSet(appA, appB),
	} {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t)

			h, err := s.Open()
			require.NoError(t, err)
			require.NoError(t, h.Commit(set))
			assert.True(t, set.Equal(h.Recorded()))
			require.NoError(t, h.Close())

			h2, err := s.Open()
			require.NoError(t, err)
			defer func() { _ = h2.Close() }()
			assert.True(t, set.Equal(h2.Recorded()), "got %v", entry.Sorted(h2.Recorded()))
		})
	}
}

func TestCommitWritesSortedJSONList(t *testing.T) {
	s := newTestStore(t)
	h, err := s.Open()
	require.NoError(t, err)
	require.NoError(t, h.Commit(entry.NewSet(appB, appA)))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"id":"org.app.A","remote":"flathub","branch":"stable"},
		{"id":"org.app.B","remote":"flathub","branch":"beta"}
	]`, string(data))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".state.*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestCommitAfterCloseFails(t *testing.T) {
	h, err := newTestStore(t).Open()
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "close is idempotent")

	err = h.Commit(entry.NewSet(appA))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryInternal))
}

func TestRecordedIsACopy(t *testing.T) {
	h, err := newTestStore(t).Open()
	require.NoError(t, err)
	defer func() { _ = h.Close() }()

	h.Recorded().Add(appA)
	assert.Equal(t, 0, h.Recorded().Len())
}

func TestOpenBlocksUntilLockReleased(t *testing.T) {
	s := newTestStore(t)
	first, err := s.Open()
	require.NoError(t, err)

	acquired := make(chan *Handle, 1)
	go func() {
		h, err := New(s.Path()).Open()
		if err != nil {
			acquired <- nil
			return
		}
		acquired <- h
	}()

	select {
	case <-acquired:
		t.Fatal("second open must wait for the lock")
	case <-time.After(150 * time.Millisecond):
	}

	require.NoError(t, first.Commit(entry.NewSet(appA)))
	require.NoError(t, first.Close())

	select {
	case second := <-acquired:
		require.NotNil(t, second)
		defer func() { _ = second.Close() }()
		assert.True(t, entry.NewSet(appA).Equal(second.Recorded()), "waiter sees the committed state")
	case <-time.After(5 * time.Second):
		t.Fatal("second open never acquired the lock")
	}
}

func TestSnapshot(t *testing.T) {
	s := newTestStore(t)

	got, err := s.Snapshot()
	require.NoError(t, err, "snapshot of a store that was never opened")
	assert.Equal(t, 0, got.Len())

	h, err := s.Open()
	require.NoError(t, err)
	require.NoError(t, h.Commit(entry.NewSet(appA, appB)))
	require.NoError(t, h.Close())

	got, err = s.Snapshot()
	require.NoError(t, err)
	assert.True(t, entry.NewSet(appA, appB).Equal(got))
}

func TestCommitEmptySetWritesEmptyList(t *testing.T) {
	s := newTestStore(t)

	h, err := s.Open()
	require.NoError(t, err)
	require.NoError(t, h.Commit(entry.NewSet(appA)))
	require.NoError(t, h.Commit(entry.NewSet()))
	require.NoError(t, h.Close())

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	h, err = s.Open()
	require.NoError(t, err)
	defer func() { _ = h.Close() }()
	assert.Equal(t, 0, h.Recorded().Len())
}
