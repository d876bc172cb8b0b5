package eventstore

import (
	"bytes"
	"errors"
	"testing"
	"time"
)

const testRunID = "run-1"

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndRetrieve(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	payload := []byte(`{"test": "data"}`)

	if err := store.Append(ctx, testRunID, "TestEvent", payload, map[string]string{"key": "value"}); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}

	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}

	event := events[0]
	if event.RunID() != testRunID {
		t.Errorf("expected run_id %s, got %s", testRunID, event.RunID())
	}
	if event.Type() != "TestEvent" {
		t.Errorf("expected event_type TestEvent, got %s", event.Type())
	}
	if !bytes.Equal(event.Payload(), payload) {
		t.Errorf("expected payload %s, got %s", payload, event.Payload())
	}
	if event.Metadata()["key"] != "value" {
		t.Errorf("expected metadata key=value, got %v", event.Metadata())
	}
}

func TestEventStoreNilPayload(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	if err := store.Append(ctx, testRunID, "Empty", nil, nil); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}
	events, err := store.GetByRunID(ctx, testRunID)
	if err != nil {
		t.Fatalf("failed to get events: %v", err)
	}
	if string(events[0].Payload()) != "{}" {
		t.Errorf("expected empty object payload, got %s", events[0].Payload())
	}
	if events[0].Metadata() != nil {
		t.Errorf("expected nil metadata, got %v", events[0].Metadata())
	}
}

func TestEventStoreGetRange(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()
	now := time.Now()

	for range 3 {
		if err := store.Append(ctx, testRunID, "Event", []byte("{}"), nil); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	events, err := store.GetRange(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("failed to get range: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("expected 3 events, got %d", len(events))
	}

	events, err = store.GetRange(ctx, now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to get range: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events in past window, got %d", len(events))
	}
}

func TestEventStoreRecentRunIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	for _, id := range []string{"a", "b", "c", "a"} {
		if err := store.Append(ctx, id, "Event", nil, nil); err != nil {
			t.Fatalf("failed to append event: %v", err)
		}
	}

	ids, err := store.RecentRunIDs(ctx, 2)
	if err != nil {
		t.Fatalf("failed to list runs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "c" {
		t.Errorf("expected [a c], got %v", ids)
	}
}

func TestEventStoreClosedQueryFails(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	_ = store.Close()

	err = store.Append(t.Context(), testRunID, "Event", nil, nil)
	if !errors.Is(err, ErrEventAppendFailed) {
		t.Errorf("expected ErrEventAppendFailed, got %v", err)
	}
}

func TestEventStoreCreatesParentDir(t *testing.T) {
	path := t.TempDir() + "/nested/history.db"
	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.Append(t.Context(), testRunID, "Event", nil, nil); err != nil {
		t.Fatalf("failed to append event: %v", err)
	}
}
