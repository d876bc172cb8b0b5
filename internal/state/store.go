package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
)

const (
	fileMode = 0o644
	dirMode  = 0o755
)

// Store locates the state record and its lock file.
type Store struct {
	path     string
	lockPath string
}

// New creates a store for the record at path.
func New(path string) *Store {
	return &Store{path: path, lockPath: path + ".lock"}
}

// Path returns the record path.
func (s *Store) Path() string { return s.path }

// Handle is an exclusively locked view of the record. It must be closed on every path.
type Handle struct {
	store    *Store
	lock     *os.File
	recorded entry.Set

	mu     sync.Mutex
	closed bool
}

// Open blocks until the exclusive lock is acquired, creating the record and its
// directory if absent, and loads the recorded set.
func (s *Store) Open() (*Handle, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), dirMode); err != nil {
		return nil, errors.LockError("cannot create state directory").WithCause(err).
			WithContext("path", s.path).Build()
	}

	lock, err := os.OpenFile(s.lockPath, os.O_RDWR|os.O_CREATE, fileMode)
	if err != nil {
		return nil, errors.LockError("cannot open state lock file").WithCause(err).
			WithContext("path", s.lockPath).Build()
	}
	slog.Debug("Waiting for state lock", logfields.Path(s.lockPath))
	if err := lockExclusive(lock); err != nil {
		_ = lock.Close()
		return nil, errors.LockError("cannot lock state").WithCause(err).
			WithContext("path", s.lockPath).Build()
	}

	h := &Handle{store: s, lock: lock}

	f, err := os.OpenFile(s.path, os.O_RDONLY|os.O_CREATE, fileMode)
	if err != nil {
		_ = h.Close()
		return nil, errors.LockError("cannot open state file").WithCause(err).
			WithContext("path", s.path).Build()
	}
	_ = f.Close()

	recorded, err := s.read()
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	h.recorded = recorded
	slog.Debug("Loaded recorded state", logfields.Path(s.path), slog.Int("entries", recorded.Len()))
	return h, nil
}

// Snapshot reads the record under a shared lock without creating anything.
func (s *Store) Snapshot() (entry.Set, error) {
	lock, err := os.Open(s.lockPath)
	switch {
	case err == nil:
		defer func() { _ = lock.Close() }()
		if err := lockShared(lock); err != nil {
			return nil, errors.LockError("cannot lock state").WithCause(err).
				WithContext("path", s.lockPath).Build()
		}
		defer func() { _ = unlock(lock) }()
	case !os.IsNotExist(err):
		return nil, errors.LockError("cannot open state lock file").WithCause(err).
			WithContext("path", s.lockPath).Build()
	}
	return s.read()
}

func (s *Store) read() (entry.Set, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return entry.NewSet(), nil
		}
		return nil, errors.LockError("cannot read state file").WithCause(err).
			WithContext("path", s.path).Build()
	}
	if len(data) == 0 {
		return entry.NewSet(), nil
	}
	recorded, err := decode(data)
	if err != nil {
		return nil, errors.ParseError("malformed state file").
			WithCause(err).WithContext("path", s.path).Build()
	}
	return recorded, nil
}

func decode(data []byte) (entry.Set, error) {
	var list []entry.PackageEntry
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, err
	}
	recorded := entry.NewSet()
	for i, e := range list {
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		recorded.Add(e)
	}
	return recorded, nil
}

// Recorded returns a copy of the set loaded by Open, or of the last commit.
func (h *Handle) Recorded() entry.Set {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.recorded.Clone()
}

// Commit durably replaces the record with set. The lock stays held.
func (h *Handle) Commit(set entry.Set) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.InternalError("commit on closed state handle").Build()
	}

	data, err := json.MarshalIndent(entry.Sorted(set), "", "  ")
	if err != nil {
		return errors.CommitError("cannot encode state").WithCause(err).Build()
	}
	data = append(data, '\n')

	if err := writeAtomic(h.store.path, data); err != nil {
		return errors.CommitError("cannot commit state").WithCause(err).
			WithContext("path", h.store.path).Build()
	}
	h.recorded = set.Clone()
	slog.Debug("Committed state", logfields.Path(h.store.path), slog.Int("entries", set.Len()))
	return nil
}

// Close releases the lock. It is safe to call more than once.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	unlockErr := unlock(h.lock)
	closeErr := h.lock.Close()
	if unlockErr != nil {
		return unlockErr
	}
	return closeErr
}

// writeAtomic writes data to a temporary sibling, syncs it and renames it over path.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temporary file: %w", err)
	}
	if err = tmp.Chmod(fs.FileMode(fileMode)); err != nil {
		return fmt.Errorf("chmod temporary file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temporary file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temporary file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return syncDir(dir)
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("open state directory: %w", err)
	}
	defer func() { _ = d.Close() }()
	if err := d.Sync(); err != nil {
		return fmt.Errorf("sync state directory: %w", err)
	}
	return nil
}
