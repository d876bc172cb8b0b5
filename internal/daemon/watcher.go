package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/polycrystal/internal/logfields"
)

// EntriesWatcher monitors the entries directory and calls onChange once per
// burst of events, after debounce has elapsed without further events.
type EntriesWatcher struct {
	dir          string
	watcher      *fsnotify.Watcher
	onChange     func()
	debounceTime time.Duration

	stopOnce sync.Once
	stopChan chan struct{}
	kickChan chan struct{}
	wg       sync.WaitGroup
}

// NewEntriesWatcher creates a watcher for dir.
func NewEntriesWatcher(dir string, debounce time.Duration, onChange func()) (*EntriesWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve entries directory: %w", err)
	}
	return &EntriesWatcher{
		dir:          absDir,
		watcher:      watcher,
		onChange:     onChange,
		debounceTime: debounce,
		stopChan:     make(chan struct{}),
		kickChan:     make(chan struct{}, 1),
	}, nil
}

// Start begins watching the directory.
func (w *EntriesWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch entries directory %s: %w", w.dir, err)
	}
	slog.Info("Watching entries directory", logfields.Path(w.dir))

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.debounceLoop(ctx)
	return nil
}

// Stop stops the watcher. Pending debounced callbacks are dropped.
func (w *EntriesWatcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *EntriesWatcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !relevant(event) {
				continue
			}
			slog.Debug("Entries change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
			w.kick()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Entries watcher error", logfields.Error(err))
		}
	}
}

func (w *EntriesWatcher) debounceLoop(ctx context.Context) {
	defer w.wg.Done()
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.kickChan:
			stop()
			timer = time.AfterFunc(w.debounceTime, w.onChange)
		}
	}
}

func (w *EntriesWatcher) kick() {
	select {
	case w.kickChan <- struct{}{}:
	default:
	}
}

// relevant filters out chmod-only events and files the aggregator ignores.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	return !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, "~")
}
