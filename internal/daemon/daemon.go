// Package daemon keeps the system reconciled: one run at start, then a run
// after every settled change to the entries directory and on a fixed interval.
package daemon

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
	"git.home.luguber.info/inful/polycrystal/internal/reconcile"
)

// Runner performs one reconciliation. *reconcile.Engine implements it.
type Runner interface {
	Run(ctx context.Context, req reconcile.Request) (*reconcile.Result, error)
}

// Options configures the daemon.
type Options struct {
	EntriesDir string
	// Interval between periodic runs; 0 disables them.
	Interval time.Duration
	// Debounce is the quiet period after the last entries change before a run.
	Debounce time.Duration

	MetricsListen  string
	MetricsHandler http.Handler

	// AfterRun is called after every run with its result.
	AfterRun func(*reconcile.Result, error)
}

// Daemon serialises reconciliation runs coming from its triggers.
type Daemon struct {
	runner Runner
	opts   Options

	mu       sync.Mutex
	stopped  bool
	runs     atomic.Int64
	failures atomic.Int64
}

// New creates a daemon driving runner.
func New(runner Runner, opts Options) *Daemon {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	return &Daemon{runner: runner, opts: opts}
}

// Run blocks until ctx is cancelled. A run already in progress when ctx is
// cancelled is allowed to finish so no transaction is cut short.
func (d *Daemon) Run(ctx context.Context) error {
	slog.Info("Starting daemon",
		logfields.Path(d.opts.EntriesDir),
		slog.Duration("interval", d.opts.Interval),
		slog.Duration("debounce", d.opts.Debounce))

	if d.opts.MetricsListen != "" && d.opts.MetricsHandler != nil {
		srv, err := StartMetricsServer(d.opts.MetricsListen, d.opts.MetricsHandler)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				slog.Warn("Metrics server shutdown failed", logfields.Error(err))
			}
		}()
	}
	defer d.stop()

	watcher, err := NewEntriesWatcher(d.opts.EntriesDir, d.opts.Debounce, func() {
		d.Trigger(ctx, reconcile.TriggerWatch)
	})
	if err != nil {
		return errors.DaemonError("cannot create entries watcher").WithCause(err).Build()
	}
	if err := watcher.Start(ctx); err != nil {
		_ = watcher.Stop()
		return errors.DaemonError("cannot watch entries directory").
			WithCause(err).
			WithContext("dir", d.opts.EntriesDir).
			Build()
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			slog.Warn("Entries watcher shutdown failed", logfields.Error(err))
		}
	}()

	if d.opts.Interval > 0 {
		scheduler, err := NewScheduler()
		if err != nil {
			return errors.DaemonError("cannot create scheduler").WithCause(err).Build()
		}
		if _, err := scheduler.ScheduleEvery("reconcile", d.opts.Interval, func() {
			d.Trigger(ctx, reconcile.TriggerInterval)
		}); err != nil {
			_ = scheduler.Stop()
			return errors.DaemonError("cannot schedule periodic reconciliation").WithCause(err).Build()
		}
		scheduler.Start()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				slog.Warn("Scheduler shutdown failed", logfields.Error(err))
			}
		}()
	}

	d.Trigger(ctx, reconcile.TriggerStartup)

	<-ctx.Done()
	slog.Info("Stopping daemon", slog.Int64("runs", d.runs.Load()), slog.Int64("failures", d.failures.Load()))
	return nil
}

// Trigger runs one reconciliation unless ctx is already done. Concurrent
// triggers queue behind each other. A failed run is logged, not returned.
func (d *Daemon) Trigger(ctx context.Context, trigger reconcile.Trigger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || ctx.Err() != nil {
		return
	}

	res, err := d.runner.Run(context.WithoutCancel(ctx), reconcile.Request{Trigger: trigger})
	d.runs.Add(1)
	if err != nil {
		d.failures.Add(1)
		slog.Error("Reconciliation failed",
			logfields.Trigger(string(trigger)),
			slog.String("category", string(errors.GetCategory(err))),
			logfields.Error(err))
	}
	if d.opts.AfterRun != nil {
		d.opts.AfterRun(res, err)
	}
}

// stop waits for an in-flight run and refuses later triggers.
func (d *Daemon) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
}

// Runs returns how many runs were attempted.
func (d *Daemon) Runs() int64 { return d.runs.Load() }

// Failures returns how many runs failed.
func (d *Daemon) Failures() int64 { return d.failures.Load() }
