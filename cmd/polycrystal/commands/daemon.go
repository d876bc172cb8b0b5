package commands

import (
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/polycrystal/internal/daemon"
	"git.home.luguber.info/inful/polycrystal/internal/reconcile"
)

// DaemonCmd implements the 'daemon' command.
type DaemonCmd struct {
	Interval time.Duration `help:"Override daemon.interval (0 keeps the configured value)"`
	Debounce time.Duration `help:"Override daemon.debounce (0 keeps the configured value)"`
	Listen   string        `help:"Override metrics.listen"`
}

func (d *DaemonCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if d.Interval > 0 {
		cfg.Daemon.Interval = d.Interval
	}
	if d.Debounce > 0 {
		cfg.Daemon.Debounce = d.Debounce
	}
	if d.Listen != "" {
		cfg.Metrics.Listen = d.Listen
	}

	rt := newRuntime(cfg, g)
	defer rt.Close()

	ctx, cancel := signal.NotifyContext(g.context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dm := daemon.New(rt.engine, daemon.Options{
		EntriesDir:     cfg.EntriesDir,
		Interval:       cfg.Daemon.Interval,
		Debounce:       cfg.Daemon.Debounce,
		MetricsListen:  cfg.Metrics.Listen,
		MetricsHandler: rt.recorder.Handler(),
		AfterRun: func(*reconcile.Result, error) {
			rt.exportMetrics()
		},
	})
	if err := dm.Run(ctx); err != nil {
		return err
	}
	slog.Info("Daemon stopped")
	return nil
}
