package commands

import (
	"log/slog"

	"git.home.luguber.info/inful/polycrystal/internal/config"
	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/eventstore"
	"git.home.luguber.info/inful/polycrystal/internal/flatpak"
	"git.home.luguber.info/inful/polycrystal/internal/logfields"
	"git.home.luguber.info/inful/polycrystal/internal/metrics"
	"git.home.luguber.info/inful/polycrystal/internal/notify"
	"git.home.luguber.info/inful/polycrystal/internal/reconcile"
	"git.home.luguber.info/inful/polycrystal/internal/state"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// runtime bundles the engine with the optional journal, metrics and notifier
// built from configuration.
type runtime struct {
	cfg       *config.Config
	engine    *reconcile.Engine
	recorder  *metrics.PrometheusRecorder
	journal   *eventstore.SQLiteStore
	publisher notify.Publisher
}

func installationFor(cfg *config.Config, override transaction.Installation) transaction.Installation {
	if override != nil {
		return override
	}
	return flatpak.NewInstallation(flatpak.Kind(cfg.Installation), flatpak.WithBinary(cfg.FlatpakBinary))
}

// newEngine builds a bare engine for read-only work such as planning.
func newEngine(cfg *config.Config, g *Global) *reconcile.Engine {
	return reconcile.NewEngine(
		entry.NewAggregator(cfg.EntriesDir),
		state.New(cfg.StatePath),
		installationFor(cfg, g.Installation),
	)
}

// newRuntime builds an engine with every configured side channel. Side
// channels that fail to start are logged and left out; they never block a run.
func newRuntime(cfg *config.Config, g *Global) *runtime {
	rt := &runtime{
		cfg:       cfg,
		recorder:  metrics.NewPrometheusRecorder(nil),
		publisher: notify.Noop{},
	}
	rt.engine = newEngine(cfg, g).WithRecorder(rt.recorder)

	if cfg.History.Path != "" {
		journal, err := eventstore.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			slog.Warn("Run journal unavailable", logfields.Path(cfg.History.Path), logfields.Error(err))
		} else {
			rt.journal = journal
			rt.engine.WithJournal(journal)
		}
	}

	if cfg.Notify.NATSURL != "" {
		pub, err := notify.NewNATSPublisher(cfg.Notify.NATSURL, cfg.Notify.Subject)
		if err != nil {
			slog.Warn("Run notifications unavailable", logfields.Error(err))
		} else {
			rt.publisher = pub
		}
	}
	rt.engine.WithPublisher(rt.publisher)
	return rt
}

// exportMetrics writes the node-exporter textfile when configured.
func (rt *runtime) exportMetrics() {
	if rt.cfg.Metrics.Textfile == "" {
		return
	}
	if err := rt.recorder.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
		slog.Warn("Failed to write metrics textfile", logfields.Path(rt.cfg.Metrics.Textfile), logfields.Error(err))
	}
}

func (rt *runtime) Close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			slog.Warn("Failed to close run journal", logfields.Error(err))
		}
	}
	if err := rt.publisher.Close(); err != nil {
		slog.Warn("Failed to close notifier", logfields.Error(err))
	}
}
