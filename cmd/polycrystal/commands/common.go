// Package commands implements the polycrystal subcommands.
package commands

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/polycrystal/internal/config"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// Global carries process-wide dependencies into every command.
type Global struct {
	Ctx context.Context
	Out io.Writer

	// Installation replaces the flatpak CLI mechanism when set.
	Installation transaction.Installation
}

func (g *Global) context() context.Context {
	if g.Ctx == nil {
		return context.Background()
	}
	return g.Ctx
}

func (g *Global) out() io.Writer {
	if g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config     string           `short:"c" type:"path" env:"POLYCRYSTAL_CONFIG" help:"Configuration file path (default ${default_config})"`
	Verbose    bool             `short:"v" help:"Enable verbose logging"`
	Version    kong.VersionFlag `name:"version" help:"Show version and exit"`
	EntriesDir string           `name:"entries-dir" type:"path" help:"Override the entries directory"`
	StatePath  string           `name:"state-path" type:"path" help:"Override the recorded state file"`

	Reconcile ReconcileCmd `cmd:"" default:"1" help:"Bring installed applications in line with the entry files (default)"`
	Plan      PlanCmd      `cmd:"" help:"Show what a reconciliation would change without applying it"`
	Status    StatusCmd    `cmd:"" help:"Print the recorded state"`
	History   HistoryCmd   `cmd:"" help:"List recent reconciliation runs from the journal"`
	Daemon    DaemonCmd    `cmd:"" help:"Reconcile continuously on entry changes and on an interval"`
}

// Vars returns the kong variables interpolated into flag help.
func Vars() kong.Vars {
	return kong.Vars{"default_config": config.DefaultConfigPath}
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// LoadConfig reads the configuration file and applies flag overrides. The
// default file may be absent; a file named with --config must exist.
func (c *CLI) LoadConfig() (*config.Config, error) {
	path, required := config.DefaultConfigPath, false
	if c.Config != "" {
		path, required = c.Config, true
	}
	cfg, err := config.Load(path, required)
	if err != nil {
		return nil, err
	}
	if c.EntriesDir != "" {
		cfg.EntriesDir = c.EntriesDir
	}
	if c.StatePath != "" {
		cfg.StatePath = c.StatePath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("Loaded configuration",
		slog.String("config", path),
		slog.String("entries_dir", cfg.EntriesDir),
		slog.String("state_path", cfg.StatePath))
	return cfg, nil
}
