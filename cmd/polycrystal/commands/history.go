package commands

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/eventstore"
)

// HistoryCmd implements the 'history' command.
type HistoryCmd struct {
	Limit int  `short:"n" default:"10" help:"Number of runs to show"`
	Plan  bool `help:"List the entries each run planned to install and remove"`
}

func (h *HistoryCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.History.Path == "" {
		return errors.ConfigError("run journal is disabled (history.path is empty)").Build()
	}
	if h.Limit <= 0 {
		return errors.ConfigError("--limit must be positive").WithContext("limit", h.Limit).Build()
	}

	out := g.out()
	if _, err := os.Stat(cfg.History.Path); os.IsNotExist(err) {
		_, err = fmt.Fprintln(out, "No runs recorded.")
		return err
	}

	store, err := eventstore.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := eventstore.RecentRuns(g.context(), store, h.Limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		_, err = fmt.Fprintln(out, "No runs recorded.")
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "STARTED\tRUN\tTRIGGER\tOUTCOME\t+\t-\tERROR")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.RunID, r.Trigger, r.Outcome,
			len(r.ToInstall), len(r.ToRemove), r.Error)
		if h.Plan {
			for _, name := range r.ToInstall {
				_, _ = fmt.Fprintf(tw, "\t\t\t\t+ %s\t\t\n", name)
			}
			for _, name := range r.ToRemove {
				_, _ = fmt.Fprintf(tw, "\t\t\t\t- %s\t\t\n", name)
			}
		}
	}
	return tw.Flush()
}
