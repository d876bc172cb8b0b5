package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"git.home.luguber.info/inful/polycrystal/internal/entry"
	"git.home.luguber.info/inful/polycrystal/internal/state"
)

// StatusCmd implements the 'status' command.
type StatusCmd struct {
	Format string `short:"f" enum:"text,json" default:"text" help:"Output format (text, json)"`
}

func (s *StatusCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	recorded, err := state.New(cfg.StatePath).Snapshot()
	if err != nil {
		return err
	}
	entries := entry.Sorted(recorded)

	out := g.out()
	if s.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	if len(entries) == 0 {
		_, err = fmt.Fprintf(out, "No recorded entries in %s\n", cfg.StatePath)
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "REMOTE\tID\tBRANCH")
	for _, e := range entries {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Remote, e.ID, e.Branch)
	}
	return tw.Flush()
}
