package commands

import (
	"encoding/json"
	"fmt"

	"git.home.luguber.info/inful/polycrystal/internal/reconcile"
)

// PlanCmd implements the 'plan' command.
type PlanCmd struct {
	Format string `short:"f" enum:"text,json" default:"text" help:"Output format (text, json)"`
}

type planOutput struct {
	ToInstall []string `json:"to_install"`
	ToRemove  []string `json:"to_remove"`
}

func (p *PlanCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	plan, err := newEngine(cfg, g).Plan(g.context())
	if err != nil {
		return err
	}

	result := planOutput{
		ToInstall: reconcile.Names(plan.ToInstall),
		ToRemove:  reconcile.Names(plan.ToRemove),
	}
	out := g.out()
	if p.Format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if plan.Empty() {
		_, err = fmt.Fprintln(out, "Nothing to do.")
		return err
	}
	for _, name := range result.ToInstall {
		if _, err := fmt.Fprintf(out, "+ %s\n", name); err != nil {
			return err
		}
	}
	for _, name := range result.ToRemove {
		if _, err := fmt.Fprintf(out, "- %s\n", name); err != nil {
			return err
		}
	}
	return nil
}
