package commands

import (
	"fmt"

	"git.home.luguber.info/inful/polycrystal/internal/metrics"
	"git.home.luguber.info/inful/polycrystal/internal/reconcile"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// ReconcileCmd implements the 'reconcile' command.
type ReconcileCmd struct {
	Quiet bool `short:"q" help:"Do not print a summary on success"`
}

func (r *ReconcileCmd) Run(g *Global, root *CLI) error {
	cfg, err := root.LoadConfig()
	if err != nil {
		return err
	}
	rt := newRuntime(cfg, g)
	defer rt.Close()

	res, err := rt.engine.Run(g.context(), reconcile.Request{Trigger: reconcile.TriggerManual})
	rt.exportMetrics()
	if err != nil {
		return err
	}
	if r.Quiet {
		return nil
	}

	out := g.out()
	if res.Outcome == metrics.OutcomeNoop {
		_, err = fmt.Fprintln(out, "Nothing to do.")
		return err
	}
	for _, op := range res.Report.Queued {
		if _, err := fmt.Fprintf(out, "%s %s\n", verbs[op.Kind], op.Entry); err != nil {
			return err
		}
	}
	for _, op := range res.Report.Satisfied {
		if _, err := fmt.Fprintf(out, "%s %s\n", satisfiedVerbs[op.Kind], op.Entry); err != nil {
			return err
		}
	}
	return nil
}

var (
	verbs = map[transaction.OperationKind]string{
		transaction.OpInstall:   "installed",
		transaction.OpUninstall: "removed",
	}
	satisfiedVerbs = map[transaction.OperationKind]string{
		transaction.OpInstall:   "already installed",
		transaction.OpUninstall: "already removed",
	}
)
