package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/polycrystal/cmd/polycrystal/commands"
	"git.home.luguber.info/inful/polycrystal/internal/errors"
	"git.home.luguber.info/inful/polycrystal/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("polycrystal"),
		kong.Description("Reconcile installed Flatpak applications with declared entry files."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		commands.Vars(),
	)

	global := &commands.Global{Ctx: context.Background(), Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
