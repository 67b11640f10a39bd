package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/llvmbuilder/cmd/llvmbuilder/commands"
	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/version"
)

func main() {
	// Dotfiles must be in the environment before kong reads env-tagged flags.
	config.LoadEnvFiles()

	cli := &commands.CLI{}
	ctx := kong.Parse(cli,
		kong.Name("llvmbuilder"),
		kong.Description("Reproducible build, test and sync pipeline for LLVM checkouts."),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)

	if err := ctx.Run(&commands.Global{}); err != nil {
		code := commands.ExitCode(err)
		if code == commands.ExitCanceled {
			slog.Info("Interrupted")
		} else {
			slog.Error("Command failed", "error", err)
		}
		os.Exit(code)
	}
}
