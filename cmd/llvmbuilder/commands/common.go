package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/stage"
)

// Global carries state shared across subcommands if we need it later.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags - used by commands that need access to root config.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"llvmbuilder.yaml"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Run the build pipeline (clean, configure, build, test)"`
	Sync    SyncCmd    `cmd:"" help:"Rebase local work onto the upstream fork point"`
	History HistoryCmd `cmd:"" help:"Inspect archived runs"`
	Watch   WatchCmd   `cmd:"" help:"Rebuild automatically when watched sources change"`
	Init    InitCmd    `cmd:"" help:"Write a starter configuration file"`
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

// Process exit codes. Stage failures and config rejections are told apart so
// scripts can distinguish "the build broke" from "you called it wrong".
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
	ExitCanceled    = 130
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var cfgErr *config.ConfigError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitCanceled
	case errors.As(err, &cfgErr),
		errors.Is(err, stage.ErrUnknownStage),
		errors.Is(err, stage.ErrEmptySelection):
		return ExitConfigError
	default:
		return ExitFailure
	}
}

// loadConfig resolves the effective configuration for commands without
// build overrides.
func loadConfig(root *CLI) (*config.Config, error) {
	file, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	return config.Resolve(file, config.Overrides{})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func stageNames(names []string) []stage.Name {
	if len(names) == 0 {
		return nil
	}
	out := make([]stage.Name, 0, len(names))
	for _, n := range names {
		out = append(out, stage.Name(n))
	}
	return out
}
