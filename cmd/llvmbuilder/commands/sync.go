package commands

import (
	"os"

	"git.home.luguber.info/inful/llvmbuilder/internal/executor"
	"git.home.luguber.info/inful/llvmbuilder/internal/syncer"
)

// SyncCmd implements the 'sync' command.
type SyncCmd struct {
	Step   string `help:"Move the fork point: a positive or negative commit count, or MAX for the mirror tip"`
	DryRun bool   `name:"dry-run" help:"Report what would change without touching the clone"`
}

func (s *SyncCmd) Run(_ *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	sy := syncer.New(cfg.SourceDir, cfg.Sync, &executor.Engine{}, os.Stdout)
	return sy.Sync(ctx, syncer.Options{Step: s.Step, DryRun: s.DryRun})
}
