package stage

import (
	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// cleanCommands removes the build tree and recreates it empty. Both steps go
// through the build system's portable file ops, so a missing directory is
// not an error and no shell is involved.
func cleanCommands(cfg *config.Config) []Invocation {
	build := buildPath(cfg)
	return []Invocation{
		{
			Program: "cmake",
			Args:    []string{"-E", "rm", "-rf", build},
			Dir:     cfg.SourceDir,
			Label:   "remove",
		},
		{
			Program: "cmake",
			Args:    []string{"-E", "make_directory", build},
			Dir:     cfg.SourceDir,
			Label:   "create",
		},
	}
}
