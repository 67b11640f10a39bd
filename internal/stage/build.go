package stage

import (
	"strconv"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// buildCommands compiles the configured tree. Parallelism is handed to the
// build driver opaquely; the pipeline itself stays sequential.
func buildCommands(cfg *config.Config) []Invocation {
	return []Invocation{{
		Program: "cmake",
		Args: []string{
			"--build", buildPath(cfg),
			"--parallel", strconv.Itoa(cfg.Jobs),
		},
		Dir: cfg.SourceDir,
	}}
}
