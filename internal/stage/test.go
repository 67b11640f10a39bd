package stage

import (
	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// testCommands runs each enabled project's check target as its own labeled
// invocation, in project order. The invocations are sequential and fail-fast
// like everything else; the lit harness behind each target manages its own
// parallelism.
func testCommands(cfg *config.Config) []Invocation {
	build := buildPath(cfg)
	invs := make([]Invocation, 0, len(cfg.Projects))
	for _, project := range cfg.Projects {
		target := "check-" + project
		invs = append(invs, Invocation{
			Program: "cmake",
			Args:    []string{"--build", build, "--target", target},
			Dir:     cfg.SourceDir,
			Label:   target,
		})
	}
	return invs
}
