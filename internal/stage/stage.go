// Package stage defines the build pipeline's stage catalog: what each stage
// is called, which effect class it belongs to, which stages must precede it,
// and the exact external commands it issues. Command construction is pure;
// nothing here touches the filesystem or spawns a process.
package stage

import (
	"path/filepath"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// Name is a strongly-typed identifier for a pipeline stage.
type Name string

// Canonical stage names, in catalog order.
const (
	Clean     Name = "clean"
	Configure Name = "configure"
	Build     Name = "build"
	Test      Name = "test"
)

// EffectClass describes how a stage alters the environment it runs in.
type EffectClass string

const (
	// Destructive stages remove previously produced state.
	Destructive EffectClass = "destructive"
	// Generative stages produce new on-disk state.
	Generative EffectClass = "generative"
	// Verification stages validate state without otherwise changing intent.
	Verification EffectClass = "verification"
)

// Invocation is one external command a stage issues: the program, its
// arguments, the working directory, and a label distinguishing it from
// sibling invocations of the same stage (e.g. check-mlir).
type Invocation struct {
	Program string
	Args    []string
	Dir     string
	Label   string
}

// Stage pairs a catalog entry with its command builder. Commands returns the
// ordered invocations for one run; a failed invocation aborts the remainder
// of the stage and the pipeline.
type Stage struct {
	Name     Name
	Effect   EffectClass
	Needs    []Name
	Commands func(cfg *config.Config) []Invocation
}

// Catalog returns the full stage list in execution order. The order is
// fixed: clean, configure, build, test, each requiring its predecessor.
func Catalog() []Stage {
	return []Stage{
		{Name: Clean, Effect: Destructive, Commands: cleanCommands},
		{Name: Configure, Effect: Generative, Needs: []Name{Clean}, Commands: configureCommands},
		{Name: Build, Effect: Generative, Needs: []Name{Configure}, Commands: buildCommands},
		{Name: Test, Effect: Verification, Needs: []Name{Build}, Commands: testCommands},
	}
}

// buildPath resolves the build tree location. A relative build_dir is
// anchored at the source checkout so invocations behave the same no matter
// where the tool itself was started.
func buildPath(cfg *config.Config) string {
	if filepath.IsAbs(cfg.BuildDir) {
		return cfg.BuildDir
	}
	return filepath.Join(cfg.SourceDir, cfg.BuildDir)
}
