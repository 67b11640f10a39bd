package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
	"git.home.luguber.info/inful/llvmbuilder/internal/executor"
	"git.home.luguber.info/inful/llvmbuilder/internal/history"
	"git.home.luguber.info/inful/llvmbuilder/internal/logfields"
	"git.home.luguber.info/inful/llvmbuilder/internal/notify"
	"git.home.luguber.info/inful/llvmbuilder/internal/pipeline"
)

// BuildCmd implements the 'build' command. Pointer flags distinguish "not
// given" from a deliberate zero, so resolution can layer them over the file.
type BuildCmd struct {
	CC           *string         `help:"C compiler path" env:"LLVMBUILDER_CC"`
	CXX          *string         `help:"C++ compiler path" env:"LLVMBUILDER_CXX"`
	Generator    *string         `help:"CMake generator (ninja or make)" env:"LLVMBUILDER_GENERATOR"`
	Projects     []string        `help:"LLVM projects to enable (comma separated)"`
	Targets      []string        `help:"LLVM targets to build (comma separated)"`
	BuildType    *string         `name:"build-type" help:"CMake build type (Debug, Release, RelWithDebInfo, MinSizeRel)" env:"LLVMBUILDER_BUILD_TYPE"`
	Assertions   *bool           `negatable:"" help:"Enable LLVM assertions"`
	SplitDwarf   *bool           `name:"split-dwarf" negatable:"" help:"Emit split DWARF debug info"`
	LLD          *bool           `name:"lld" negatable:"" help:"Link with LLD"`
	Feature      map[string]bool `help:"Toggle feature flags, e.g. --feature enable-cir=true" mapsep:","`
	Jobs         *int            `short:"j" help:"Parallel build jobs" env:"LLVMBUILDER_JOBS"`
	SourceDir    *string         `name:"source-dir" help:"LLVM source checkout" env:"LLVMBUILDER_SOURCE_DIR"`
	BuildDir     *string         `name:"build-dir" help:"Build output directory" env:"LLVMBUILDER_BUILD_DIR"`
	StageTimeout *time.Duration  `name:"stage-timeout" help:"Per-stage timeout, e.g. 90m" env:"LLVMBUILDER_STAGE_TIMEOUT"`
	LogTail      *int            `name:"log-tail" help:"Output lines kept per failed command"`

	Only       []string `help:"Run only these stages"`
	Skip       []string `help:"Skip these stages"`
	ReportJSON string   `name:"report-json" help:"Also write the run report JSON to this path"`
	NoHistory  bool     `name:"no-history" help:"Do not archive this run"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	file, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	cfg, err := config.Resolve(file, b.overrides())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	bus := pipeline.NewBus()
	SubscribeProgress(bus, os.Stdout)

	var store *history.Store
	if !cfg.History.Disabled {
		store, err = history.Open(cfg.History.Path)
		if err != nil {
			slog.Warn("History unavailable for this run", logfields.Error(err))
			store = nil
		} else {
			defer store.Close()
		}
	}

	publisher, err := notify.New(cfg.Notify)
	if err != nil {
		slog.Warn("Notifications disabled", logfields.Error(err))
	} else if publisher != nil {
		defer publisher.Close()
		notify.Subscribe(bus, publisher)
	}

	p := pipeline.New(cfg, &executor.Engine{}, bus)
	rep, runErr := p.Run(ctx, pipeline.Options{
		Only:   stageNames(b.Only),
		Skip:   stageNames(b.Skip),
		Output: os.Stdout,
	})
	if rep == nil {
		return runErr
	}

	if err := rep.Persist(cfg.BuildDir); err != nil {
		slog.Warn("Failed to persist run report", logfields.Error(err))
	}
	if b.ReportJSON != "" {
		if err := rep.WriteJSON(b.ReportJSON); err != nil {
			slog.Warn("Failed to write report JSON", logfields.Path(b.ReportJSON), logfields.Error(err))
		}
	}
	if store != nil {
		// The archive uses a fresh context: a canceled run still gets stored.
		if err := store.Append(context.Background(), rep); err != nil {
			slog.Warn("Failed to archive run", logfields.Error(err))
		}
	}

	fmt.Println()
	if err := rep.WriteTable(os.Stdout); err != nil {
		slog.Warn("Failed to render summary table", logfields.Error(err))
	}
	return runErr
}

func (b *BuildCmd) overrides() config.Overrides {
	return config.Overrides{
		CC:           b.CC,
		CXX:          b.CXX,
		Generator:    b.Generator,
		Projects:     b.Projects,
		Targets:      b.Targets,
		BuildType:    b.BuildType,
		Assertions:   b.Assertions,
		SplitDwarf:   b.SplitDwarf,
		LLD:          b.LLD,
		Features:     b.Feature,
		Jobs:         b.Jobs,
		SourceDir:    b.SourceDir,
		BuildDir:     b.BuildDir,
		StageTimeout: b.StageTimeout,
		LogTailLines: b.LogTail,
		NoHistory:    b.NoHistory,
	}
}
