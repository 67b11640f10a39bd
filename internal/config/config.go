// Package config holds the validated, immutable option set governing a
// pipeline run: toolchain selection, enabled sub-projects, target
// architectures, build mode, feature toggles, and parallelism. Values are
// merged with fixed precedence (explicit flag > environment variable >
// config file > built-in default) and validated once; the resulting Config
// is read-only for the remainder of the run.
package config

import (
	"strings"
	"time"
)

// BuildType is the CMake build mode for the toolchain tree.
type BuildType string

const (
	Debug          BuildType = "Debug"
	Release        BuildType = "Release"
	RelWithDebInfo BuildType = "RelWithDebInfo"
	MinSizeRel     BuildType = "MinSizeRel"
)

// BuildTypes lists every accepted build mode token, in canonical form.
var BuildTypes = []BuildType{Debug, Release, RelWithDebInfo, MinSizeRel}

// ParseBuildType resolves a token to its canonical BuildType, case-insensitively.
func ParseBuildType(token string) (BuildType, error) {
	for _, bt := range BuildTypes {
		if strings.EqualFold(token, string(bt)) {
			return bt, nil
		}
	}
	return "", invalidValue("build_type", token)
}

// Generator selects the build-system generator handed to CMake.
type Generator string

const (
	GeneratorNinja Generator = "ninja"
	GeneratorMake  Generator = "make"
)

// ParseGenerator resolves a generator token, case-insensitively.
func ParseGenerator(token string) (Generator, error) {
	switch strings.ToLower(token) {
	case string(GeneratorNinja):
		return GeneratorNinja, nil
	case string(GeneratorMake):
		return GeneratorMake, nil
	default:
		return "", invalidValue("generator", token)
	}
}

// CMakeName returns the generator name in CMake's -G syntax.
func (g Generator) CMakeName() string {
	if g == GeneratorMake {
		return "Unix Makefiles"
	}
	return "Ninja"
}

// KnownFeatures is the closed set of feature-toggle keys the configure stage
// understands. Any other key is rejected as an unknown option.
var KnownFeatures = []string{
	"build-examples",
	"build-tools",
	"enable-cir",
	"enable-eh",
	"enable-rtti",
}

// Config is the resolved option set for one pipeline run.
type Config struct {
	// Toolchain paths; empty means the build system picks its own default.
	CC  string
	CXX string

	Generator  Generator
	Projects   []string
	Targets    []string
	BuildType  BuildType
	Assertions bool
	SplitDwarf bool
	LLD        bool

	// Features carries an explicit value for every key in KnownFeatures.
	Features map[string]bool

	Jobs int

	SourceDir string
	BuildDir  string

	// StageTimeout bounds each external invocation; zero disables the bound.
	StageTimeout time.Duration
	// LogTailLines is the number of trailing output lines kept per stage result.
	LogTailLines int

	History HistoryConfig
	Notify  NotifyConfig
	Sync    SyncConfig
	Watch   WatchConfig
}

// HistoryConfig controls the SQLite run-history store.
type HistoryConfig struct {
	Path     string
	Disabled bool
}

// NotifyConfig controls the optional NATS run-event publisher.
type NotifyConfig struct {
	URL     string
	Subject string
}

// SyncConfig parameterizes fork-point synchronization with upstream LLVM.
type SyncConfig struct {
	UpstreamURL      string
	UpstreamRemote   string
	MirrorBranch     string
	TrackerAPIURL    string
	TrackerSubmodule string
	// RequireOriginSubstring, when set, refuses to sync unless the origin
	// remote URL contains this fragment (guards against running in the
	// wrong clone).
	RequireOriginSubstring string
}

// WatchConfig controls watch mode.
type WatchConfig struct {
	// Paths are watched subtrees relative to SourceDir.
	Paths    []string
	Debounce time.Duration
	// Every triggers a full clean rebuild on an interval; zero disables it.
	Every time.Duration
	// Listen is the metrics/health HTTP address; empty disables the listener.
	Listen string
	// Stages is the stage subset re-run on file changes.
	Stages []string
}

// Default returns the built-in configuration every run starts from.
// Every field carries a concrete value so later merging never leaves an
// option ambiguous.
func Default() *Config {
	features := make(map[string]bool, len(KnownFeatures))
	for _, k := range KnownFeatures {
		features[k] = false
	}
	return &Config{
		Generator:    GeneratorNinja,
		Projects:     []string{"mlir", "clang"},
		Targets:      []string{"Native"},
		BuildType:    Debug,
		Assertions:   true,
		Features:     features,
		Jobs:         defaultJobs(),
		SourceDir:    ".",
		BuildDir:     "build",
		LogTailLines: 40,
		History: HistoryConfig{
			Path: ".llvmbuilder/history.db",
		},
		Notify: NotifyConfig{
			Subject: "llvmbuilder.runs",
		},
		Sync: SyncConfig{
			UpstreamURL:      "git@github.com:llvm/llvm-project.git",
			UpstreamRemote:   "llvm-upstream",
			MirrorBranch:     "llvm-main",
			TrackerAPIURL:    "https://api.github.com/repos/llvm/circt/contents/",
			TrackerSubmodule: "llvm",
		},
		Watch: WatchConfig{
			Paths:    []string{"llvm", "clang", "mlir"},
			Debounce: 2 * time.Second,
			Stages:   []string{"build", "test"},
		},
	}
}

// Validate enforces the configuration invariants. It never touches the
// filesystem: compiler and directory existence is an execution-time concern.
func (c *Config) Validate() error {
	if c.Jobs < 1 {
		return invalidValue("jobs", itoa(c.Jobs))
	}
	if len(c.Projects) == 0 {
		return &ConfigError{Kind: KindInvalidValue, Option: "projects", Value: "(empty)"}
	}
	for _, p := range c.Projects {
		if !validToken(p) {
			return invalidValue("projects", p)
		}
	}
	for _, tgt := range c.Targets {
		if !validToken(tgt) {
			return invalidValue("targets", tgt)
		}
	}
	if _, err := ParseBuildType(string(c.BuildType)); err != nil {
		return err
	}
	if _, err := ParseGenerator(string(c.Generator)); err != nil {
		return err
	}
	for key := range c.Features {
		if !knownFeature(key) {
			return unknownOption("features." + key)
		}
	}
	if c.SourceDir == "" {
		return invalidValue("source_dir", "")
	}
	if c.BuildDir == "" {
		return invalidValue("build_dir", "")
	}
	if c.StageTimeout < 0 {
		return invalidValue("stage_timeout", c.StageTimeout.String())
	}
	if c.LogTailLines < 1 {
		return invalidValue("log_tail_lines", itoa(c.LogTailLines))
	}
	if c.Watch.Debounce <= 0 {
		return invalidValue("watch.debounce", c.Watch.Debounce.String())
	}
	return nil
}

func knownFeature(key string) bool {
	for _, k := range KnownFeatures {
		if k == key {
			return true
		}
	}
	return false
}

// validToken accepts the identifier shapes CMake cache values are built from
// (project names, target architectures). Whitespace or separator characters
// would corrupt the generated -D arguments.
func validToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
