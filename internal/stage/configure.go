package stage

import (
	"path/filepath"
	"sort"
	"strings"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

// featureCacheVars maps feature-toggle keys to the CMake cache variables
// they drive. Every config.KnownFeatures key has an entry here; a test
// enforces the pairing.
var featureCacheVars = map[string]string{
	"build-examples": "LLVM_BUILD_EXAMPLES",
	"build-tools":    "LLVM_INCLUDE_TOOLS",
	"enable-cir":     "CLANG_ENABLE_CIR",
	"enable-eh":      "LLVM_ENABLE_EH",
	"enable-rtti":    "LLVM_ENABLE_RTTI",
}

// configureCommands generates the build system for the configured project
// set. Argument order is deterministic so identical configurations produce
// identical command lines.
func configureCommands(cfg *config.Config) []Invocation {
	build := buildPath(cfg)

	args := []string{
		"-G", cfg.Generator.CMakeName(),
		"-S", filepath.Join(cfg.SourceDir, "llvm"),
		"-B", build,
		"-DCMAKE_BUILD_TYPE=" + string(cfg.BuildType),
		"-DLLVM_ENABLE_PROJECTS=" + strings.Join(cfg.Projects, ";"),
	}
	if len(cfg.Targets) > 0 {
		args = append(args, "-DLLVM_TARGETS_TO_BUILD="+strings.Join(cfg.Targets, ";"))
	}
	args = append(args, "-DLLVM_ENABLE_ASSERTIONS="+onOff(cfg.Assertions))
	if cfg.CC != "" {
		args = append(args, "-DCMAKE_C_COMPILER="+cfg.CC)
	}
	if cfg.CXX != "" {
		args = append(args, "-DCMAKE_CXX_COMPILER="+cfg.CXX)
	}
	if cfg.SplitDwarf {
		args = append(args, "-DLLVM_USE_SPLIT_DWARF=ON")
	}
	if cfg.LLD {
		args = append(args, "-DLLVM_ENABLE_LLD=ON")
	}

	// Every feature toggle is propagated explicitly, on or off, so a rerun
	// never inherits a stale cached value.
	keys := make([]string, 0, len(cfg.Features))
	for k := range cfg.Features {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		cacheVar, ok := featureCacheVars[k]
		if !ok {
			continue
		}
		args = append(args, "-D"+cacheVar+"="+onOff(cfg.Features[k]))
	}

	return []Invocation{{
		Program: "cmake",
		Args:    args,
		Dir:     cfg.SourceDir,
	}}
}

func onOff(v bool) string {
	if v {
		return "ON"
	}
	return "OFF"
}
