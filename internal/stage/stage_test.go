package stage

import (
	"strings"
	"testing"

	"git.home.luguber.info/inful/llvmbuilder/internal/config"
)

func TestCatalogOrder(t *testing.T) {
	catalog := Catalog()
	wantOrder := []Name{Clean, Configure, Build, Test}
	if len(catalog) != len(wantOrder) {
		t.Fatalf("catalog has %d stages, want %d", len(catalog), len(wantOrder))
	}
	for i, st := range catalog {
		if st.Name != wantOrder[i] {
			t.Errorf("catalog[%d] = %s, want %s", i, st.Name, wantOrder[i])
		}
	}
}

func TestCatalogPredecessors(t *testing.T) {
	catalog := Catalog()
	wantNeeds := map[Name][]Name{
		Clean:     nil,
		Configure: {Clean},
		Build:     {Configure},
		Test:      {Build},
	}
	for _, st := range catalog {
		want := wantNeeds[st.Name]
		if len(st.Needs) != len(want) {
			t.Errorf("%s needs %v, want %v", st.Name, st.Needs, want)
			continue
		}
		for i, n := range want {
			if st.Needs[i] != n {
				t.Errorf("%s needs %v, want %v", st.Name, st.Needs, want)
			}
		}
	}
}

func TestCatalogEffectClasses(t *testing.T) {
	wantEffect := map[Name]EffectClass{
		Clean:     Destructive,
		Configure: Generative,
		Build:     Generative,
		Test:      Verification,
	}
	for _, st := range Catalog() {
		if st.Effect != wantEffect[st.Name] {
			t.Errorf("%s effect = %s, want %s", st.Name, st.Effect, wantEffect[st.Name])
		}
	}
}

func TestCleanCommands(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"
	cfg.BuildDir = "build"

	invs := cleanCommands(cfg)
	if len(invs) != 2 {
		t.Fatalf("clean yields %d invocations, want 2", len(invs))
	}
	remove, create := invs[0], invs[1]
	if remove.Label != "remove" || create.Label != "create" {
		t.Errorf("labels = %q, %q, want remove, create", remove.Label, create.Label)
	}
	if got := strings.Join(remove.Args, " "); got != "-E rm -rf /src/llvm-project/build" {
		t.Errorf("remove args = %q", got)
	}
	if got := strings.Join(create.Args, " "); got != "-E make_directory /src/llvm-project/build" {
		t.Errorf("create args = %q", got)
	}
	for _, inv := range invs {
		if inv.Program != "cmake" {
			t.Errorf("program = %q, want cmake", inv.Program)
		}
	}
}

func TestBuildPathAbsolute(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"
	cfg.BuildDir = "/fast-disk/llvm-build"

	invs := cleanCommands(cfg)
	if invs[0].Args[3] != "/fast-disk/llvm-build" {
		t.Errorf("absolute build dir must not be re-anchored: %q", invs[0].Args[3])
	}
}

func TestConfigureCommandDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"

	invs := configureCommands(cfg)
	if len(invs) != 1 {
		t.Fatalf("configure yields %d invocations, want 1", len(invs))
	}
	inv := invs[0]
	if inv.Program != "cmake" {
		t.Errorf("program = %q, want cmake", inv.Program)
	}

	want := []string{
		"-G", "Ninja",
		"-S", "/src/llvm-project/llvm",
		"-B", "/src/llvm-project/build",
		"-DCMAKE_BUILD_TYPE=Debug",
		"-DLLVM_ENABLE_PROJECTS=mlir;clang",
		"-DLLVM_TARGETS_TO_BUILD=Native",
		"-DLLVM_ENABLE_ASSERTIONS=ON",
		"-DLLVM_BUILD_EXAMPLES=OFF",
		"-DLLVM_INCLUDE_TOOLS=OFF",
		"-DCLANG_ENABLE_CIR=OFF",
		"-DLLVM_ENABLE_EH=OFF",
		"-DLLVM_ENABLE_RTTI=OFF",
	}
	if got := strings.Join(inv.Args, " "); got != strings.Join(want, " ") {
		t.Errorf("configure args:\n got %q\nwant %q", got, strings.Join(want, " "))
	}
}

func TestConfigureCommandFullOptions(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"
	cfg.CC = "/usr/bin/clang"
	cfg.CXX = "/usr/bin/clang++"
	cfg.Generator = config.GeneratorMake
	cfg.BuildType = config.Release
	cfg.Assertions = false
	cfg.SplitDwarf = true
	cfg.LLD = true
	cfg.Targets = nil
	cfg.Features["enable-cir"] = true

	args := configureCommands(cfg)[0].Args
	joined := strings.Join(args, " ")

	for _, want := range []string{
		"-G Unix Makefiles",
		"-DCMAKE_BUILD_TYPE=Release",
		"-DLLVM_ENABLE_ASSERTIONS=OFF",
		"-DCMAKE_C_COMPILER=/usr/bin/clang",
		"-DCMAKE_CXX_COMPILER=/usr/bin/clang++",
		"-DLLVM_USE_SPLIT_DWARF=ON",
		"-DLLVM_ENABLE_LLD=ON",
		"-DCLANG_ENABLE_CIR=ON",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("configure args missing %q in %q", want, joined)
		}
	}
	if strings.Contains(joined, "LLVM_TARGETS_TO_BUILD") {
		t.Error("empty targets must defer to the build system default set")
	}
}

func TestConfigureDeterministic(t *testing.T) {
	cfg := config.Default()
	a := strings.Join(configureCommands(cfg)[0].Args, " ")
	for range 10 {
		if b := strings.Join(configureCommands(cfg)[0].Args, " "); b != a {
			t.Fatalf("configure args vary between calls:\n%q\n%q", a, b)
		}
	}
}

func TestBuildCommand(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"
	cfg.Jobs = 12

	invs := buildCommands(cfg)
	if len(invs) != 1 {
		t.Fatalf("build yields %d invocations, want 1", len(invs))
	}
	if got := strings.Join(invs[0].Args, " "); got != "--build /src/llvm-project/build --parallel 12" {
		t.Errorf("build args = %q", got)
	}
}

func TestTestCommands(t *testing.T) {
	cfg := config.Default()
	cfg.SourceDir = "/src/llvm-project"
	cfg.Projects = []string{"mlir", "clang", "lld"}

	invs := testCommands(cfg)
	if len(invs) != 3 {
		t.Fatalf("test yields %d invocations, want 3", len(invs))
	}
	wantLabels := []string{"check-mlir", "check-clang", "check-lld"}
	for i, inv := range invs {
		if inv.Label != wantLabels[i] {
			t.Errorf("invocation %d label = %q, want %q", i, inv.Label, wantLabels[i])
		}
		if got := strings.Join(inv.Args, " "); got != "--build /src/llvm-project/build --target "+wantLabels[i] {
			t.Errorf("invocation %d args = %q", i, got)
		}
	}
}

// Every feature key the configuration accepts must drive a cache variable,
// or a toggle would silently do nothing.
func TestFeatureCacheVarParity(t *testing.T) {
	for _, key := range config.KnownFeatures {
		if _, ok := featureCacheVars[key]; !ok {
			t.Errorf("feature %q has no cache variable mapping", key)
		}
	}
	for key := range featureCacheVars {
		found := false
		for _, known := range config.KnownFeatures {
			if known == key {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("cache variable mapping %q is not a known feature", key)
		}
	}
}
