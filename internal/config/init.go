package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a starter configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := File{
		CC:        ptr("/usr/bin/clang"),
		CXX:       ptr("/usr/bin/clang++"),
		Generator: ptr("ninja"),
		Projects:  []string{"mlir", "clang"},
		Targets:   []string{"Native"},
		BuildType: ptr("Debug"),
		Features: map[string]bool{
			"enable-cir": false,
		},
		SourceDir:    ptr("."),
		BuildDir:     ptr("build"),
		StageTimeout: ptr("90m"),
		History: &HistoryFile{
			Path: ptr(".llvmbuilder/history.db"),
		},
		Watch: &WatchFile{
			Paths:    []string{"llvm", "clang", "mlir"},
			Debounce: ptr("2s"),
			Stages:   []string{"build", "test"},
		},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func ptr[T any](v T) *T { return &v }
