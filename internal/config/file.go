package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML schema. Scalar fields are pointers so a merge can
// distinguish "absent" from a deliberate zero value. Durations are strings
// ("90m", "2s") parsed during Resolve.
type File struct {
	CC           *string         `yaml:"cc,omitempty"`
	CXX          *string         `yaml:"cxx,omitempty"`
	Generator    *string         `yaml:"generator,omitempty"`
	Projects     []string        `yaml:"projects,omitempty"`
	Targets      []string        `yaml:"targets,omitempty"`
	BuildType    *string         `yaml:"build_type,omitempty"`
	Assertions   *bool           `yaml:"assertions,omitempty"`
	SplitDwarf   *bool           `yaml:"split_dwarf,omitempty"`
	LLD          *bool           `yaml:"lld,omitempty"`
	Features     map[string]bool `yaml:"features,omitempty"`
	Jobs         *int            `yaml:"jobs,omitempty"`
	SourceDir    *string         `yaml:"source_dir,omitempty"`
	BuildDir     *string         `yaml:"build_dir,omitempty"`
	StageTimeout *string         `yaml:"stage_timeout,omitempty"`
	LogTailLines *int            `yaml:"log_tail_lines,omitempty"`

	History *HistoryFile `yaml:"history,omitempty"`
	Notify  *NotifyFile  `yaml:"notify,omitempty"`
	Sync    *SyncFile    `yaml:"sync,omitempty"`
	Watch   *WatchFile   `yaml:"watch,omitempty"`
}

// HistoryFile is the history section of the YAML schema.
type HistoryFile struct {
	Path     *string `yaml:"path,omitempty"`
	Disabled *bool   `yaml:"disabled,omitempty"`
}

// NotifyFile is the notify section of the YAML schema.
type NotifyFile struct {
	URL     *string `yaml:"url,omitempty"`
	Subject *string `yaml:"subject,omitempty"`
}

// SyncFile is the sync section of the YAML schema.
type SyncFile struct {
	UpstreamURL            *string `yaml:"upstream_url,omitempty"`
	UpstreamRemote         *string `yaml:"upstream_remote,omitempty"`
	MirrorBranch           *string `yaml:"mirror_branch,omitempty"`
	TrackerAPIURL          *string `yaml:"tracker_api_url,omitempty"`
	TrackerSubmodule       *string `yaml:"tracker_submodule,omitempty"`
	RequireOriginSubstring *string `yaml:"require_origin_substring,omitempty"`
}

// WatchFile is the watch section of the YAML schema.
type WatchFile struct {
	Paths    []string `yaml:"paths,omitempty"`
	Debounce *string  `yaml:"debounce,omitempty"`
	Every    *string  `yaml:"every,omitempty"`
	Listen   *string  `yaml:"listen,omitempty"`
	Stages   []string `yaml:"stages,omitempty"`
}

// Load reads the YAML configuration at path. A missing file yields an empty
// File so flag/env/default resolution can still proceed; any present file is
// decoded strictly, and keys outside the schema are rejected as unknown
// options. Environment variables referenced as ${VAR} in the file body are
// expanded before decoding.
func Load(path string) (*File, error) {
	LoadEnvFiles()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("No configuration file; using flags, environment and defaults", "path", path)
			return &File{}, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var f File
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			// An empty file is a valid (all-defaults) configuration.
			return &File{}, nil
		}
		if strings.Contains(err.Error(), "not found in type") {
			return nil, &ConfigError{Kind: KindUnknownOption, Err: err}
		}
		return nil, &ConfigError{Kind: KindInvalidValue, Err: err}
	}
	return &f, nil
}
