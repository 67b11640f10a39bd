package config

import (
	"time"
)

// Overrides carries flag- and environment-sourced values. Pointer fields
// distinguish "not given" from a deliberate zero; nil/empty fields leave the
// file value (or default) in place.
type Overrides struct {
	CC           *string
	CXX          *string
	Generator    *string
	Projects     []string
	Targets      []string
	BuildType    *string
	Assertions   *bool
	SplitDwarf   *bool
	LLD          *bool
	Features     map[string]bool
	Jobs         *int
	SourceDir    *string
	BuildDir     *string
	StageTimeout *time.Duration
	LogTailLines *int
	NoHistory    bool
}

// Resolve merges built-in defaults, the configuration file and overrides, in
// ascending precedence, and validates the result. The returned Config is the
// single source of truth for a run; callers treat it as read-only.
func Resolve(file *File, ov Overrides) (*Config, error) {
	cfg := Default()
	if file == nil {
		file = &File{}
	}

	if err := applyFile(cfg, file); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, ov); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f *File) error {
	setString(&cfg.CC, f.CC)
	setString(&cfg.CXX, f.CXX)
	if err := setGenerator(&cfg.Generator, f.Generator); err != nil {
		return err
	}
	if len(f.Projects) > 0 {
		cfg.Projects = append([]string(nil), f.Projects...)
	}
	if f.Targets != nil {
		cfg.Targets = append([]string(nil), f.Targets...)
	}
	if err := setBuildType(&cfg.BuildType, f.BuildType); err != nil {
		return err
	}
	setBool(&cfg.Assertions, f.Assertions)
	setBool(&cfg.SplitDwarf, f.SplitDwarf)
	setBool(&cfg.LLD, f.LLD)
	for k, v := range f.Features {
		cfg.Features[k] = v
	}
	setInt(&cfg.Jobs, f.Jobs)
	setString(&cfg.SourceDir, f.SourceDir)
	setString(&cfg.BuildDir, f.BuildDir)
	setInt(&cfg.LogTailLines, f.LogTailLines)

	if f.StageTimeout != nil {
		d, err := time.ParseDuration(*f.StageTimeout)
		if err != nil {
			return invalidValue("stage_timeout", *f.StageTimeout)
		}
		cfg.StageTimeout = d
	}

	if f.History != nil {
		setString(&cfg.History.Path, f.History.Path)
		setBool(&cfg.History.Disabled, f.History.Disabled)
	}
	if f.Notify != nil {
		setString(&cfg.Notify.URL, f.Notify.URL)
		setString(&cfg.Notify.Subject, f.Notify.Subject)
	}
	if f.Sync != nil {
		setString(&cfg.Sync.UpstreamURL, f.Sync.UpstreamURL)
		setString(&cfg.Sync.UpstreamRemote, f.Sync.UpstreamRemote)
		setString(&cfg.Sync.MirrorBranch, f.Sync.MirrorBranch)
		setString(&cfg.Sync.TrackerAPIURL, f.Sync.TrackerAPIURL)
		setString(&cfg.Sync.TrackerSubmodule, f.Sync.TrackerSubmodule)
		setString(&cfg.Sync.RequireOriginSubstring, f.Sync.RequireOriginSubstring)
	}
	if f.Watch != nil {
		if len(f.Watch.Paths) > 0 {
			cfg.Watch.Paths = append([]string(nil), f.Watch.Paths...)
		}
		if f.Watch.Debounce != nil {
			d, err := time.ParseDuration(*f.Watch.Debounce)
			if err != nil {
				return invalidValue("watch.debounce", *f.Watch.Debounce)
			}
			cfg.Watch.Debounce = d
		}
		if f.Watch.Every != nil {
			d, err := time.ParseDuration(*f.Watch.Every)
			if err != nil {
				return invalidValue("watch.every", *f.Watch.Every)
			}
			cfg.Watch.Every = d
		}
		setString(&cfg.Watch.Listen, f.Watch.Listen)
		if len(f.Watch.Stages) > 0 {
			cfg.Watch.Stages = append([]string(nil), f.Watch.Stages...)
		}
	}
	return nil
}

func applyOverrides(cfg *Config, ov Overrides) error {
	setString(&cfg.CC, ov.CC)
	setString(&cfg.CXX, ov.CXX)
	if err := setGenerator(&cfg.Generator, ov.Generator); err != nil {
		return err
	}
	if len(ov.Projects) > 0 {
		cfg.Projects = append([]string(nil), ov.Projects...)
	}
	if ov.Targets != nil {
		cfg.Targets = append([]string(nil), ov.Targets...)
	}
	if err := setBuildType(&cfg.BuildType, ov.BuildType); err != nil {
		return err
	}
	setBool(&cfg.Assertions, ov.Assertions)
	setBool(&cfg.SplitDwarf, ov.SplitDwarf)
	setBool(&cfg.LLD, ov.LLD)
	for k, v := range ov.Features {
		cfg.Features[k] = v
	}
	setInt(&cfg.Jobs, ov.Jobs)
	setString(&cfg.SourceDir, ov.SourceDir)
	setString(&cfg.BuildDir, ov.BuildDir)
	if ov.StageTimeout != nil {
		cfg.StageTimeout = *ov.StageTimeout
	}
	setInt(&cfg.LogTailLines, ov.LogTailLines)
	if ov.NoHistory {
		cfg.History.Disabled = true
	}
	return nil
}

// setGenerator and setBuildType canonicalize tokens as they are applied, so
// a lowercase "release" in the file still becomes CMake's "Release".
func setGenerator(dst *Generator, src *string) error {
	if src == nil {
		return nil
	}
	g, err := ParseGenerator(*src)
	if err != nil {
		return err
	}
	*dst = g
	return nil
}

func setBuildType(dst *BuildType, src *string) error {
	if src == nil {
		return nil
	}
	bt, err := ParseBuildType(*src)
	if err != nil {
		return err
	}
	*dst = bt
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
