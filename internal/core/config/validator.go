package config

import (
	"crateprune/internal/core/errors"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

// Validate checks a config after defaults have been applied.
func Validate(cfg *Config) error {
	for _, check := range []func(*Config) error{
		validateVersion,
		validateScan,
		validateDeps,
		validateOutput,
		validateHistory,
		validateWatch,
	} {
		if err := check(cfg); err != nil {
			return errors.Wrap(err, errors.CodeValidationError, "invalid config")
		}
	}
	return nil
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateScan(cfg *Config) error {
	for _, ext := range cfg.Scan.Extensions {
		if strings.TrimSpace(ext) == "" {
			return fmt.Errorf("scan.extensions must not include empty values")
		}
	}
	for _, p := range cfg.Scan.ExcludeDirs {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("scan.exclude_dirs pattern %q: %w", p, err)
		}
	}
	for _, p := range cfg.Scan.ExcludeFiles {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("scan.exclude_files pattern %q: %w", p, err)
		}
	}
	if _, err := corpus.ParseMode(cfg.Scan.Mode); err != nil {
		return fmt.Errorf("scan.mode: %w", err)
	}
	if cfg.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must be >= 0, got %d", cfg.Scan.Workers)
	}
	return nil
}

func validateDeps(cfg *Config) error {
	seen := make(map[manifest.Section]bool, len(cfg.Deps.Sections))
	for _, raw := range cfg.Deps.Sections {
		s, ok := manifest.ParseSection(raw)
		if !ok {
			return fmt.Errorf("deps.sections must contain only normal, dev, build; got %q", raw)
		}
		if seen[s] {
			return fmt.Errorf("deps.sections repeats %q", raw)
		}
		seen[s] = true
	}
	for _, name := range cfg.Deps.Ignored {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("deps.ignored must not include empty values")
		}
	}
	return nil
}

func validateOutput(cfg *Config) error {
	format := strings.ToLower(strings.TrimSpace(cfg.Output.Format))
	for _, f := range OutputFormats {
		if format == f {
			cfg.Output.Format = format
			return nil
		}
	}
	return fmt.Errorf("output.format must be one of: %s", strings.Join(OutputFormats, ", "))
}

func validateHistory(cfg *Config) error {
	if cfg.History.Window < 0 {
		return fmt.Errorf("history.window must not be negative")
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative")
	}
	if cfg.Watch.MaxRunsPerMinute < 0 {
		return fmt.Errorf("watch.max_runs_per_minute must be >= 0")
	}
	return nil
}
