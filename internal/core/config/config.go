package config

import (
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"strings"
	"time"
)

const (
	DefaultConfigFile   = "crateprune.toml"
	DefaultManifestFile = "Cargo.toml"
	DefaultHistoryFile  = ".crateprune/history.db"
)

// OutputFormats lists the accepted values of output.format.
var OutputFormats = []string{"text", "json", "yaml", "tsv", "markdown", "sarif"}

type Config struct {
	Version       int           `toml:"version"`
	Manifest      string        `toml:"manifest"`
	ProjectRoot   string        `toml:"project_root"`
	Scan          Scan          `toml:"scan"`
	Deps          Deps          `toml:"deps"`
	Output        Output        `toml:"output"`
	History       History       `toml:"history"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Scan struct {
	Extensions   []string `toml:"extensions"`
	ExcludeDirs  []string `toml:"exclude_dirs"`
	ExcludeFiles []string `toml:"exclude_files"`
	Mode         string   `toml:"mode"`
	Workers      int      `toml:"workers"`
	CacheSize    int      `toml:"cache_size"`
}

type Deps struct {
	Sections []string `toml:"sections"`
	Ignored  []string `toml:"ignored"`
}

type Output struct {
	Format string `toml:"format"`
	Path   string `toml:"path"`
	Color  *bool  `toml:"color"`
}

type History struct {
	Enabled    bool          `toml:"enabled"`
	Path       string        `toml:"path"`
	ProjectKey string        `toml:"project_key"`
	Window     time.Duration `toml:"window"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	MaxRunsPerMinute int           `toml:"max_runs_per_minute"`
}

type Observability struct {
	MetricsFile   string `toml:"metrics_file"`
	OTLPEndpoint  string `toml:"otlp_endpoint"`
	EnableTracing bool   `toml:"enable_tracing"`
}

// Default returns a validated configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Manifest) == "" {
		cfg.Manifest = DefaultManifestFile
	}

	if len(cfg.Scan.Extensions) == 0 {
		cfg.Scan.Extensions = append([]string(nil), corpus.DefaultExtensions...)
	}
	// nil means unset; an explicit empty list disables the defaults.
	if cfg.Scan.ExcludeDirs == nil {
		cfg.Scan.ExcludeDirs = append([]string(nil), corpus.DefaultExcludeDirs...)
	}
	if cfg.Scan.ExcludeFiles == nil {
		cfg.Scan.ExcludeFiles = append([]string(nil), corpus.DefaultExcludeFiles...)
	}
	if strings.TrimSpace(cfg.Scan.Mode) == "" {
		cfg.Scan.Mode = string(corpus.ModeLexical)
	}
	if cfg.Scan.CacheSize <= 0 {
		cfg.Scan.CacheSize = 4096
	}

	if len(cfg.Deps.Sections) == 0 {
		for _, s := range manifest.Sections {
			cfg.Deps.Sections = append(cfg.Deps.Sections, string(s))
		}
	}

	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = "text"
	}
	if cfg.Output.Color == nil {
		enabled := true
		cfg.Output.Color = &enabled
	}

	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = DefaultHistoryFile
	}
	if strings.TrimSpace(cfg.History.ProjectKey) == "" {
		cfg.History.ProjectKey = "default"
	}
	if cfg.History.Window == 0 {
		cfg.History.Window = 7 * 24 * time.Hour
	}

	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.MaxRunsPerMinute == 0 {
		cfg.Watch.MaxRunsPerMinute = 30
	}
}

// ColorEnabled reports whether styled text output is allowed.
func (o Output) ColorEnabled() bool {
	if o.Color == nil {
		return true
	}
	return *o.Color
}

// SelectedSections returns the configured sections as manifest sections.
// Unknown names are dropped; validation rejects them earlier.
func (d Deps) SelectedSections() map[manifest.Section]bool {
	out := make(map[manifest.Section]bool, len(d.Sections))
	for _, raw := range d.Sections {
		if s, ok := manifest.ParseSection(raw); ok {
			out[s] = true
		}
	}
	return out
}
