package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFiles loads KEY=VALUE pairs from the given .env files without
// overriding variables already set in the process. Missing files are ignored.
func LoadEnvFiles(paths ...string) error {
	existing := make([]string, 0, len(paths))
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: CRATEPRUNE_[SECTION]_[KEY] (e.g., CRATEPRUNE_SCAN_MODE).
func ApplyEnvOverrides(cfg *Config) {
	setEnvString(&cfg.Manifest, "CRATEPRUNE_MANIFEST")
	setEnvString(&cfg.ProjectRoot, "CRATEPRUNE_PROJECT_ROOT")

	// Scan
	setEnvString(&cfg.Scan.Mode, "CRATEPRUNE_SCAN_MODE")
	setEnvInt(&cfg.Scan.Workers, "CRATEPRUNE_SCAN_WORKERS")
	setEnvList(&cfg.Scan.ExcludeDirs, "CRATEPRUNE_SCAN_EXCLUDE_DIRS")

	// Deps
	setEnvList(&cfg.Deps.Ignored, "CRATEPRUNE_DEPS_IGNORED")

	// Output
	setEnvString(&cfg.Output.Format, "CRATEPRUNE_OUTPUT_FORMAT")
	setEnvString(&cfg.Output.Path, "CRATEPRUNE_OUTPUT_PATH")
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		disabled := false
		cfg.Output.Color = &disabled
	}

	// History
	setEnvBool(&cfg.History.Enabled, "CRATEPRUNE_HISTORY_ENABLED")
	setEnvString(&cfg.History.Path, "CRATEPRUNE_HISTORY_PATH")
	setEnvString(&cfg.History.ProjectKey, "CRATEPRUNE_HISTORY_PROJECT_KEY")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "CRATEPRUNE_WATCH_DEBOUNCE")
	setEnvInt(&cfg.Watch.MaxRunsPerMinute, "CRATEPRUNE_WATCH_MAX_RUNS_PER_MINUTE")

	// Observability
	setEnvString(&cfg.Observability.MetricsFile, "CRATEPRUNE_OBSERVABILITY_METRICS_FILE")
	setEnvString(&cfg.Observability.OTLPEndpoint, "CRATEPRUNE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.EnableTracing, "CRATEPRUNE_OBSERVABILITY_ENABLE_TRACING")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		items := make([]string, 0)
		for _, item := range strings.Split(val, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		*target = items
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(val))
		if err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
