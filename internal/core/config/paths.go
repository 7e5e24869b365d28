package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ResolvedPaths holds the absolute locations a run reads from and writes to.
type ResolvedPaths struct {
	ManifestPath string
	ProjectRoot  string
	HistoryPath  string
	OutputPath   string
	MetricsFile  string
}

// ResolvePaths anchors the configured paths. The manifest and project root
// resolve against cwd; the project root defaults to the manifest directory.
// The history path resolves against the project root; output and metrics
// paths resolve against cwd.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return ResolvedPaths{}, err
	}

	manifestPath := ResolveRelative(cwd, cfg.Manifest)

	projectRoot := strings.TrimSpace(cfg.ProjectRoot)
	if projectRoot == "" {
		projectRoot = filepath.Dir(manifestPath)
	} else {
		projectRoot = ResolveRelative(cwd, projectRoot)
	}

	resolved := ResolvedPaths{
		ManifestPath: manifestPath,
		ProjectRoot:  projectRoot,
		HistoryPath:  ResolveRelative(projectRoot, cfg.History.Path),
	}
	if p := strings.TrimSpace(cfg.Output.Path); p != "" && p != "-" {
		resolved.OutputPath = ResolveRelative(cwd, p)
	}
	if p := strings.TrimSpace(cfg.Observability.MetricsFile); p != "" {
		resolved.MetricsFile = ResolveRelative(cwd, p)
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}
