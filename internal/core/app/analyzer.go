package app

import (
	"context"
	"crateprune/internal/core/errors"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"crateprune/internal/engine/usage"
	"crateprune/internal/shared/observability"
	"crateprune/internal/shared/util"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Stage is the furthest point a run has reached.
type Stage string

const (
	StageIdle           Stage = "idle"
	StageManifestLoaded Stage = "manifest_loaded"
	StageScanned        Stage = "scanned"
	StageMatched        Stage = "matched"
	StageReported       Stage = "reported"
)

// Analyze runs the full pipeline once. Any error other than a skipped file
// aborts the run; no partial report is produced.
func (a *App) Analyze(ctx context.Context) (*Report, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	start := time.Now()
	a.stage = StageIdle

	ctx, span := observability.Tracer.Start(ctx, "crateprune.analyze")
	defer span.End()

	report, err := a.analyze(ctx, start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		observability.RunsTotal.WithLabelValues("error").Inc()
		slog.Error("analysis failed", "stage", a.stage, "code", errors.CodeOf(err), "error", err)
		a.emitUpdate(Update{Err: err})
		return nil, err
	}

	outcome := "clean"
	if report.HasFindings() {
		outcome = "findings"
	}
	observability.RunsTotal.WithLabelValues(outcome).Inc()
	span.SetAttributes(
		attribute.Int("crateprune.dependencies", report.Stats.Dependencies),
		attribute.Int("crateprune.unused", report.Stats.Unused),
	)
	slog.Info("analysis complete",
		"dependencies", report.Stats.Dependencies,
		"unused", report.Stats.Unused,
		"files", report.Stats.FilesScanned,
		"warnings", len(report.Warnings),
		"duration", report.Stats.Duration,
		"heap_mb", util.HeapAllocMB(),
	)
	a.emitUpdate(Update{Report: report})
	return report, nil
}

func (a *App) analyze(ctx context.Context, start time.Time) (*Report, error) {
	var m *manifest.Manifest
	err := a.runStage(ctx, "read_manifest", func(ctx context.Context) error {
		var err error
		m, err = a.reader.Read(a.Paths.ManifestPath)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.stage = StageManifestLoaded
	observability.DeclaredDependencies.Set(float64(len(m.Dependencies)))
	slog.Debug("manifest loaded", "path", m.Path, "package", m.PackageName, "dependencies", len(m.Dependencies))

	var scan *corpus.Result
	err = a.runStage(ctx, "scan", func(ctx context.Context) error {
		scanner := a.scanner
		if scanner == nil {
			s, err := corpus.NewScanner(a.scanOptions(m))
			if err != nil {
				return err
			}
			scanner = s
		}
		var err error
		scan, err = scanner.Scan(ctx, a.Paths.ProjectRoot)
		return err
	})
	if err != nil {
		return nil, err
	}
	a.stage = StageScanned
	for _, w := range scan.Warnings {
		slog.Warn("skipped unreadable source file", "path", w.Path, "error", w.Err)
	}

	var findings []usage.Finding
	err = a.runStage(ctx, "match", func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		deps := selectSections(m.Dependencies, a.Config.Deps.SelectedSections())
		ignored := append(append([]string(nil), a.Config.Deps.Ignored...), m.Ignored...)
		findings = usage.Match(scan.Corpus, deps, ignored)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.stage = StageMatched

	var report Report
	err = a.runStage(ctx, "report", func(context.Context) error {
		report = BuildReport(m, findings, scan.Warnings, Stats{
			FilesScanned: len(scan.Files),
			Tokens:       scan.Corpus.Len(),
		})
		report.ProjectRoot = a.Paths.ProjectRoot
		report.Stats.Duration = time.Since(start)
		recordUnusedMetrics(report)
		return a.recordHistory(&report)
	})
	if err != nil {
		return nil, err
	}
	a.stage = StageReported
	return &report, nil
}

// runStage wraps fn in a span and a stage timer. Errors are tagged with the
// stage name.
func (a *App) runStage(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := observability.Tracer.Start(ctx, "crateprune."+name)
	defer span.End()

	timer := time.Now()
	err := fn(ctx)
	observability.StageDuration.WithLabelValues(name).Observe(time.Since(timer).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return errors.AddContext(err, errors.CtxStage, name)
	}
	return nil
}

func (a *App) scanOptions(m *manifest.Manifest) corpus.Options {
	mode, err := corpus.ParseMode(a.Config.Scan.Mode)
	if err != nil {
		mode = corpus.ModeLexical
	}

	excludeFiles := append([]string(nil), a.Config.Scan.ExcludeFiles...)
	if pattern := buildScriptPattern(m, a.Paths.ProjectRoot); pattern != "" {
		excludeFiles = util.UniqueStrings(append(excludeFiles, pattern))
	}

	return corpus.Options{
		Extensions:   a.Config.Scan.Extensions,
		ExcludeDirs:  a.Config.Scan.ExcludeDirs,
		ExcludeFiles: excludeFiles,
		Mode:         mode,
		Workers:      a.Config.Scan.Workers,
		Cache:        a.cache,
	}
}

// buildScriptPattern returns an exclusion pattern for a custom build script
// path, relative to the project root. Scripts outside the root never match.
func buildScriptPattern(m *manifest.Manifest, root string) string {
	if m == nil || strings.TrimSpace(m.BuildScript) == "" {
		return ""
	}
	script := m.BuildScript
	if !filepath.IsAbs(script) && m.Path != "" {
		script = filepath.Join(filepath.Dir(m.Path), script)
	}
	rel, err := filepath.Rel(root, script)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return glob.QuoteMeta(filepath.ToSlash(rel))
}

func selectSections(deps []manifest.Dependency, selected map[manifest.Section]bool) []manifest.Dependency {
	if len(selected) == 0 {
		return deps
	}
	out := make([]manifest.Dependency, 0, len(deps))
	for _, dep := range deps {
		if selected[dep.Section] {
			out = append(out, dep)
		}
	}
	return out
}

func recordUnusedMetrics(report Report) {
	counts := make(map[manifest.Section]int, len(manifest.Sections))
	for _, e := range report.Unused {
		counts[e.Section]++
	}
	for _, section := range manifest.Sections {
		observability.UnusedDependencies.WithLabelValues(string(section)).Set(float64(counts[section]))
	}
}
