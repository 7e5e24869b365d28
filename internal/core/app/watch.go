package app

import (
	"context"
	"crateprune/internal/core/watcher"
	"crateprune/internal/shared/util"
	"log/slog"
	"path/filepath"
)

// StartWatcher reruns the analysis whenever a source file or the manifest
// changes. Reruns beyond limiter's budget are dropped; the next change
// triggers a fresh run.
func (a *App) StartWatcher(ctx context.Context, limiter *util.Limiter) error {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.activeWatcher != nil {
		return nil
	}

	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Scan.ExcludeDirs,
		a.Config.Scan.ExcludeFiles,
		func(paths []string) { a.HandleChanges(ctx, paths, limiter) },
	)
	if err != nil {
		return err
	}
	w.SetFilters(a.Config.Scan.Extensions, []string{filepath.Base(a.Paths.ManifestPath)})

	roots := []string{a.Paths.ProjectRoot}
	if dir := filepath.Dir(a.Paths.ManifestPath); !util.IsWithin(a.Paths.ProjectRoot, dir) {
		roots = append(roots, dir)
	}
	if err := w.Watch(roots); err != nil {
		_ = w.Close()
		return err
	}
	a.activeWatcher = w
	slog.Info("watching for changes", "root", a.Paths.ProjectRoot, "manifest", a.Paths.ManifestPath)
	return nil
}

// StopWatcher releases the file system watcher, if any.
func (a *App) StopWatcher() error {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.activeWatcher == nil {
		return nil
	}
	err := a.activeWatcher.Close()
	a.activeWatcher = nil
	return err
}

func (a *App) HandleChanges(ctx context.Context, paths []string, limiter *util.Limiter) {
	if ctx.Err() != nil {
		return
	}
	if limiter != nil && !limiter.Allow(1) {
		slog.Warn("rerun throttled", "changes", len(paths))
		return
	}
	slog.Info("detected changes", "count", len(paths))
	// Failures are logged and emitted by Analyze; watch mode keeps running.
	_, _ = a.Analyze(ctx)
}
