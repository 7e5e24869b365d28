package app

import (
	"crateprune/internal/core/config"
	"crateprune/internal/core/ports"
	"crateprune/internal/core/watcher"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"log/slog"
	"path/filepath"
	"sync"
)

// Update is emitted after every analysis run, successful or not.
type Update struct {
	Report *Report
	Err    error
}

type App struct {
	Config *config.Config
	Paths  config.ResolvedPaths

	reader  ports.ManifestReader
	scanner ports.CorpusScanner
	history ports.HistoryStore
	cache   *corpus.TokenCache

	// runMu serializes analyses; watch reruns and direct calls never overlap.
	runMu sync.Mutex
	stage Stage

	updateMu sync.RWMutex
	onUpdate func(Update)

	watchMu       sync.Mutex
	activeWatcher *watcher.Watcher
}

var (
	_ ports.ManifestReader = manifest.FileReader{}
	_ ports.CorpusScanner  = (*corpus.Scanner)(nil)
)

type Option func(*App)

// WithManifestReader replaces the on-disk manifest reader.
func WithManifestReader(reader ports.ManifestReader) Option {
	return func(a *App) { a.reader = reader }
}

// WithScanner replaces the directory scanner built from the scan config.
func WithScanner(scanner ports.CorpusScanner) Option {
	return func(a *App) { a.scanner = scanner }
}

// WithHistory enables snapshot persistence and trend reporting.
func WithHistory(store ports.HistoryStore) Option {
	return func(a *App) { a.history = store }
}

// WithTokenCache reuses tokenized files across runs.
func WithTokenCache(cache *corpus.TokenCache) Option {
	return func(a *App) { a.cache = cache }
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts ...Option) *App {
	a := &App{
		Config: cfg,
		Paths:  paths,
		reader: manifest.FileReader{},
		stage:  StageIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reconfigure swaps the configuration used by later runs. A running
// watcher picks up the new debounce, filters and exclusions; its roots are
// kept.
func (a *App) Reconfigure(cfg *config.Config, paths config.ResolvedPaths) {
	a.runMu.Lock()
	a.Config = cfg
	a.Paths = paths
	a.runMu.Unlock()

	a.watchMu.Lock()
	defer a.watchMu.Unlock()
	if a.activeWatcher != nil {
		a.activeWatcher.SetDebounce(cfg.Watch.Debounce)
		a.activeWatcher.SetFilters(cfg.Scan.Extensions, []string{filepath.Base(paths.ManifestPath)})
		if err := a.activeWatcher.SetExclusions(cfg.Scan.ExcludeDirs, cfg.Scan.ExcludeFiles); err != nil {
			slog.Warn("watcher kept previous exclusions", "error", err)
		}
	}
}

// Stage returns the state reached by the most recent run.
func (a *App) Stage() Stage {
	a.runMu.Lock()
	defer a.runMu.Unlock()
	return a.stage
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}
