package watcher

import (
	"crateprune/internal/shared/observability"
	"crateprune/internal/shared/util"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// Watcher batches file system events under a set of roots and hands the
// changed paths to a callback once the debounce window has passed quietly.
// Callbacks never overlap.
type Watcher struct {
	fsWatcher    *fsnotify.Watcher
	debounce     time.Duration
	roots        map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
	extFilters   map[string]bool
	nameFilters  map[string]bool
	onChange     func([]string)
	callbackMu   sync.Mutex

	pending   map[string]time.Time
	pendingMu sync.Mutex
	timer     *time.Timer
}

func NewWatcher(debounce time.Duration, excludeDirs, excludeFiles []string, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return nil, err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher:    fsw,
		debounce:     debounce,
		roots:        make(map[string]bool),
		excludeDirs:  compiledDirs,
		excludeFiles: compiledFiles,
		extFilters:   map[string]bool{".rs": true},
		nameFilters:  map[string]bool{"cargo.toml": true},
		onChange:     onChange,
		pending:      make(map[string]time.Time),
	}, nil
}

func compileAll(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// SetFilters replaces the extensions and exact file names that trigger a
// change. Matching is case-insensitive.
func (w *Watcher) SetFilters(extensions, filenames []string) {
	extFilter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		if !strings.HasPrefix(normalized, ".") {
			normalized = "." + normalized
		}
		extFilter[normalized] = true
	}

	nameFilter := make(map[string]bool, len(filenames))
	for _, name := range filenames {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		nameFilter[normalized] = true
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.extFilters = extFilter
	w.nameFilters = nameFilter
}

// SetExclusions swaps the directory and file exclusion globs. Directories
// already being watched stay registered; their events are filtered instead.
func (w *Watcher) SetExclusions(excludeDirs, excludeFiles []string) error {
	compiledDirs, err := compileAll(excludeDirs)
	if err != nil {
		return err
	}
	compiledFiles, err := compileAll(excludeFiles)
	if err != nil {
		return err
	}

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.excludeDirs = compiledDirs
	w.excludeFiles = compiledFiles
	return nil
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		root := filepath.Clean(path)
		w.roots[root] = true
		if err := w.watchRecursive(root); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unwatchable path", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if w.shouldExcludeDir(path) {
			return filepath.SkipDir
		}
		return w.fsWatcher.Add(path)
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Has(fsnotify.Create) {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if w.shouldExcludeFile(event.Name) {
				continue
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.scheduleChange(event.Name)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) scheduleChange(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	w.pending[path] = time.Now()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flushChanges)
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]time.Time)
	w.pendingMu.Unlock()

	if len(paths) > 0 {
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(paths)
	}
}

// shouldExcludeDir never excludes a watched root, even when its base name
// matches an exclusion pattern.
func (w *Watcher) shouldExcludeDir(path string) bool {
	if w.roots[filepath.Clean(path)] {
		return false
	}
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	return w.matchesExcludedDir(filepath.Base(path))
}

func (w *Watcher) matchesExcludedDir(name string) bool {
	for _, g := range w.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// relativeToRoot returns path relative to the deepest watched root that
// contains it, in slash form, and the directory names in between.
func (w *Watcher) relativeToRoot(path string) (string, []string) {
	best := ""
	for root := range w.roots {
		if util.IsWithin(root, path) && len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return filepath.Base(path), nil
	}
	rel := util.RelativeSlashPath(best, path)
	parts := strings.Split(rel, "/")
	return rel, parts[:len(parts)-1]
}

func (w *Watcher) shouldExcludeFile(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	rel, dirs := w.relativeToRoot(path)

	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// Explicit names such as Cargo.toml bypass the exclusion globs.
	if w.nameFilters[base] {
		return false
	}
	if !w.extFilters[strings.ToLower(filepath.Ext(base))] {
		return true
	}
	for _, dir := range dirs {
		if w.matchesExcludedDir(dir) {
			return true
		}
	}
	// File patterns are anchored at the watched root, so build.rs only
	// matches the package build script.
	for _, g := range w.excludeFiles {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d == nil || d.IsDir() {
			return nil
		}
		if w.shouldExcludeFile(path) {
			return nil
		}
		w.scheduleChange(path)
		return nil
	})
}
