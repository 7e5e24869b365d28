package watcher

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, changed <-chan []string, want string, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		select {
		case paths := <-changed:
			for _, p := range paths {
				if p == want {
					return
				}
			}
		case <-deadline:
			t.Fatalf("timed out waiting for change to %s", want)
		}
	}
}

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func TestNewWatcher_RejectsBadGlob(t *testing.T) {
	if _, err := NewWatcher(time.Millisecond, []string{"[unclosed"}, nil, func([]string) {}); err == nil {
		t.Fatal("expected glob compile error")
	}
}

func TestWatcher(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, []string{"target"}, []string{"build.rs"}, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.MkdirAll(filepath.Join(tmpDir, "target"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	testFile := filepath.Join(tmpDir, "lib.rs")
	if err := os.WriteFile(testFile, []byte("use serde;"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, testFile, 2*time.Second)

	// Excluded files, excluded directories and non-source files are silent.
	for _, rel := range []string{"build.rs", "notes.txt", filepath.Join("target", "gen.rs")} {
		if err := os.WriteFile(filepath.Join(tmpDir, rel), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case paths := <-changedFiles:
		t.Errorf("excluded files triggered event: %v", paths)
	case <-time.After(500 * time.Millisecond):
	}

	manifest := filepath.Join(tmpDir, "Cargo.toml")
	if err := os.WriteFile(manifest, []byte("[dependencies]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, manifest, 2*time.Second)

	// New directories are watched recursively.
	subdir := filepath.Join(tmpDir, "src")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	subFile := filepath.Join(subdir, "main.rs")
	if err := os.WriteFile(subFile, []byte("fn main() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, subFile, 2*time.Second)
}

func TestWatcher_RenameTriggersChange(t *testing.T) {
	tmpDir := t.TempDir()

	changedFiles := make(chan []string, 8)
	w, err := NewWatcher(100*time.Millisecond, nil, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	oldPath := filepath.Join(tmpDir, "old.rs")
	newPath := filepath.Join(tmpDir, "new.rs")
	if err := os.WriteFile(oldPath, []byte("fn a() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Rename(oldPath, newPath); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case paths := <-changedFiles:
			for _, p := range paths {
				if p == oldPath || p == newPath {
					return
				}
			}
		case <-timeout:
			t.Fatalf("timed out waiting for rename event, old=%s new=%s", oldPath, newPath)
		}
	}
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, nil, []string{"*.generated.rs"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if w.shouldExcludeFile("main.rs") {
		t.Fatal("expected .rs to be watched by default")
	}
	if w.shouldExcludeFile("CARGO.TOML") {
		t.Fatal("expected manifest name match to be case-insensitive")
	}
	if !w.shouldExcludeFile("schema.generated.rs") {
		t.Fatal("expected exclusion glob to apply")
	}

	w.SetFilters([]string{"rs", ".RSX"}, []string{"Cargo.lock"})
	if w.shouldExcludeFile("view.rsx") {
		t.Fatal("expected extension without dot to be normalized")
	}
	if !w.shouldExcludeFile("Cargo.toml") {
		t.Fatal("expected name filters to be replaced")
	}
	if w.shouldExcludeFile("Cargo.lock") {
		t.Fatal("expected Cargo.lock to be included via filename filter")
	}
}

func TestWatcher_RootMatchingExcludeIsStillWatched(t *testing.T) {
	root := filepath.Join(t.TempDir(), "vendor")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatal(err)
	}

	changedFiles := make(chan []string, 4)
	w, err := NewWatcher(50*time.Millisecond, []string{"vendor"}, nil, func(paths []string) {
		changedFiles <- paths
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}

	file := filepath.Join(root, "lib.rs")
	if err := os.WriteFile(file, []byte("fn f() {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, changedFiles, file, 2*time.Second)
}

func TestWatcher_ExclusionsAreRootRelative(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(10*time.Millisecond, []string{"target"}, []string{"build.rs"}, func([]string) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{root}); err != nil {
		t.Fatal(err)
	}

	if !w.shouldExcludeFile(filepath.Join(root, "build.rs")) {
		t.Fatal("expected package build script to be excluded")
	}
	if w.shouldExcludeFile(filepath.Join(root, "src", "commands", "build.rs")) {
		t.Fatal("nested build.rs module must still trigger reruns")
	}

	if err := w.SetExclusions([]string{"generated"}, nil); err != nil {
		t.Fatal(err)
	}
	if w.shouldExcludeFile(filepath.Join(root, "build.rs")) {
		t.Fatal("expected replaced file exclusions to apply")
	}
	if !w.shouldExcludeFile(filepath.Join(root, "generated", "out.rs")) {
		t.Fatal("expected new directory exclusion to filter events")
	}
	if w.shouldExcludeDir(filepath.Join(root, "target")) {
		t.Fatal("expected old directory exclusion to be dropped")
	}

	if err := w.SetExclusions([]string{"[unclosed"}, nil); err == nil {
		t.Fatal("expected glob compile error")
	}
	if !w.shouldExcludeDir(filepath.Join(root, "generated")) {
		t.Fatal("failed update must keep previous exclusions")
	}
}
