package corpus

import (
	"crateprune/internal/shared/util"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// FileKind is the closed set of outcomes for a file found during the walk.
type FileKind int

const (
	KindIgnored FileKind = iota
	KindSource
)

func (k FileKind) String() string {
	switch k {
	case KindSource:
		return "source"
	default:
		return "ignored"
	}
}

// classifier decides which files are source files and which directories are
// pruned from the walk.
type classifier struct {
	extensions   map[string]bool
	excludeDirs  []glob.Glob
	excludeFiles []glob.Glob
}

func newClassifier(extensions, excludeDirs, excludeFiles []string) (*classifier, error) {
	c := &classifier{extensions: make(map[string]bool, len(extensions))}
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		c.extensions[ext] = true
	}
	if len(c.extensions) == 0 {
		return nil, fmt.Errorf("at least one source extension is required")
	}

	for _, p := range util.UniqueStrings(excludeDirs) {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		c.excludeDirs = append(c.excludeDirs, g)
	}
	for _, p := range util.UniqueStrings(excludeFiles) {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		c.excludeFiles = append(c.excludeFiles, g)
	}
	return c, nil
}

func (c *classifier) skipDir(name string) bool {
	for _, g := range c.excludeDirs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// classify matches exclusion patterns against the root-relative slash path
// only. A bare "build.rs" therefore excludes the package build script and
// never a module of the same name deeper in the tree.
func (c *classifier) classify(relPath string) FileKind {
	if !c.extensions[strings.ToLower(filepath.Ext(relPath))] {
		return KindIgnored
	}
	rel := util.NormalizePatternPath(relPath)
	for _, g := range c.excludeFiles {
		if g.Match(rel) {
			return KindIgnored
		}
	}
	return KindSource
}
