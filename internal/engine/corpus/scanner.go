package corpus

import (
	"context"
	"crateprune/internal/core/errors"
	"crateprune/internal/shared/observability"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"
)

// Options configures a Scanner. Zero values fall back to the defaults below.
type Options struct {
	Extensions   []string
	ExcludeDirs  []string
	ExcludeFiles []string
	Mode         Mode
	Workers      int
	Cache        *TokenCache
}

var (
	DefaultExtensions   = []string{".rs"}
	DefaultExcludeDirs  = []string{"target", "vendor", ".git", ".hg", ".svn", ".cargo", "node_modules", ".idea", ".vscode"}
	DefaultExcludeFiles = []string{"build.rs"}
)

// Warning records a file that was skipped without failing the scan.
type Warning struct {
	Path string
	Err  error
}

func (w Warning) String() string {
	return w.Path + ": " + w.Err.Error()
}

// Result is the outcome of a scan.
type Result struct {
	Root     string
	Corpus   *Corpus
	Files    []string
	Warnings []Warning
}

type Scanner struct {
	classifier *classifier
	tokenizer  Tokenizer
	workers    int
	cache      *TokenCache
}

func NewScanner(opts Options) (*Scanner, error) {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	excludeDirs := opts.ExcludeDirs
	if excludeDirs == nil {
		excludeDirs = DefaultExcludeDirs
	}
	excludeFiles := opts.ExcludeFiles
	if excludeFiles == nil {
		excludeFiles = DefaultExcludeFiles
	}

	c, err := newClassifier(extensions, excludeDirs, excludeFiles)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid scan options")
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Scanner{
		classifier: c,
		tokenizer:  newTokenizer(opts.Mode),
		workers:    workers,
		cache:      opts.Cache,
	}, nil
}

// Classify reports whether a root-relative path is a source file.
func (s *Scanner) Classify(relPath string) FileKind {
	return s.classifier.classify(relPath)
}

// SkipDir reports whether a directory with this base name is pruned.
func (s *Scanner) SkipDir(name string) bool {
	return s.classifier.skipDir(name)
}

// Scan walks root and builds the token corpus of every source file.
func (s *Scanner) Scan(ctx context.Context, root string) (*Result, error) {
	files, walkWarnings, err := s.ListFiles(ctx, root)
	if err != nil {
		return nil, err
	}
	res, err := s.ScanFiles(ctx, files)
	if err != nil {
		return nil, err
	}
	res.Root = root
	res.Warnings = append(walkWarnings, res.Warnings...)
	sortWarnings(res.Warnings)
	return res, nil
}

// ListFiles returns the source files under root in lexical walk order.
// Unreadable subdirectories are reported as warnings and skipped.
func (s *Scanner) ListFiles(ctx context.Context, root string) ([]string, []Warning, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, errors.AddContext(errors.Wrap(err, errors.CodeProjectRootNotFound, "project root not found"), errors.CtxPath, root)
	}
	if !info.IsDir() {
		return nil, nil, errors.AddContext(errors.New(errors.CodeProjectRootNotFound, "project root is not a directory"), errors.CtxPath, root)
	}

	var (
		files    []string
		warnings []Warning
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			slog.Warn("skipping unreadable path", "path", path, "error", err)
			warnings = append(warnings, Warning{Path: path, Err: readWarning(err, path)})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && s.classifier.skipDir(d.Name()) {
				slog.Debug("skipping excluded directory", "path", path)
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if s.classifier.classify(rel) == KindSource {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, errors.AddContext(errors.Wrap(err, errors.CodeProjectRootNotFound, "project root is not readable"), errors.CtxPath, root)
	}
	return files, warnings, nil
}

// ScanFiles tokenizes files in parallel. The resulting corpus is the same for
// any ordering of files and any worker count.
func (s *Scanner) ScanFiles(ctx context.Context, files []string) (*Result, error) {
	res := &Result{Corpus: New()}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, path := range files {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			tokens, warn := s.tokenizeFile(path)
			if warn != nil {
				observability.FilesSkippedTotal.Inc()
				slog.Warn("skipping unreadable file", "path", path, "error", warn.Err)
				mu.Lock()
				res.Warnings = append(res.Warnings, *warn)
				mu.Unlock()
				return nil
			}
			observability.FilesScannedTotal.Inc()
			res.Corpus.Add(tokens...)
			mu.Lock()
			res.Files = append(res.Files, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(res.Files)
	sortWarnings(res.Warnings)
	observability.CorpusTokens.Set(float64(res.Corpus.Len()))
	return res, nil
}

func (s *Scanner) tokenizeFile(path string) ([]string, *Warning) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &Warning{Path: path, Err: readWarning(err, path)}
	}
	if tokens, ok := s.cache.Get(path, info); ok {
		observability.TokenCacheHitsTotal.Inc()
		return tokens, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &Warning{Path: path, Err: readWarning(err, path)}
	}
	if !utf8.Valid(content) {
		return nil, &Warning{Path: path, Err: errors.AddContext(errors.New(errors.CodeFileRead, "file is not valid UTF-8"), errors.CtxPath, path)}
	}

	tokens := s.tokenizer.Tokenize(path, content)
	s.cache.Put(path, info, tokens)
	return tokens, nil
}

func readWarning(err error, path string) error {
	return errors.AddContext(errors.Wrap(err, errors.CodeFileRead, "file could not be read"), errors.CtxPath, path)
}

func sortWarnings(warnings []Warning) {
	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Path < warnings[j].Path
	})
}
