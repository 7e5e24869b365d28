package cli

import (
	"context"
	coreapp "crateprune/internal/core/app"
	"crateprune/internal/core/config"
	"crateprune/internal/core/errors"
	"crateprune/internal/data/history"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/shared/observability"
	"crateprune/internal/shared/util"
	"crateprune/internal/shared/version"
	"crateprune/internal/ui/report/formats"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"
)

const (
	exitClean    = 0
	exitFatal    = 1
	exitUsage    = 2
	exitFindings = 3
)

// Run executes the command line and returns the process exit status.
func Run(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to detect working directory: %v\n", err)
		return exitFatal
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, args, cwd, os.Stdout, os.Stderr)
}

// session is everything one invocation needs after configuration.
type session struct {
	opts    cliOptions
	cfgPath string
	cfgSeen bool
	cwd     string
	stdout  io.Writer
	app     *coreapp.App
}

func run(ctx context.Context, args []string, cwd string, stdout, stderr io.Writer) int {
	opts, err := parseOptions(args, stderr)
	if err != nil {
		if stderrors.Is(err, flag.ErrHelp) {
			return exitClean
		}
		fmt.Fprintln(stderr, err.Error())
		return exitUsage
	}

	if opts.version {
		fmt.Fprintf(stdout, "crateprune v%s\n", version.Version)
		return exitClean
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose, stderr)
	defer cleanupLogs()

	if err := config.LoadEnvFiles(filepath.Join(cwd, ".env")); err != nil {
		slog.Warn("failed to load .env", "error", err)
	}

	cfgPath := config.ResolveRelative(cwd, opts.configPath)
	cfg, paths, found, err := loadConfig(opts, cfgPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		if errors.IsCode(err, errors.CodeValidationError) {
			return exitUsage
		}
		return exitFatal
	}
	if found {
		slog.Debug("config loaded", "path", cfgPath)
	}

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up tracing", "error", err)
		return exitFatal
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("failed to flush traces", "error", err)
		}
	}()

	appOpts := []coreapp.Option{}
	cache, err := corpus.NewTokenCache(cfg.Scan.CacheSize)
	if err != nil {
		slog.Error("failed to create token cache", "error", err)
		return exitFatal
	}
	appOpts = append(appOpts, coreapp.WithTokenCache(cache))

	if cfg.History.Enabled {
		store, err := history.Open(paths.HistoryPath)
		if err != nil {
			if history.IsCorruptError(err) {
				slog.Error("history database is corrupt; remove it to start a fresh history", "path", paths.HistoryPath, "error", err)
			} else {
				slog.Error("failed to open history store", "path", paths.HistoryPath, "error", err)
			}
			return exitFatal
		}
		defer store.Close()
		slog.Debug("history enabled", "path", store.Path(), "project", cfg.History.ProjectKey)
		appOpts = append(appOpts, coreapp.WithHistory(store))
	}

	s := &session{
		opts:    opts,
		cfgPath: cfgPath,
		cfgSeen: found,
		cwd:     cwd,
		stdout:  stdout,
		app:     coreapp.New(cfg, paths, appOpts...),
	}

	report, err := s.app.Analyze(ctx)
	if err != nil {
		return exitFatal
	}

	if opts.watch {
		return s.watch(ctx, report)
	}

	if err := s.emit(report); err != nil {
		slog.Error("failed to write report", "error", err)
		return exitFatal
	}
	return exitCode(report)
}

// loadConfig reads the optional config file, layers the explicit flags on
// top and resolves the run's paths.
func loadConfig(opts cliOptions, cfgPath, cwd string) (*config.Config, config.ResolvedPaths, bool, error) {
	var (
		cfg   *config.Config
		found bool
		err   error
	)
	if opts.set["config"] {
		cfg, err = config.Load(cfgPath)
		found = err == nil
	} else {
		cfg, found, err = config.LoadOptional(cfgPath)
	}
	if err != nil {
		return nil, config.ResolvedPaths{}, false, err
	}

	cfg, paths, err := finishConfig(opts, cfg, cwd)
	return cfg, paths, found, err
}

func finishConfig(opts cliOptions, cfg *config.Config, cwd string) (*config.Config, config.ResolvedPaths, error) {
	applyOptions(opts, cfg)
	if err := config.Validate(cfg); err != nil {
		return nil, config.ResolvedPaths{}, err
	}
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return nil, config.ResolvedPaths{}, err
	}
	return cfg, paths, nil
}

func setupTracing(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.Observability.EnableTracing && cfg.Observability.OTLPEndpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	return observability.SetupTracing(ctx, cfg.Observability.OTLPEndpoint)
}

// emit writes report to the configured destination and refreshes the
// metrics textfile.
func (s *session) emit(report *coreapp.Report) error {
	cfg := s.app.Config
	paths := s.app.Paths

	if paths.OutputPath != "" {
		data, err := formats.Render(cfg.Output.Format, *report, formats.Options{})
		if err != nil {
			return err
		}
		if err := util.WriteFileWithDirs(paths.OutputPath, data, 0o644); err != nil {
			return fmt.Errorf("write report %s: %w", paths.OutputPath, err)
		}
		slog.Info("report written", "path", paths.OutputPath, "format", cfg.Output.Format)
	} else if err := formats.Write(s.stdout, cfg.Output.Format, *report, formats.Options{Color: cfg.Output.ColorEnabled()}); err != nil {
		return err
	}

	if paths.MetricsFile != "" {
		if err := observability.WriteTextfile(paths.MetricsFile); err != nil {
			slog.Warn("failed to write metrics textfile", "path", paths.MetricsFile, "error", err)
		}
	}
	return nil
}

// watch keeps re-running the analysis until ctx is cancelled. The exit
// status reflects the last successful run.
func (s *session) watch(ctx context.Context, initial *coreapp.Report) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu   sync.Mutex
		last = initial
	)
	if !s.opts.ui {
		if err := s.emit(initial); err != nil {
			slog.Error("failed to write report", "error", err)
			return exitFatal
		}
		s.app.SetUpdateHandler(func(update coreapp.Update) {
			if update.Report == nil {
				return
			}
			mu.Lock()
			last = update.Report
			mu.Unlock()
			if err := s.emit(update.Report); err != nil {
				slog.Error("failed to write report", "error", err)
			}
		})
	}

	limiter := util.NewPerMinuteLimiter(s.app.Config.Watch.MaxRunsPerMinute)
	if err := s.app.StartWatcher(ctx, limiter); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return exitFatal
	}
	defer func() {
		if err := s.app.StopWatcher(); err != nil {
			slog.Warn("failed to stop watcher", "error", err)
		}
	}()

	if s.cfgSeen {
		cfgWatcher := config.NewWatcher(s.cfgPath, s.reconfigure)
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config hot reload unavailable", "path", s.cfgPath, "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if s.opts.ui {
		err := runUI(s.app, initial)
		s.app.SetUpdateHandler(nil)
		if err != nil {
			slog.Error("terminal UI failed", "error", err)
			return exitFatal
		}
		return exitClean
	}

	<-ctx.Done()
	s.app.SetUpdateHandler(nil)
	slog.Info("watch stopped")
	mu.Lock()
	defer mu.Unlock()
	return exitCode(last)
}

// reconfigure applies a reloaded config file. Flags still win over the
// file. Watched roots are kept; scan settings apply from the next run.
func (s *session) reconfigure(cfg *config.Config) {
	cfg, paths, err := finishConfig(s.opts, cfg, s.cwd)
	if err != nil {
		slog.Warn("reloaded config rejected; keeping previous configuration", "error", err)
		return
	}
	s.app.Reconfigure(cfg, paths)
}

func exitCode(report *coreapp.Report) int {
	if report != nil && report.HasFindings() {
		return exitFindings
	}
	return exitClean
}

func configureLogging(uiMode, verbose bool, stderr io.Writer) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "crateprune", "crateprune.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "crateprune", "crateprune.log")
	}

	return "crateprune.log"
}
