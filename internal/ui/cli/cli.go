package cli

import (
	"crateprune/internal/core/config"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type cliOptions struct {
	configPath  string
	manifest    string
	root        string
	format      string
	out         string
	mode        string
	metricsFile string
	excludeDirs stringList
	ignore      stringList
	history     bool
	watch       bool
	ui          bool
	noColor     bool
	verbose     bool
	version     bool
	args        []string

	// set records which flags were given explicitly so they override the
	// config file without clobbering it with flag defaults.
	set map[string]bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

func parseOptions(args []string, stderr io.Writer) (cliOptions, error) {
	var opts cliOptions
	fs := flag.NewFlagSet("crateprune", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", config.DefaultConfigFile, "Path to config file (optional)")
	fs.StringVar(&opts.manifest, "manifest", config.DefaultManifestFile, "Path to Cargo.toml")
	fs.StringVar(&opts.root, "root", "", "Project root to scan (default: manifest directory)")
	fs.StringVar(&opts.format, "format", "text", "Report format: "+strings.Join(config.OutputFormats, ", "))
	fs.StringVar(&opts.out, "out", "", "Write the report to this file instead of stdout")
	fs.StringVar(&opts.mode, "mode", "lexical", "Tokenizer: lexical or syntax")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format after each run")
	fs.Var(&opts.excludeDirs, "exclude-dir", "Directory glob to skip while scanning (repeatable; replaces defaults)")
	fs.Var(&opts.ignore, "ignore", "Dependency name never reported as unused (repeatable)")
	fs.BoolVar(&opts.history, "history", false, "Record run snapshots and report trends")
	fs.BoolVar(&opts.watch, "watch", false, "Re-run the analysis when sources or the manifest change")
	fs.BoolVar(&opts.ui, "ui", false, "Browse findings in a terminal UI (implies --watch)")
	fs.BoolVar(&opts.noColor, "no-color", false, "Disable styled text output")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&opts.version, "version", false, "Print version and exit")

	if err := fs.Parse(args); err != nil {
		return cliOptions{}, err
	}
	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	opts.args = fs.Args()
	if len(opts.args) > 1 {
		return cliOptions{}, fmt.Errorf("expected at most one manifest or project path, got %d", len(opts.args))
	}
	if len(opts.args) == 1 {
		if opts.set["manifest"] {
			return cliOptions{}, fmt.Errorf("positional path cannot be combined with --manifest")
		}
		opts.manifest = manifestFromArg(opts.args[0])
		opts.set["manifest"] = true
	}
	if opts.ui {
		opts.watch = true
	}
	return opts, nil
}

// manifestFromArg accepts either a manifest file or the directory holding it.
func manifestFromArg(arg string) string {
	if info, err := os.Stat(arg); err == nil && info.IsDir() {
		return filepath.Join(arg, config.DefaultManifestFile)
	}
	return arg
}

// applyOptions copies explicitly given flags over the loaded config.
func applyOptions(opts cliOptions, cfg *config.Config) {
	if opts.set["manifest"] {
		cfg.Manifest = opts.manifest
	}
	if opts.set["root"] {
		cfg.ProjectRoot = opts.root
	}
	if opts.set["format"] {
		cfg.Output.Format = opts.format
	}
	if opts.set["out"] {
		cfg.Output.Path = opts.out
	}
	if opts.set["mode"] {
		cfg.Scan.Mode = opts.mode
	}
	if opts.set["metrics-file"] {
		cfg.Observability.MetricsFile = opts.metricsFile
	}
	if len(opts.excludeDirs) > 0 {
		cfg.Scan.ExcludeDirs = append([]string(nil), opts.excludeDirs...)
	}
	if len(opts.ignore) > 0 {
		cfg.Deps.Ignored = append(cfg.Deps.Ignored, opts.ignore...)
	}
	if opts.history {
		cfg.History.Enabled = true
	}
	if opts.noColor {
		disabled := false
		cfg.Output.Color = &disabled
	}
}
