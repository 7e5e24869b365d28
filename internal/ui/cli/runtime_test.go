package cli

import (
	"bytes"
	"context"
	coreapp "crateprune/internal/core/app"
	"crateprune/internal/core/config"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const demoManifest = `
[package]
name = "demo"
version = "0.1.0"

[dependencies]
serde = "1"
regex = "1"
unused_crate = "0.1"
`

const demoSource = `
use serde::Serialize;
fn main() { let _ = regex::Regex::new("x"); }
`

func writeProject(t *testing.T, manifest, source string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "Cargo.toml"), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func runCLI(t *testing.T, cwd string, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, cwd, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

type jsonReport struct {
	Unused []struct {
		Name string `json:"name"`
	} `json:"unused"`
	Ignored []string `json:"ignored"`
	Trend   *struct {
		NewlyUnused    []string `json:"newly_unused"`
		NoLongerUnused []string `json:"no_longer_unused"`
	} `json:"trend"`
}

func decodeReport(t *testing.T, data string) jsonReport {
	t.Helper()
	var r jsonReport
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		t.Fatalf("invalid JSON report: %v\n%s", err, data)
	}
	return r
}

func TestRun_FindingsExitCode(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)

	code, out, errOut := runCLI(t, root, "--format", "json")
	if code != exitFindings {
		t.Fatalf("expected exit %d, got %d (stderr: %s)", exitFindings, code, errOut)
	}
	r := decodeReport(t, out)
	if len(r.Unused) != 1 || r.Unused[0].Name != "unused_crate" {
		t.Fatalf("unexpected unused: %+v", r.Unused)
	}
}

func TestRun_CleanExitCode(t *testing.T) {
	root := writeProject(t, "[package]\nname = \"demo\"\n\n[dependencies]\nserde = \"1\"\n", demoSource)

	code, out, _ := runCLI(t, root, "--no-color")
	if code != exitClean {
		t.Fatalf("expected exit %d, got %d", exitClean, code)
	}
	if !strings.Contains(out, "No potentially unused dependencies found.") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRun_PositionalProjectDirectory(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	cwd := t.TempDir()

	code, out, _ := runCLI(t, cwd, "--format", "tsv", root)
	if code != exitFindings {
		t.Fatalf("expected exit %d, got %d", exitFindings, code)
	}
	if !strings.Contains(out, "unused_crate\tnormal") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestRun_MissingManifestIsFatal(t *testing.T) {
	code, out, errOut := runCLI(t, t.TempDir())
	if code != exitFatal {
		t.Fatalf("expected exit %d, got %d", exitFatal, code)
	}
	if out != "" {
		t.Fatalf("no report expected on fatal error, got:\n%s", out)
	}
	if !strings.Contains(errOut, "MANIFEST_NOT_FOUND") {
		t.Fatalf("expected manifest error in log, got:\n%s", errOut)
	}
}

func TestRun_UsageErrors(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	cases := map[string][]string{
		"unknown flag":       {"--bogus"},
		"unsupported format": {"--format", "xml"},
		"unknown mode":       {"--mode", "semantic"},
		"bad exclude glob":   {"--exclude-dir", "[unclosed"},
		"two positionals":    {"a", "b"},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			code, _, _ := runCLI(t, root, args...)
			if code != exitUsage {
				t.Fatalf("expected exit %d, got %d", exitUsage, code)
			}
		})
	}
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, t.TempDir(), "--version")
	if code != exitClean || !strings.HasPrefix(out, "crateprune v") {
		t.Fatalf("unexpected version output %d %q", code, out)
	}
}

func TestRun_WritesOutFile(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	outPath := filepath.Join(root, "reports", "deps.md")

	code, out, _ := runCLI(t, root, "--format", "markdown", "--out", outPath)
	if code != exitFindings {
		t.Fatalf("expected exit %d, got %d", exitFindings, code)
	}
	if out != "" {
		t.Fatalf("stdout should be empty when --out is set, got:\n%s", out)
	}
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	if !strings.Contains(string(data), "`unused_crate`") {
		t.Fatalf("unexpected markdown:\n%s", data)
	}
}

func TestRun_ConfigFileIgnoresDependency(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	cfg := "version = 1\n\n[deps]\nignored = [\"unused_crate\"]\n\n[output]\nformat = \"json\"\n"
	if err := os.WriteFile(filepath.Join(root, config.DefaultConfigFile), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	code, out, _ := runCLI(t, root)
	if code != exitClean {
		t.Fatalf("expected exit %d, got %d", exitClean, code)
	}
	r := decodeReport(t, out)
	if len(r.Unused) != 0 || len(r.Ignored) != 1 || r.Ignored[0] != "unused_crate" {
		t.Fatalf("unexpected report: %+v", r)
	}
}

func TestRun_ExplicitMissingConfigIsFatal(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	code, _, _ := runCLI(t, root, "--config", "missing.toml")
	if code != exitFatal {
		t.Fatalf("expected exit %d, got %d", exitFatal, code)
	}
}

func TestRun_HistoryTrend(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)

	if code, _, _ := runCLI(t, root, "--history", "--format", "json"); code != exitFindings {
		t.Fatalf("first run: unexpected exit %d", code)
	}

	// serde stops being referenced between runs.
	if err := os.WriteFile(filepath.Join(root, "src", "main.rs"), []byte(`fn main() { let _ = regex::Regex::new("x"); }`), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, _ := runCLI(t, root, "--history", "--format", "json")
	if code != exitFindings {
		t.Fatalf("second run: unexpected exit %d", code)
	}
	r := decodeReport(t, out)
	if r.Trend == nil {
		t.Fatal("expected trend on second run")
	}
	if len(r.Trend.NewlyUnused) != 1 || r.Trend.NewlyUnused[0] != "serde" {
		t.Fatalf("unexpected trend: %+v", r.Trend)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(config.DefaultHistoryFile))); err != nil {
		t.Fatalf("history database missing: %v", err)
	}
}

func TestRun_MetricsFile(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	metrics := filepath.Join(root, "metrics.prom")

	runCLI(t, root, "--format", "json", "--metrics-file", metrics)
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatalf("metrics file missing: %v", err)
	}
	if !strings.Contains(string(data), "crateprune_") {
		t.Fatalf("unexpected metrics:\n%s", data)
	}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"--exclude-dir", "target,vendor", "--exclude-dir", "gen", "--ui"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Join(opts.excludeDirs, " "); got != "target vendor gen" {
		t.Fatalf("unexpected exclude dirs %q", got)
	}
	if !opts.watch {
		t.Fatal("--ui should imply --watch")
	}
	if opts.set["format"] {
		t.Fatal("format was not given explicitly")
	}
}

func TestParseOptions_PositionalConflictsWithManifest(t *testing.T) {
	_, err := parseOptions([]string{"--manifest", "a/Cargo.toml", "b"}, io.Discard)
	if err == nil || !strings.Contains(err.Error(), "cannot be combined") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestApplyOptions_OnlyExplicitFlagsOverride(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Format = "yaml"
	cfg.Scan.ExcludeDirs = []string{"target"}

	opts, err := parseOptions([]string{"--ignore", "log", "--no-color"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	applyOptions(opts, cfg)

	if cfg.Output.Format != "yaml" {
		t.Fatalf("format overridden by flag default: %q", cfg.Output.Format)
	}
	if len(cfg.Scan.ExcludeDirs) != 1 {
		t.Fatalf("exclude dirs changed: %v", cfg.Scan.ExcludeDirs)
	}
	if len(cfg.Deps.Ignored) != 1 || cfg.Deps.Ignored[0] != "log" {
		t.Fatalf("unexpected ignored: %v", cfg.Deps.Ignored)
	}
	if cfg.Output.ColorEnabled() {
		t.Fatal("--no-color should disable color")
	}
}

func TestSessionReconfigure(t *testing.T) {
	root := writeProject(t, demoManifest, demoSource)
	opts, err := parseOptions([]string{"--format", "json"}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	cfg, paths, _, err := loadConfig(opts, filepath.Join(root, config.DefaultConfigFile), root)
	if err != nil {
		t.Fatal(err)
	}
	s := &session{opts: opts, cwd: root, app: coreapp.New(cfg, paths)}

	bad := config.Default()
	bad.Scan.Mode = "semantic"
	s.reconfigure(bad)
	if s.app.Config != cfg {
		t.Fatal("invalid reload must keep the previous configuration")
	}

	next := config.Default()
	next.Deps.Ignored = []string{"unused_crate"}
	s.reconfigure(next)
	if s.app.Config != next {
		t.Fatal("valid reload should replace the configuration")
	}
	if s.app.Config.Output.Format != "json" {
		t.Fatalf("flag should still win after reload, got %q", s.app.Config.Output.Format)
	}
}
