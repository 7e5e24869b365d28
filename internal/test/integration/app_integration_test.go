package integration

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"crateprune/internal/core/app"
	"crateprune/internal/core/config"
	"crateprune/internal/data/history"
	"crateprune/internal/ui/report/formats"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFiles(t *testing.T, tmpDir string) {
	t.Helper()
	cargo := `[package]
name = "test-project"
version = "0.1.0"

[package.metadata.crateprune]
ignored = ["openssl-sys"]

[dependencies]
serde_json = "1"
tokio-util = { version = "0.7", features = ["codec"] }
fancy = { package = "fancy-regex", version = "0.11" }
openssl-sys = "0.9"
mentioned-in-comment = "1"
vendored-only = "1"

[dev-dependencies]
pretty_assertions = "1"

[build-dependencies]
cc = "1"

[target.'cfg(windows)'.dependencies]
winapi = "0.3"
`
	files := map[string]string{
		"Cargo.toml": cargo,
		"src/main.rs": `use tokio_util::codec::LinesCodec;
// mentioned_in_comment is only named here
fn main() {
    let v = serde_json::json!({"a": 1});
    let _ = fancy::Regex::new("x");
    println!("{v}");
}`,
		"tests/it.rs":            "use pretty_assertions::assert_eq;\n",
		"build.rs":               "fn main() { cc::Build::new(); }\n",
		"target/debug/gen.rs":    "use vendored_only::X;\n",
		"vendor/vendored/lib.rs": "use vendored_only::X;\n",
	}
	for rel, content := range files {
		path := filepath.Join(tmpDir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func newApp(t *testing.T, root string, mutate func(*config.Config), opts ...app.Option) *app.App {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.Validate(cfg))
	paths, err := config.ResolvePaths(cfg, root)
	require.NoError(t, err)
	return app.New(cfg, paths, opts...)
}

func TestFullPipelineIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	report, err := newApp(t, tmpDir, nil).Analyze(context.Background())
	require.NoError(t, err)

	// cc is only referenced from build.rs, which is never scanned.
	assert.Equal(t, []string{"vendored-only", "cc", "winapi"}, report.UnusedNames())
	assert.Equal(t, []string{"openssl-sys"}, report.Ignored)
	assert.Equal(t, "test-project", report.Package)
	assert.Equal(t, 9, report.Stats.Dependencies)
	assert.Equal(t, 2, report.Stats.FilesScanned)

	groups := report.Groups()
	require.Len(t, groups, 2)
	assert.Equal(t, "normal", string(groups[0].Section))
	assert.Equal(t, "build", string(groups[1].Section))
	assert.Equal(t, "cfg(windows)", groups[0].Entries[1].Target)
}

func TestSyntaxModeIgnoresComments(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	report, err := newApp(t, tmpDir, func(cfg *config.Config) {
		cfg.Scan.Mode = "syntax"
	}).Analyze(context.Background())
	require.NoError(t, err)

	assert.Contains(t, report.UnusedNames(), "mentioned-in-comment")
	assert.NotContains(t, report.UnusedNames(), "fancy")
	assert.NotContains(t, report.UnusedNames(), "serde_json")
}

func TestHistoryAcrossRuns(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	store, err := history.Open(filepath.Join(tmpDir, config.DefaultHistoryFile))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	a := newApp(t, tmpDir, nil, app.WithHistory(store))
	first, err := a.Analyze(context.Background())
	require.NoError(t, err)
	assert.Nil(t, first.Trend, "first run has nothing to compare against")
	assert.NotEmpty(t, first.RunID)

	require.NoError(t, os.Remove(filepath.Join(tmpDir, "tests", "it.rs")))
	second, err := a.Analyze(context.Background())
	require.NoError(t, err)
	require.NotNil(t, second.Trend)
	assert.Equal(t, first.RunID, second.Trend.PreviousRunID)
	assert.Equal(t, []string{"pretty_assertions"}, second.Trend.NewlyUnused)
	assert.Equal(t, 1, second.Trend.DeltaUnused)
	assert.Equal(t, 2, second.Trend.WindowRuns)
	assert.Equal(t, 4, second.Trend.WindowPeakUnused)

	snapshots, err := store.LoadSnapshots("default", first.GeneratedAt.Add(-1))
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}

func TestAllFormatsRender(t *testing.T) {
	tmpDir := t.TempDir()
	createTestFiles(t, tmpDir)

	report, err := newApp(t, tmpDir, nil).Analyze(context.Background())
	require.NoError(t, err)

	for _, format := range config.OutputFormats {
		var buf bytes.Buffer
		require.NoError(t, formats.Write(&buf, format, *report, formats.Options{}), format)
		assert.Contains(t, buf.String(), "winapi", format)
	}
}
