package observability

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteTextfile(t *testing.T) {
	FilesScannedTotal.Add(3)
	UnusedDependencies.WithLabelValues("dev").Set(2)

	path := filepath.Join(t.TempDir(), "crateprune.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{"crateprune_files_scanned_total", `crateprune_unused_dependencies{section="dev"} 2`} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q", want)
		}
	}
}

func TestSetupTracingDisabled(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}

	_, span := Tracer.Start(context.Background(), "noop")
	span.End()
}
