package cli

import (
	coreapp "crateprune/internal/core/app"
	"crateprune/internal/data/history"
	"crateprune/internal/engine/manifest"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func sampleUIReport() *coreapp.Report {
	return &coreapp.Report{
		Package: "demo",
		Unused: []coreapp.Entry{
			{Name: "unused_crate", Section: manifest.SectionNormal, Version: "0.1", Source: "registry"},
			{Name: "local-util", Section: manifest.SectionDev, Source: "path", Features: []string{"std"}, Target: "cfg(unix)"},
		},
		Stats: coreapp.Stats{Dependencies: 4, Unused: 2, FilesScanned: 3},
	}
}

func TestInitialModel_ListsFindings(t *testing.T) {
	m := initialModel(sampleUIReport())
	items := m.findings.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	first := items[0].(item)
	if first.title != "unused_crate" || first.desc != "[normal] 0.1" {
		t.Fatalf("unexpected first item %+v", first)
	}
	second := items[1].(item)
	if second.desc != "[dev] path features=std target=cfg(unix)" {
		t.Fatalf("unexpected second item %+v", second)
	}
}

func TestModelUpdate_FailedRunKeepsFindings(t *testing.T) {
	m := initialModel(sampleUIReport())

	next, _ := m.Update(updateMsg{err: errors.New("manifest not found")})
	updated := next.(model)
	if len(updated.findings.Items()) != 2 {
		t.Fatal("failed run should keep previous findings")
	}
	if !strings.Contains(updated.View(), "Last run failed: manifest not found") {
		t.Fatalf("error not shown:\n%s", updated.View())
	}

	clean := &coreapp.Report{Package: "demo", Unused: []coreapp.Entry{}}
	next, _ = updated.Update(updateMsg{report: clean})
	updated = next.(model)
	if updated.err != nil || len(updated.findings.Items()) != 0 {
		t.Fatalf("successful run should replace findings and clear the error")
	}
	if !strings.Contains(updated.View(), "No potentially unused dependencies found.") {
		t.Fatalf("unexpected view:\n%s", updated.View())
	}
}

func TestModelUpdate_Keys(t *testing.T) {
	r := sampleUIReport()
	r.Trend = &history.Trend{NewlyUnused: []string{"local-util"}}
	m := initialModel(r)
	if !strings.Contains(m.View(), "newly unused: local-util") {
		t.Fatalf("trend missing:\n%s", m.View())
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("t")})
	if strings.Contains(next.(model).View(), "newly unused") {
		t.Fatal("t should hide the trend")
	}

	_, cmd := next.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q should return a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}
}

func TestInitialModel_Waiting(t *testing.T) {
	if !strings.Contains(initialModel(nil).View(), "Waiting for the first analysis") {
		t.Fatal("expected waiting message")
	}
}
