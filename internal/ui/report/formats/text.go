package formats

import (
	"crateprune/internal/core/app"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

type textStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	name    lipgloss.Style
	tag     lipgloss.Style
	label   lipgloss.Style
	warning lipgloss.Style
	success lipgloss.Style
	muted   lipgloss.Style
}

func newTextStyles(color bool) textStyles {
	if !color {
		plain := lipgloss.NewStyle()
		return textStyles{plain, plain, plain, plain, plain, plain, plain, plain}
	}
	return textStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6")),
		section: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A78BFA")),
		name:    lipgloss.NewStyle().Bold(true),
		tag:     lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		success: lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true),
		muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
}

// GenerateText renders the human report: unused dependencies grouped by
// section in declaration order, then the verification checklist, warnings
// and history trend.
func GenerateText(report app.Report, opts Options) string {
	st := newTextStyles(opts.Color)
	var b strings.Builder

	title := "Dependency Analysis Report"
	if report.Package != "" {
		title += ": " + report.Package
	}
	b.WriteString(st.title.Render(title) + "\n")
	b.WriteString(strings.Repeat("=", len(title)) + "\n")

	groups := report.Groups()
	if len(groups) == 0 {
		b.WriteString("\n" + st.success.Render("No potentially unused dependencies found.") + "\n")
	}
	for _, g := range groups {
		b.WriteString("\n" + st.section.Render(fmt.Sprintf("[%s]", g.Section)) + "\n")
		for _, e := range g.Entries {
			b.WriteString(st.name.Render(e.Name) + " " + st.tag.Render("(POTENTIALLY UNUSED)") + "\n")
			if e.Package != "" && e.Package != e.Name {
				b.WriteString("  " + st.label.Render("Package:") + " " + e.Package + "\n")
			}
			b.WriteString("  " + st.label.Render("Version:") + " " + versionLabel(e) + "\n")
			b.WriteString("  " + st.label.Render("Features:") + " [" + strings.Join(e.Features, ", ") + "]\n")
			if e.Target != "" {
				b.WriteString("  " + st.label.Render("Target:") + " " + e.Target + "\n")
			}
			if e.Optional {
				b.WriteString("  " + st.label.Render("Optional:") + " true\n")
			}
		}
	}

	if report.HasFindings() {
		b.WriteString("\n" + st.warning.Render("These dependencies might be removable. Verify:") + "\n")
		for i, step := range report.Verify {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}

	if len(report.Ignored) > 0 {
		b.WriteString("\n" + st.muted.Render("Ignored: "+strings.Join(report.Ignored, ", ")) + "\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n" + st.warning.Render(fmt.Sprintf("Warnings (%d files skipped, results may be incomplete):", len(report.Warnings))) + "\n")
		for _, w := range report.Warnings {
			b.WriteString("  - " + w + "\n")
		}
	}

	if t := report.Trend; t != nil {
		b.WriteString("\n" + st.section.Render("Since previous run") + "\n")
		if !t.Changed() {
			b.WriteString("  no change\n")
		}
		if len(t.NewlyUnused) > 0 {
			b.WriteString("  newly unused: " + strings.Join(t.NewlyUnused, ", ") + "\n")
		}
		if len(t.NoLongerUnused) > 0 {
			b.WriteString("  no longer unused: " + strings.Join(t.NoLongerUnused, ", ") + "\n")
		}
		if t.WindowRuns > 0 {
			b.WriteString(fmt.Sprintf("  %d runs in the history window, peak %d unused\n", t.WindowRuns, t.WindowPeakUnused))
		}
	}

	b.WriteString("\n" + st.muted.Render(fmt.Sprintf(
		"%d dependencies, %d potentially unused, %d files scanned in %s",
		report.Stats.Dependencies, report.Stats.Unused, report.Stats.FilesScanned, report.Stats.Duration.Round(time.Millisecond),
	)) + "\n")
	b.WriteString(st.muted.Render(report.Caveat) + "\n")
	return b.String()
}
