package formats

import (
	"crateprune/internal/core/app"
	"crateprune/internal/shared/version"
	"fmt"
	"strings"
	"time"
)

type MarkdownGenerator struct{}

func NewMarkdownGenerator() *MarkdownGenerator {
	return &MarkdownGenerator{}
}

func (m *MarkdownGenerator) Generate(report app.Report) string {
	generatedAt := report.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("title: Dependency Analysis Report\n")
	b.WriteString("package: " + nonEmpty(report.Package, "unknown") + "\n")
	b.WriteString("generated_at: " + generatedAt.UTC().Format(time.RFC3339) + "\n")
	b.WriteString("version: " + version.Version + "\n")
	b.WriteString("---\n\n")

	b.WriteString("# Dependency Analysis Report\n\n")

	b.WriteString("## Summary\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("| --- | --- |\n")
	b.WriteString(fmt.Sprintf("| Declared Dependencies | %d |\n", report.Stats.Dependencies))
	b.WriteString(fmt.Sprintf("| Used | %d |\n", report.Stats.Used))
	b.WriteString(fmt.Sprintf("| Potentially Unused | %d |\n", report.Stats.Unused))
	b.WriteString(fmt.Sprintf("| Ignored | %d |\n", report.Stats.Ignored))
	b.WriteString(fmt.Sprintf("| Files Scanned | %d |\n", report.Stats.FilesScanned))
	b.WriteString(fmt.Sprintf("| Skipped Files | %d |\n\n", len(report.Warnings)))

	b.WriteString("## Potentially Unused Dependencies\n")
	groups := report.Groups()
	if len(groups) == 0 {
		b.WriteString("No potentially unused dependencies found.\n\n")
	}
	for _, g := range groups {
		b.WriteString(fmt.Sprintf("\n### %s\n", g.Section))
		b.WriteString("| Name | Version | Features | Target |\n")
		b.WriteString("| --- | --- | --- | --- |\n")
		for _, e := range g.Entries {
			b.WriteString(fmt.Sprintf("| `%s` | %s | %s | %s |\n",
				e.Name,
				escapeMarkdownCell(versionLabel(e)),
				escapeMarkdownCell(strings.Join(e.Features, ", ")),
				escapeMarkdownCell(e.Target),
			))
		}
	}

	if report.HasFindings() {
		b.WriteString("\n## Before Removing\n")
		for i, step := range report.Verify {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, step))
		}
	}

	if len(report.Warnings) > 0 {
		b.WriteString("\n## Warnings\n")
		for _, w := range report.Warnings {
			b.WriteString("- " + escapeMarkdownCell(w) + "\n")
		}
	}

	if t := report.Trend; t != nil && t.Changed() {
		b.WriteString("\n## Since Previous Run\n")
		for _, name := range t.NewlyUnused {
			b.WriteString("- newly unused: `" + name + "`\n")
		}
		for _, name := range t.NoLongerUnused {
			b.WriteString("- no longer unused: `" + name + "`\n")
		}
	}

	b.WriteString("\n> " + report.Caveat + "\n")
	return b.String()
}

func escapeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", `\|`)
	return strings.ReplaceAll(value, "\n", " ")
}
