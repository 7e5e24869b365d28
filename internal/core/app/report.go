package app

import (
	"crateprune/internal/data/history"
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"crateprune/internal/engine/usage"
	"slices"
	"time"
)

// VerifySteps are the manual checks that can overturn a lexical finding.
var VerifySteps = []string{
	"Check for macro usage",
	"Look for #[derive(...)] usage",
	"Review build.rs dependencies",
	"Check conditional compilation flags",
}

const Caveat = "Matches are lexical, not semantic: a dependency is reported when its name never appears as a whole identifier in the scanned sources."

// Entry is one potentially unused dependency.
type Entry struct {
	Name     string           `json:"name" yaml:"name"`
	Package  string           `json:"package,omitempty" yaml:"package,omitempty"`
	Section  manifest.Section `json:"section" yaml:"section"`
	Version  string           `json:"version,omitempty" yaml:"version,omitempty"`
	Features []string         `json:"features" yaml:"features"`
	Optional bool             `json:"optional,omitempty" yaml:"optional,omitempty"`
	Source   string           `json:"source" yaml:"source"`
	Target   string           `json:"target,omitempty" yaml:"target,omitempty"`
}

// Group is the slice of entries declared in one manifest section.
type Group struct {
	Section manifest.Section `json:"section" yaml:"section"`
	Entries []Entry          `json:"entries" yaml:"entries"`
}

type Stats struct {
	Dependencies int           `json:"dependencies" yaml:"dependencies"`
	Used         int           `json:"used" yaml:"used"`
	Unused       int           `json:"unused" yaml:"unused"`
	Ignored      int           `json:"ignored" yaml:"ignored"`
	FilesScanned int           `json:"files_scanned" yaml:"files_scanned"`
	Tokens       int           `json:"tokens" yaml:"tokens"`
	Duration     time.Duration `json:"duration_ns" yaml:"duration"`
}

type Report struct {
	RunID       string         `json:"run_id,omitempty" yaml:"run_id,omitempty"`
	Manifest    string         `json:"manifest" yaml:"manifest"`
	Package     string         `json:"package,omitempty" yaml:"package,omitempty"`
	ProjectRoot string         `json:"project_root" yaml:"project_root"`
	GeneratedAt time.Time      `json:"generated_at" yaml:"generated_at"`
	Unused      []Entry        `json:"unused" yaml:"unused"`
	Ignored     []string       `json:"ignored" yaml:"ignored"`
	Warnings    []string       `json:"warnings" yaml:"warnings"`
	Stats       Stats          `json:"stats" yaml:"stats"`
	Caveat      string         `json:"caveat" yaml:"caveat"`
	Verify      []string       `json:"verify" yaml:"verify"`
	Trend       *history.Trend `json:"trend,omitempty" yaml:"trend,omitempty"`
}

// BuildReport orders the unused findings by manifest declaration and
// attaches the run's warnings. stats supplies the scan figures; dependency
// counts are derived from findings.
func BuildReport(m *manifest.Manifest, findings []usage.Finding, warnings []corpus.Warning, stats Stats) Report {
	report := Report{
		Unused:      []Entry{},
		Ignored:     []string{},
		Warnings:    make([]string, 0, len(warnings)),
		GeneratedAt: time.Now().UTC(),
		Caveat:      Caveat,
		Verify:      append([]string(nil), VerifySteps...),
	}
	if m != nil {
		report.Manifest = m.Path
		report.Package = m.PackageName
	}

	ordered := slices.Clone(findings)
	slices.SortStableFunc(ordered, func(a, b usage.Finding) int {
		return a.Dependency.Index - b.Dependency.Index
	})

	stats.Dependencies = len(ordered)
	stats.Used = usage.Count(ordered, usage.StatusUsed)
	stats.Unused = usage.Count(ordered, usage.StatusUnused)
	stats.Ignored = usage.Count(ordered, usage.StatusIgnored)
	report.Stats = stats

	for _, f := range ordered {
		switch f.Status {
		case usage.StatusUnused:
			report.Unused = append(report.Unused, entryFor(f.Dependency))
		case usage.StatusIgnored:
			report.Ignored = append(report.Ignored, f.Dependency.Name)
		}
	}
	for _, w := range warnings {
		report.Warnings = append(report.Warnings, w.String())
	}
	return report
}

func entryFor(dep manifest.Dependency) Entry {
	features := dep.Features
	if features == nil {
		features = []string{}
	}
	return Entry{
		Name:     dep.Name,
		Package:  dep.Package,
		Section:  dep.Section,
		Version:  dep.Version,
		Features: features,
		Optional: dep.Optional,
		Source:   string(dep.Source),
		Target:   dep.Target,
	}
}

// Groups returns the unused entries grouped by section in presentation
// order. Empty sections are omitted; order inside a group is preserved.
func (r Report) Groups() []Group {
	groups := make([]Group, 0, len(manifest.Sections))
	for _, section := range manifest.Sections {
		var entries []Entry
		for _, e := range r.Unused {
			if e.Section == section {
				entries = append(entries, e)
			}
		}
		if len(entries) > 0 {
			groups = append(groups, Group{Section: section, Entries: entries})
		}
	}
	return groups
}

// UnusedNames lists the reported dependency names in report order.
func (r Report) UnusedNames() []string {
	names := make([]string, 0, len(r.Unused))
	for _, e := range r.Unused {
		names = append(names, e.Name)
	}
	return names
}

// HasFindings reports whether any dependency is potentially unused.
func (r Report) HasFindings() bool {
	return len(r.Unused) > 0
}
