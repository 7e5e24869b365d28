package usage

import "crateprune/internal/engine/manifest"

// Status classifies a declared dependency against the token corpus.
type Status string

const (
	StatusUsed    Status = "used"
	StatusUnused  Status = "unused"
	StatusIgnored Status = "ignored"
)

// TokenSet is the membership view of a corpus the matcher needs.
type TokenSet interface {
	Contains(token string) bool
}

// Finding is the classification of one dependency.
type Finding struct {
	Dependency manifest.Dependency
	Status     Status
}

// Normalize maps registry names (hyphenated) to Rust identifiers (underscored).
func Normalize(name string) string {
	return manifest.Normalize(name)
}

// Match classifies every dependency in declaration order. A dependency is
// used only when its normalized name is a whole token of the corpus; names in
// ignored (compared after normalization) are reported as ignored regardless.
func Match(tokens TokenSet, deps []manifest.Dependency, ignored []string) []Finding {
	skip := make(map[string]bool, len(ignored))
	for _, name := range ignored {
		if n := Normalize(name); n != "" {
			skip[n] = true
		}
	}

	findings := make([]Finding, 0, len(deps))
	for _, dep := range deps {
		ident := dep.Normalized
		if ident == "" {
			ident = Normalize(dep.Name)
		}

		status := StatusUnused
		switch {
		case skip[ident]:
			status = StatusIgnored
		case tokens != nil && tokens.Contains(ident):
			status = StatusUsed
		}
		findings = append(findings, Finding{Dependency: dep, Status: status})
	}
	return findings
}

// Unused returns the potentially unused dependencies of findings, in order.
func Unused(findings []Finding) []manifest.Dependency {
	out := make([]manifest.Dependency, 0)
	for _, f := range findings {
		if f.Status == StatusUnused {
			out = append(out, f.Dependency)
		}
	}
	return out
}

// Count returns how many findings have status.
func Count(findings []Finding, status Status) int {
	n := 0
	for _, f := range findings {
		if f.Status == status {
			n++
		}
	}
	return n
}
