package usage

import (
	"crateprune/internal/engine/corpus"
	"crateprune/internal/engine/manifest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func deps(names ...string) []manifest.Dependency {
	out := make([]manifest.Dependency, 0, len(names))
	for i, name := range names {
		out = append(out, manifest.Dependency{
			Name:       name,
			Section:    manifest.SectionNormal,
			Normalized: manifest.Normalize(name),
			Index:      i,
		})
	}
	return out
}

func unusedNames(findings []Finding) []string {
	out := []string{}
	for _, dep := range Unused(findings) {
		out = append(out, dep.Name)
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name    string
		tokens  []string
		deps    []string
		ignored []string
		want    []string
	}{
		{
			name:   "no dependencies",
			tokens: []string{"serde", "regex"},
			want:   []string{},
		},
		{
			name:   "literal whole-token match is used",
			tokens: []string{"use", "serde", "Deserialize", "regex", "Regex"},
			deps:   []string{"serde", "regex", "unused_crate"},
			want:   []string{"unused_crate"},
		},
		{
			name:   "substring of a longer identifier is not a match",
			tokens: []string{"logger", "catalog", "log_level"},
			deps:   []string{"log"},
			want:   []string{"log"},
		},
		{
			name:   "hyphenated name matches underscored token",
			tokens: []string{"my_crate"},
			deps:   []string{"my-crate"},
			want:   []string{},
		},
		{
			name:   "hyphenated token form never matches",
			tokens: []string{"my", "crate"},
			deps:   []string{"my-crate"},
			want:   []string{"my-crate"},
		},
		{
			name:   "matching is case sensitive",
			tokens: []string{"Serde"},
			deps:   []string{"serde"},
			want:   []string{"serde"},
		},
		{
			name:    "ignored dependencies are never reported",
			tokens:  []string{},
			deps:    []string{"openssl-sys", "log"},
			ignored: []string{"openssl_sys"},
			want:    []string{"log"},
		},
		{
			name:   "declaration order is kept",
			tokens: []string{"b"},
			deps:   []string{"c", "b", "a"},
			want:   []string{"c", "a"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings := Match(corpus.FromTokens(tt.tokens...), deps(tt.deps...), tt.ignored)
			assert.Len(t, findings, len(tt.deps))
			assert.Equal(t, tt.want, unusedNames(findings))
		})
	}
}

func TestMatch_ReportedNamesAreAbsentFromCorpus(t *testing.T) {
	tokens := corpus.FromTokens("tokio", "serde_json", "anyhow_ext")
	findings := Match(tokens, deps("tokio", "serde-json", "anyhow", "rand"), nil)
	for _, dep := range Unused(findings) {
		assert.False(t, tokens.Contains(dep.Normalized), dep.Name)
	}
	assert.Equal(t, []string{"anyhow", "rand"}, unusedNames(findings))
}

func TestMatch_MissingNormalizedFallsBackToName(t *testing.T) {
	findings := Match(corpus.FromTokens("my_crate"), []manifest.Dependency{{Name: "my-crate"}}, nil)
	assert.Equal(t, StatusUsed, findings[0].Status)
}

func TestMatch_NilTokenSet(t *testing.T) {
	findings := Match(nil, deps("serde"), nil)
	assert.Equal(t, StatusUnused, findings[0].Status)
}

func TestCount(t *testing.T) {
	findings := Match(corpus.FromTokens("a"), deps("a", "b", "c"), []string{"c"})
	assert.Equal(t, 1, Count(findings, StatusUsed))
	assert.Equal(t, 1, Count(findings, StatusUnused))
	assert.Equal(t, 1, Count(findings, StatusIgnored))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "tokio_util", Normalize("tokio-util"))
}
