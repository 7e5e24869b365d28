package manifest

import "strings"

// Section is the manifest table a dependency was declared in.
type Section string

const (
	SectionNormal Section = "normal"
	SectionDev    Section = "dev"
	SectionBuild  Section = "build"
)

// Sections lists every section in presentation order.
var Sections = []Section{SectionNormal, SectionDev, SectionBuild}

// ParseSection accepts both section tags and Cargo table names.
func ParseSection(raw string) (Section, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "normal", "dependencies":
		return SectionNormal, true
	case "dev", "dev-dependencies", "dev_dependencies":
		return SectionDev, true
	case "build", "build-dependencies", "build_dependencies":
		return SectionBuild, true
	}
	return "", false
}

// SourceKind describes where Cargo resolves a dependency from.
type SourceKind string

const (
	SourceRegistry  SourceKind = "registry"
	SourcePath      SourceKind = "path"
	SourceGit       SourceKind = "git"
	SourceWorkspace SourceKind = "workspace"
)

// Dependency is a single declared manifest entry. Name is the local key used
// in source code; Package is the registry name when the entry is renamed.
type Dependency struct {
	Name       string
	Package    string
	Section    Section
	Normalized string
	Version    string
	Features   []string
	Optional   bool
	Source     SourceKind
	Target     string
	Index      int
}

// Manifest is the parsed subset of Cargo.toml the analysis needs.
type Manifest struct {
	Path         string
	PackageName  string
	BuildScript  string
	Dependencies []Dependency
	Ignored      []string
}

// Normalize maps a crate name to the identifier form used in Rust source.
func Normalize(name string) string {
	return strings.ReplaceAll(strings.TrimSpace(name), "-", "_")
}

// FileReader reads manifests from disk through Read.
type FileReader struct{}

func (FileReader) Read(path string) (*Manifest, error) {
	return Read(path)
}
