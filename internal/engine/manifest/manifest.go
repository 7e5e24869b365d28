package manifest

import (
	"crateprune/internal/core/errors"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

const metadataKey = "crateprune"

// sectionTables maps Cargo table names to sections. Cargo still accepts the
// underscore spellings for backwards compatibility.
var sectionTables = map[string]Section{
	"dependencies":       SectionNormal,
	"dev-dependencies":   SectionDev,
	"dev_dependencies":   SectionDev,
	"build-dependencies": SectionBuild,
	"build_dependencies": SectionBuild,
}

type declKey struct {
	target string
	table  string
	name   string
}

// Read loads and parses the manifest at path.
func Read(path string) (*Manifest, error) {
	info, err := os.Stat(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeManifestNotFound, "manifest not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeManifestNotFound, "manifest is not accessible"), errors.CtxPath, path)
	}
	if info.IsDir() {
		return nil, errors.AddContext(errors.New(errors.CodeManifestNotFound, "manifest path is a directory"), errors.CtxPath, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeManifestNotFound, "manifest is not readable"), errors.CtxPath, path)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	m.Path = path
	return m, nil
}

// Parse decodes manifest content. Absent dependency tables are treated as empty.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeManifestParse, "invalid manifest syntax")
	}

	m := &Manifest{}
	if err := readPackage(raw, m); err != nil {
		return nil, err
	}

	order := declarationOrder(md.Keys())
	entries := make(map[declKey]any)

	for table := range sectionTables {
		deps, err := tableAt(raw, table)
		if err != nil {
			return nil, err
		}
		for name, value := range deps {
			entries[declKey{table: table, name: name}] = value
		}
	}

	targets, err := tableAt(raw, "target")
	if err != nil {
		return nil, err
	}
	for cfg, value := range targets {
		targetTable, ok := value.(map[string]any)
		if !ok {
			return nil, errors.AddContext(errors.New(errors.CodeManifestParse, "target entry must be a table"), "target", cfg)
		}
		for table := range sectionTables {
			deps, err := tableAt(targetTable, table)
			if err != nil {
				return nil, errors.AddContext(err, "target", cfg)
			}
			for name, value := range deps {
				entries[declKey{target: cfg, table: table, name: name}] = value
			}
		}
	}

	keys := make([]declKey, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		oi, iok := order[keys[i]]
		oj, jok := order[keys[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		}
		if keys[i].target != keys[j].target {
			return keys[i].target < keys[j].target
		}
		if keys[i].table != keys[j].table {
			return keys[i].table < keys[j].table
		}
		return keys[i].name < keys[j].name
	})

	m.Dependencies = make([]Dependency, 0, len(keys))
	for _, key := range keys {
		dep, err := parseDependency(key, entries[key])
		if err != nil {
			return nil, err
		}
		dep.Index = len(m.Dependencies)
		m.Dependencies = append(m.Dependencies, dep)
	}
	return m, nil
}

// declarationOrder ranks dependency keys by their first appearance in the
// document. Dotted keys and sub-tables contribute through their prefix.
func declarationOrder(keys []toml.Key) map[declKey]int {
	order := make(map[declKey]int)
	rank := 0
	for _, key := range keys {
		var dk declKey
		switch {
		case len(key) >= 2 && isSectionTable(key[0]):
			dk = declKey{table: key[0], name: key[1]}
		case len(key) >= 4 && key[0] == "target" && isSectionTable(key[2]):
			dk = declKey{target: key[1], table: key[2], name: key[3]}
		default:
			continue
		}
		if _, seen := order[dk]; seen {
			continue
		}
		order[dk] = rank
		rank++
	}
	return order
}

func isSectionTable(name string) bool {
	_, ok := sectionTables[name]
	return ok
}

func tableAt(raw map[string]any, key string) (map[string]any, error) {
	value, ok := raw[key]
	if !ok {
		return nil, nil
	}
	table, ok := value.(map[string]any)
	if !ok {
		return nil, errors.New(errors.CodeManifestParse, fmt.Sprintf("%s must be a table", key))
	}
	return table, nil
}

func readPackage(raw map[string]any, m *Manifest) error {
	pkg, err := tableAt(raw, "package")
	if err != nil || pkg == nil {
		return err
	}
	if name, ok := pkg["name"].(string); ok {
		m.PackageName = name
	}
	switch build := pkg["build"].(type) {
	case string:
		m.BuildScript = build
	case bool:
		if build {
			m.BuildScript = "build.rs"
		}
	}

	metadata, err := tableAt(pkg, "metadata")
	if err != nil || metadata == nil {
		return err
	}
	own, err := tableAt(metadata, metadataKey)
	if err != nil || own == nil {
		return err
	}
	ignored, ok := own["ignored"]
	if !ok {
		return nil
	}
	names, err := stringList(ignored)
	if err != nil {
		return errors.AddContext(err, "key", "package.metadata.crateprune.ignored")
	}
	m.Ignored = names
	return nil
}

func parseDependency(key declKey, value any) (Dependency, error) {
	dep := Dependency{
		Name:       key.name,
		Section:    sectionTables[key.table],
		Normalized: Normalize(key.name),
		Source:     SourceRegistry,
		Target:     key.target,
	}

	switch v := value.(type) {
	case string:
		dep.Version = v
	case map[string]any:
		if version, ok := v["version"].(string); ok {
			dep.Version = version
		}
		if pkg, ok := v["package"].(string); ok {
			dep.Package = pkg
		}
		if optional, ok := v["optional"].(bool); ok {
			dep.Optional = optional
		}
		switch {
		case v["workspace"] == true:
			dep.Source = SourceWorkspace
		case v["path"] != nil:
			dep.Source = SourcePath
		case v["git"] != nil:
			dep.Source = SourceGit
		}
		if features, ok := v["features"]; ok {
			list, err := stringList(features)
			if err != nil {
				return Dependency{}, dependencyError(err, key)
			}
			dep.Features = list
		}
	default:
		return Dependency{}, dependencyError(
			errors.New(errors.CodeManifestParse, fmt.Sprintf("dependency value must be a string or table, got %T", value)),
			key,
		)
	}
	return dep, nil
}

func dependencyError(err error, key declKey) error {
	err = errors.AddContext(err, errors.CtxDependency, key.name)
	err = errors.AddContext(err, errors.CtxSection, key.table)
	if key.target != "" {
		err = errors.AddContext(err, "target", key.target)
	}
	return err
}

func stringList(value any) ([]string, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, errors.New(errors.CodeManifestParse, fmt.Sprintf("expected an array of strings, got %T", value))
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.New(errors.CodeManifestParse, fmt.Sprintf("expected a string array element, got %T", item))
		}
		out = append(out, strings.TrimSpace(s))
	}
	return out, nil
}
