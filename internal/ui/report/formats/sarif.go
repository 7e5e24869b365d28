package formats

import (
	"crateprune/internal/core/app"
	"crateprune/internal/shared/util"
	"crateprune/internal/shared/version"
	"encoding/json"
	"fmt"
	"strings"
)

// SARIF v2.1.0 schema – see https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json

const (
	sarifSchema  = "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json"
	sarifVersion = "2.1.0"

	ruleIDUnused = "CRATE001"
)

type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Rules   []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string                 `json:"id"`
	Name             string                 `json:"name"`
	ShortDescription sarifMessage           `json:"shortDescription"`
	DefaultConfig    sarifRuleDefaultConfig `json:"defaultConfiguration"`
}

type sarifRuleDefaultConfig struct {
	Level string `json:"level"`
}

type sarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    sarifMessage      `json:"message"`
	Locations  []sarifLocation   `json:"locations,omitempty"`
	Properties map[string]string `json:"properties,omitempty"`
}

type sarifMessage struct {
	Text string `json:"text"`
}

type sarifLocation struct {
	PhysicalLocation sarifPhysicalLocation `json:"physicalLocation"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifactLocation `json:"artifactLocation"`
}

type sarifArtifactLocation struct {
	URI       string `json:"uri"`
	URIBaseID string `json:"uriBaseId"`
}

// GenerateSARIF emits one result per potentially unused dependency, located
// at the manifest. URIs are relative to the project root so reports are safe
// to share.
func GenerateSARIF(report app.Report) ([]byte, error) {
	rules := make([]sarifRule, 0, 1)
	if report.HasFindings() {
		rules = append(rules, sarifRule{
			ID:               ruleIDUnused,
			Name:             "PotentiallyUnusedDependency",
			ShortDescription: sarifMessage{Text: "A declared crate dependency is never referenced by name in the project sources."},
			DefaultConfig:    sarifRuleDefaultConfig{Level: "warning"},
		})
	}

	manifestURI := util.RelativeSlashPath(report.ProjectRoot, nonEmpty(report.Manifest, "Cargo.toml"))
	results := make([]sarifResult, 0, len(report.Unused))
	for _, e := range report.Unused {
		props := map[string]string{
			"section": string(e.Section),
			"version": versionLabel(e),
		}
		if len(e.Features) > 0 {
			props["features"] = strings.Join(e.Features, ",")
		}
		if e.Target != "" {
			props["target"] = e.Target
		}
		results = append(results, sarifResult{
			RuleID:  ruleIDUnused,
			Level:   "warning",
			Message: sarifMessage{Text: fmt.Sprintf("Dependency %q (%s) is potentially unused. %s", e.Name, e.Section, report.Caveat)},
			Locations: []sarifLocation{{
				PhysicalLocation: sarifPhysicalLocation{
					ArtifactLocation: sarifArtifactLocation{URI: manifestURI, URIBaseID: "%SRCROOT%"},
				},
			}},
			Properties: props,
		})
	}

	doc := sarifReport{
		Schema:  sarifSchema,
		Version: sarifVersion,
		Runs: []sarifRun{
			{
				Tool: sarifTool{
					Driver: sarifDriver{
						Name:    "crateprune",
						Version: version.Version,
						Rules:   rules,
					},
				},
				Results: results,
			},
		},
	}

	return json.MarshalIndent(doc, "", "  ")
}
