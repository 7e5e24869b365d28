package formats

import (
	"crateprune/internal/core/app"
	"encoding/json"

	"gopkg.in/yaml.v3"
)

func GenerateJSON(report app.Report) ([]byte, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func GenerateYAML(report app.Report) ([]byte, error) {
	return yaml.Marshal(report)
}
