package formats

import (
	"bytes"
	"crateprune/internal/core/app"
	"fmt"
	"io"
	"strings"
)

// Options controls presentation details shared by the formats.
type Options struct {
	// Color enables lipgloss styling in the text format.
	Color bool
}

// Render encodes report in the named format.
func Render(format string, report app.Report, opts Options) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		return []byte(GenerateText(report, opts)), nil
	case "json":
		return GenerateJSON(report)
	case "yaml":
		return GenerateYAML(report)
	case "tsv":
		return []byte(GenerateTSV(report)), nil
	case "markdown":
		return []byte(NewMarkdownGenerator().Generate(report)), nil
	case "sarif":
		return GenerateSARIF(report)
	default:
		return nil, fmt.Errorf("unsupported report format %q", format)
	}
}

// Write renders report and copies it to w.
func Write(w io.Writer, format string, report app.Report, opts Options) error {
	data, err := Render(format, report, opts)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, bytes.NewReader(data))
	return err
}

func nonEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// versionLabel describes where a dependency comes from when it has no
// version requirement.
func versionLabel(e app.Entry) string {
	if e.Version != "" {
		return e.Version
	}
	switch e.Source {
	case "", "registry":
		return "*"
	default:
		return e.Source
	}
}
