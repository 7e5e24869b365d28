package formats

import (
	"crateprune/internal/core/app"
	"fmt"
	"strconv"
	"strings"
)

// GenerateTSV writes one row per potentially unused dependency.
func GenerateTSV(report app.Report) string {
	var buf strings.Builder

	buf.WriteString("Name\tSection\tVersion\tFeatures\tSource\tTarget\tOptional\n")
	for _, e := range report.Unused {
		buf.WriteString(fmt.Sprintf("%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			tsvField(e.Name),
			e.Section,
			tsvField(e.Version),
			tsvField(strings.Join(e.Features, ",")),
			tsvField(e.Source),
			tsvField(e.Target),
			strconv.FormatBool(e.Optional),
		))
	}

	return buf.String()
}

func tsvField(value string) string {
	return strings.NewReplacer("\t", " ", "\n", " ", "\r", " ").Replace(value)
}
