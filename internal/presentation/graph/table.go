package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/vehicle/pkg/domain"
)

// GenerateMarkdown renders the pipeline as a Markdown table, one row per unit
// in registration (execution) order.
func GenerateMarkdown(descs []domain.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("| # | Unit | Inputs | Outputs | Mode | Runs when |\n")
	sb.WriteString("|---|------|--------|---------|------|-----------|\n")
	for i, d := range descs {
		mode := "sync"
		if d.Threaded {
			mode = "threaded"
		}
		cond := "always"
		if d.Condition != nil {
			cond = "`" + d.Condition.String() + "`"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %s |\n",
			i+1, d.Name, keys(d.Inputs), keys(d.Outputs), mode, cond))
	}
	return sb.String()
}

func keys(ks []string) string {
	if len(ks) == 0 {
		return "-"
	}
	quoted := make([]string, len(ks))
	for i, k := range ks {
		quoted[i] = "`" + k + "`"
	}
	return strings.Join(quoted, ", ")
}
