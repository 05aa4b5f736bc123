package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/vehicle/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart of a unit pipeline.
// Units appear in registration order with semantic shapes:
// - Threaded: [[Subroutine]]
// - Conditional: {{Hexagon}}
// - Sink (no outputs): [/Parallelogram/]
// - Default: [Rectangle]
// Edges carry the key they transport. An edge into an earlier unit (read on
// the next tick) is dotted, and a run condition is drawn as a labeled dotted
// edge from its producer.
func GenerateMermaid(descs []domain.Descriptor) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	producers := make(map[string][]int)
	for i, d := range descs {
		for _, k := range d.Outputs {
			producers[k] = append(producers[k], i)
		}
	}

	for _, d := range descs {
		safeID := sanitizeMermaidID(d.Name)

		opener, closer := "[", "]"
		switch {
		case d.Threaded:
			opener, closer = "[[", "]]"
		case d.Condition != nil:
			opener, closer = "{{", "}}"
		case len(d.Outputs) == 0:
			opener, closer = "[/", "/]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, d.Name, closer))
	}

	for i, d := range descs {
		safeTo := sanitizeMermaidID(d.Name)
		for _, k := range d.Inputs {
			for _, p := range producers[k] {
				arrow := fmt.Sprintf("-- \"%s\" -->", escape(k))
				if p >= i {
					arrow = fmt.Sprintf("-. \"%s\" .->", escape(k))
				}
				sb.WriteString(fmt.Sprintf("    %s %s %s\n", sanitizeMermaidID(descs[p].Name), arrow, safeTo))
			}
		}
		if c := d.Condition; c != nil {
			for _, p := range producers[c.Key] {
				sb.WriteString(fmt.Sprintf("    %s -. \"when %s\" .-> %s\n", sanitizeMermaidID(descs[p].Name), escape(c.String()), safeTo))
			}
		}
	}
	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
