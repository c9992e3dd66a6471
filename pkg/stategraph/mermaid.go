package stategraph

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Mermaid renders the graph as a Mermaid flowchart.
// START and END are drawn as circles. Conditional edges are labelled with
// their route keys; the default route is labelled "default". Retry targets
// appear as dotted edges.
func (cg *CompiledGraph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	sb.WriteString(fmt.Sprintf("    %s((\"start\"))\n", sanitizeMermaidID(START)))
	for _, name := range cg.nodes.Names() {
		opener, closer := "[", "]"
		if _, ok := cg.retries[name]; ok {
			opener, closer = "[[", "]]"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", sanitizeMermaidID(name), opener, name, closer))
	}
	sb.WriteString(fmt.Sprintf("    %s((\"end\"))\n", sanitizeMermaidID(END)))

	for _, src := range cg.edgeOrder {
		e := cg.edges[src]
		safeFrom := sanitizeMermaidID(src)

		if !e.conditional() {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeFrom, sanitizeMermaidID(e.to)))
			continue
		}

		for _, key := range slices.Sorted(maps.Keys(e.routes)) {
			arrow := "-- \"%s\" -->"
			if key == RouteKeyRetry {
				arrow = "-. \"%s\" .->"
			}
			label := strings.ReplaceAll(string(key), "\"", "'")
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeFrom, fmt.Sprintf(arrow, label), sanitizeMermaidID(e.routes[key])))
		}
		if e.hasDefault {
			sb.WriteString(fmt.Sprintf("    %s -- \"default\" --> %s\n", safeFrom, sanitizeMermaidID(e.defaultDest)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
