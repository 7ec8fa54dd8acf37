package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/transito/pkg/domain"
)

// Overlay contains actor data to highlight on the graph.
type Overlay struct {
	VisitedStates []string
	CurrentState  string
}

// GenerateMermaid produces a Mermaid flowchart of a definition.
// Shapes:
// - Initial: ((Circle))
// - State with an entry action: [[Subroutine]]
// - Default: [Rectangle]
// Event edges are solid and labelled with the event, OnSuccess edges are solid and
// OnError edges dotted. Overlay styles are applied if provided.
func GenerateMermaid(def *domain.Definition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, name := range def.States() {
		node, _ := def.Node(name)
		safeID := sanitizeMermaidID(name)

		opener, closer := "[", "]"
		switch {
		case name == def.Initial():
			opener, closer = "((", "))"
		case node.Entry != nil:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, name, closer)

		for _, event := range def.Events(name) {
			t, _ := def.Transition(name, event)
			fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escapeLabel(event), sanitizeMermaidID(t.Target))
		}
		if node.OnSuccess != nil {
			fmt.Fprintf(&sb, "    %s -- \"ok\" --> %s\n", safeID, sanitizeMermaidID(node.OnSuccess.Target))
		}
		if node.OnError != nil {
			fmt.Fprintf(&sb, "    %s -. \"error\" .-> %s\n", safeID, sanitizeMermaidID(node.OnError.Target))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text stays readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, s := range overlay.VisitedStates {
			safeID := sanitizeMermaidID(s)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentState != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentState))
		}
	}

	return sb.String()
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
