package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/merits/pkg/edifact"
)

// GraphOverlay marks states on the graph, e.g. the ones a parse went through.
type GraphOverlay struct {
	VisitedPaths []string
	CurrentPath  string
}

// GenerateMermaid produces a Mermaid flowchart of the automaton, one node per
// state and one edge per transition labelled with its trigger.
// Shapes:
// - Start/Final: ((Circle))
// - Group: [[Subroutine]]
// - Segment: [Rectangle]
// Entering a group's first child and going up to the parent are drawn dotted.
func GenerateMermaid(a *edifact.Automaton, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, s := range a.States() {
		id := nodeID(s)

		opener, closer := "[", "]"
		switch {
		case s.ID == a.Begin() || s.ID == a.End():
			opener, closer = "((", "))"
		case s.IsGroup():
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s<br/>%s\"%s\n", id, opener, s.Path, cardinality(s.Node), closer)

		for _, e := range s.Edges() {
			switch {
			case e.Trigger == edifact.TriggerEnterGroup:
				fmt.Fprintf(&sb, "    %s -.-> %s\n", id, nodeID(a.State(e.Transition.Enter)))
			case e.Trigger == edifact.TriggerUp:
				fmt.Fprintf(&sb, "    %s -. up .-> %s\n", id, nodeID(a.State(s.Parent)))
			default:
				to := nodeID(a.State(e.Transition.Enter))
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", id, strings.ReplaceAll(e.Trigger, "\"", "'"), to)
			}
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, path := range overlay.VisitedPaths {
			s, ok := a.Lookup(path)
			if !ok || seen[path] {
				continue
			}
			seen[path] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", nodeID(s))
		}
		if s, ok := a.Lookup(overlay.CurrentPath); ok {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(s))
		}
	}

	return sb.String()
}

func cardinality(n *edifact.Node) string {
	return fmt.Sprintf("%d..%d", n.Min, n.Max)
}

func nodeID(s *edifact.State) string {
	return "n_" + sanitizeMermaidID(s.Path)
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
