package graph

import (
	"fmt"
	"strings"

	"github.com/uk-gov-mirror/communitiesuk.prsdb-webapp/pkg/journey"
)

// Overlay marks session progress on the graph.
type Overlay struct {
	// Answered are the route segments holding a stored answer.
	Answered []string
	// Current is the route segment being looked at, if any.
	Current string
}

// GenerateMermaid produces a Mermaid flowchart of a journey's steps and the
// dependencies of their parents. Edges point from a dependency to the step it
// guards. Steps are drawn as:
// - Visitable step: [Rectangle]
// - Notional step (task exit): ((Circle))
// Task members are grouped in a subgraph. Edges leaving a notional step are dotted.
func GenerateMermaid(steps []journey.StepDescriptor, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	notional := make(map[string]bool)
	for _, s := range steps {
		notional[s.Name] = s.Notional
	}

	bySegment := make(map[string]string)
	currentTask := ""
	for _, s := range steps {
		if s.Task != currentTask {
			if currentTask != "" {
				sb.WriteString("    end\n")
			}
			if s.Task != "" {
				fmt.Fprintf(&sb, "    subgraph task_%s[\"%s\"]\n", sanitizeMermaidID(s.Task), s.Task)
			}
			currentTask = s.Task
		}

		opener, closer, label := "[", "]", s.Segment
		if s.Notional {
			opener, closer, label = "((", "))", s.Name
		} else {
			bySegment[s.Segment] = s.Name
		}
		indent := "    "
		if s.Task != "" {
			indent += "    "
		}
		fmt.Fprintf(&sb, "%s%s%s\"%s\"%s\n", indent, sanitizeMermaidID(s.Name), opener, label, closer)
	}
	if currentTask != "" {
		sb.WriteString("    end\n")
	}

	for _, s := range steps {
		for _, dep := range s.Dependencies {
			arrow := "-->"
			if notional[dep] {
				arrow = "-.->"
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(dep), arrow, sanitizeMermaidID(s.Name))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef answered fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, segment := range overlay.Answered {
			name, ok := bySegment[segment]
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			fmt.Fprintf(&sb, "    class %s answered;\n", sanitizeMermaidID(name))
		}
		if name, ok := bySegment[overlay.Current]; ok {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(name))
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
