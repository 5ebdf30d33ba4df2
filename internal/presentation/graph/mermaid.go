// Package graph renders workflows as Mermaid flowcharts.
package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/autoflow/pkg/domain"
)

// GraphOverlay contains run state to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor builds an overlay from a run state.
func OverlayFor(state domain.RunState) *GraphOverlay {
	return &GraphOverlay{
		VisitedNodes: state.Visited(),
		CurrentNode:  state.CurrentNodeID,
	}
}

// GenerateMermaid produces a Mermaid flowchart of wf.
// Shapes follow the node family:
// - Trigger: ((Circle))
// - Condition: {Rhombus}
// - For-each: {{Hexagon}}
// - Readers: [/Parallelogram/]
// - Agents: [[Subroutine]]
// - Sinks (log, output): ([Stadium])
// - Default: [Rectangle]
// Condition branches and loop bodies are labelled; the loop edge is dotted.
func GenerateMermaid(wf domain.Workflow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range wf.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := shape(node.Type)

		label := fmt.Sprintf("%s<br/><small>%s</small>", escapeLabel(node.ID), node.Type)
		if node.Subtype != "" {
			label = fmt.Sprintf("%s<br/><small>%s · %s</small>", escapeLabel(node.ID), node.Type, node.Subtype)
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label, closer)

		for _, r := range node.Routes() {
			safeTo := sanitizeMermaidID(r.Target)
			switch r.Handle {
			case domain.HandleTrue, domain.HandleFalse:
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, r.Handle, safeTo)
			case domain.HandleLoop:
				fmt.Fprintf(&sb, "    %s -. \"%s\" .-> %s\n", safeID, r.Handle, safeTo)
			default:
				if node.Type == domain.NodeTypeForEach {
					fmt.Fprintf(&sb, "    %s -- \"done\" --> %s\n", safeID, safeTo)
					continue
				}
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, safeTo)
			}
		}
	}

	if wf.StartNodeID != "" {
		sb.WriteString("\n    classDef start stroke:#22c55e,stroke-width:3px;\n")
		fmt.Fprintf(&sb, "    class %s start;\n", sanitizeMermaidID(wf.StartNodeID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// color:#000 keeps labels readable on both light and dark themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID == "" || seen[safeID] || !wf.Has(id) {
				continue
			}
			seen[safeID] = true
			fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
		}

		if overlay.CurrentNode != "" && wf.Has(overlay.CurrentNode) {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(t domain.NodeType) (string, string) {
	switch t {
	case domain.NodeTypeTrigger:
		return "((", "))"
	case domain.NodeTypeCondition:
		return "{", "}"
	case domain.NodeTypeForEach:
		return "{{", "}}"
	case domain.NodeTypeCSVReader, domain.NodeTypePDFReader:
		return "[/", "/]"
	case domain.NodeTypeAIAgent, domain.NodeTypeRAGAgent:
		return "[[", "]]"
	case domain.NodeTypeLog, domain.NodeTypeOutput:
		return "([", "])"
	default:
		return "[", "]"
	}
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", " ", "_").Replace(id)
}
