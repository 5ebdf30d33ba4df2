package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Summary renders the outcome of a run as markdown.
func Summary(wf domain.Workflow, state domain.RunState) string {
	var sb strings.Builder

	title := wf.Name
	if title == "" {
		title = wf.ID
	}
	fmt.Fprintf(&sb, "# %s\n\n", title)
	if wf.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", wf.Description)
	}

	fmt.Fprintf(&sb, "**Status:** %s · **Steps:** %d\n\n", statusLabel(state), state.StepCount)
	if state.Err != "" {
		fmt.Fprintf(&sb, "> %s\n\n", state.Err)
	}

	if len(state.Logs) > 0 {
		sb.WriteString("| # | Node | Type | Message |\n")
		sb.WriteString("|---|------|------|---------|\n")
		for _, l := range state.Logs {
			fmt.Fprintf(&sb, "| %d | `%s` | %s | %s |\n", l.Step, l.NodeID, l.NodeType, escapeCell(l.Message))
		}
		sb.WriteString("\n")
	}

	if len(state.Context) > 0 {
		keys := make([]string, 0, len(state.Context))
		for k := range state.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString("## Context\n\n")
		for _, k := range keys {
			fmt.Fprintf(&sb, "- `%s`\n", k)
		}
	}
	return sb.String()
}

func statusLabel(state domain.RunState) string {
	switch {
	case state.Err != "":
		return "failed"
	case state.Status == domain.RunIdle && state.CurrentNodeID == "":
		return "completed"
	default:
		return string(state.Status)
	}
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	return strings.ReplaceAll(s, "\n", " ")
}
