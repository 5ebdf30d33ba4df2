// Package validator inspects workflows beyond referential integrity.
package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Report is the outcome of checking a workflow.
type Report struct {
	// Problems are integrity errors; a workflow with problems cannot be
	// simulated faithfully.
	Problems []string
	// Unreachable lists nodes no route from the start node leads to, in
	// document order. They are warnings only.
	Unreachable []string
}

// OK reports whether the workflow has no integrity problems.
func (r Report) OK() bool {
	return len(r.Problems) == 0
}

// Err returns the problems as a *domain.ValidationError, or nil.
func (r Report) Err(workflowID string) error {
	if r.OK() {
		return nil
	}
	return &domain.ValidationError{WorkflowID: workflowID, Problems: r.Problems}
}

func (r Report) String() string {
	var sb strings.Builder
	for _, p := range r.Problems {
		fmt.Fprintf(&sb, "- error: %s\n", p)
	}
	for _, id := range r.Unreachable {
		fmt.Fprintf(&sb, "- warning: node %q is unreachable from the start node\n", id)
	}
	return sb.String()
}

// Check validates wf and crawls it from the start node.
func Check(wf domain.Workflow) Report {
	var r Report
	if err := wf.Validate(); err != nil {
		if verr, ok := err.(*domain.ValidationError); ok {
			r.Problems = verr.Problems
		} else {
			r.Problems = []string{err.Error()}
		}
	}
	r.Unreachable = Unreachable(wf)
	return r
}

// Unreachable returns the IDs of nodes that cannot be visited from the start
// node through any handle. Every node is unreachable when the start node is
// missing.
func Unreachable(wf domain.Workflow) []string {
	byID := make(map[string]domain.Node, len(wf.Nodes))
	for _, n := range wf.Nodes {
		byID[n.ID] = n
	}

	visited := make(map[string]bool)
	queue := []string{wf.StartNodeID}
	for len(queue) > 0 {
		currentID := queue[0]
		queue = queue[1:]

		if visited[currentID] {
			continue
		}
		node, ok := byID[currentID]
		if !ok {
			continue // dangling route, reported by Validate
		}
		visited[currentID] = true

		for _, r := range node.Routes() {
			if !visited[r.Target] {
				queue = append(queue, r.Target)
			}
		}
	}

	var out []string
	for _, n := range wf.Nodes {
		if !visited[n.ID] {
			out = append(out, n.ID)
		}
	}
	return out
}
