package domain

import "time"

// RunStatus is the lifecycle state of a simulation run.
type RunStatus string

const (
	RunIdle    RunStatus = "idle"
	RunRunning RunStatus = "running"
	RunStopped RunStatus = "stopped"
)

// LogEntry records one executed step. Entries are never modified once appended.
type LogEntry struct {
	Step      int            `json:"step"`
	Timestamp time.Time      `json:"timestamp"`
	NodeID    string         `json:"nodeId"`
	NodeType  NodeType       `json:"nodeType"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data"`
}

// RunState is the live snapshot of a simulation.
type RunState struct {
	Status        RunStatus      `json:"status"`
	CurrentNodeID string         `json:"current_node_id,omitempty"`
	Context       map[string]any `json:"context"`
	Logs          []LogEntry     `json:"logs"`
	StepCount     int            `json:"step_count"`
	// Err holds the reason a run was stopped by a failure, if any.
	Err string `json:"error,omitempty"`
}

// NewRunState creates an idle run with an empty context.
func NewRunState() RunState {
	return RunState{
		Status:  RunIdle,
		Context: make(map[string]any),
		Logs:    []LogEntry{},
	}
}

// Visited returns the IDs of every node that produced a log entry, in order.
func (s RunState) Visited() []string {
	ids := make([]string, 0, len(s.Logs))
	for _, l := range s.Logs {
		ids = append(ids, l.NodeID)
	}
	return ids
}

// MergeContext returns a new context holding base overlaid with delta.
// Only top-level keys are merged; neither input is modified.
func MergeContext(base, delta map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(delta))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range delta {
		out[k] = v
	}
	return out
}
