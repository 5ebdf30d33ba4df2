package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Observer receives run progress as it happens.
type Observer interface {
	OnLog(ctx context.Context, sessionID string, entry domain.LogEntry)
	OnStatus(ctx context.Context, sessionID string, state domain.RunState)
}

// NopObserver discards everything.
type NopObserver struct{}

func (NopObserver) OnLog(context.Context, string, domain.LogEntry)    {}
func (NopObserver) OnStatus(context.Context, string, domain.RunState) {}

// MultiObserver fans out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnLog(ctx context.Context, id string, entry domain.LogEntry) {
	for _, o := range m {
		o.OnLog(ctx, id, entry)
	}
}

func (m MultiObserver) OnStatus(ctx context.Context, id string, state domain.RunState) {
	for _, o := range m {
		o.OnStatus(ctx, id, state)
	}
}

// ContentRenderer transforms text before it is printed, e.g. markdown to ANSI.
type ContentRenderer func(string) (string, error)

// TextObserver prints a human readable trace.
type TextObserver struct {
	mu       sync.Mutex
	w        io.Writer
	Renderer ContentRenderer
}

// NewTextObserver creates a TextObserver writing to w.
func NewTextObserver(w io.Writer) *TextObserver {
	return &TextObserver{w: w}
}

func (o *TextObserver) OnLog(_ context.Context, _ string, entry domain.LogEntry) {
	o.mu.Lock()
	defer o.mu.Unlock()

	line := fmt.Sprintf("#%d %s [%s] %s", entry.Step, entry.NodeID, entry.NodeType, entry.Message)
	if o.Renderer != nil {
		if rendered, err := o.Renderer(line); err == nil {
			line = rendered
		}
	}
	fmt.Fprintln(o.w, line)
}

func (o *TextObserver) OnStatus(_ context.Context, _ string, state domain.RunState) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case state.Status == domain.RunRunning:
		fmt.Fprintf(o.w, "Simulation started at %s\n", state.CurrentNodeID)
	case state.Err != "":
		fmt.Fprintf(o.w, "Simulation stopped after %d steps: %s\n", state.StepCount, state.Err)
	case state.Status == domain.RunStopped:
		fmt.Fprintf(o.w, "Simulation stopped after %d steps\n", state.StepCount)
	case state.CurrentNodeID == "":
		fmt.Fprintf(o.w, "Simulation finished after %d steps\n", state.StepCount)
	}
}

// Event is one NDJSON line written by JSONObserver.
type Event struct {
	Type      string           `json:"type"`
	SessionID string           `json:"session_id"`
	Log       *domain.LogEntry `json:"log,omitempty"`
	State     *domain.RunState `json:"state,omitempty"`
}

// JSONObserver writes one JSON event per line.
type JSONObserver struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONObserver creates a JSONObserver writing to w.
func NewJSONObserver(w io.Writer) *JSONObserver {
	return &JSONObserver{enc: json.NewEncoder(w)}
}

func (o *JSONObserver) OnLog(_ context.Context, id string, entry domain.LogEntry) {
	o.write(Event{Type: "log", SessionID: id, Log: &entry})
}

func (o *JSONObserver) OnStatus(_ context.Context, id string, state domain.RunState) {
	state.Logs = nil
	o.write(Event{Type: "status", SessionID: id, State: &state})
}

func (o *JSONObserver) write(ev Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_ = o.enc.Encode(ev)
}
