package domain

import (
	"encoding/json"
	"fmt"
)

// Workflow is an identified graph of nodes with a designated start node.
// The order of Nodes is display order only.
type Workflow struct {
	ID          string
	Name        string
	Description string
	StartNodeID string
	Nodes       []Node
}

// Node returns a pointer to the node with the given ID inside w.
// Callers that must not affect w should work on a Clone.
func (w *Workflow) Node(id string) (*Node, error) {
	for i := range w.Nodes {
		if w.Nodes[i].ID == id {
			return &w.Nodes[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
}

// Has reports whether a node with the given ID exists.
func (w *Workflow) Has(id string) bool {
	_, err := w.Node(id)
	return err == nil
}

// Clone returns a deep copy of the workflow.
func (w Workflow) Clone() Workflow {
	out := w
	out.Nodes = make([]Node, len(w.Nodes))
	for i, n := range w.Nodes {
		out.Nodes[i] = n.Clone()
	}
	return out
}

// Validate checks the referential integrity of the workflow.
// It returns a *ValidationError listing every problem found, or nil.
func (w *Workflow) Validate() error {
	var problems []string

	seen := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if n.ID == "" {
			problems = append(problems, "node with empty id")
			continue
		}
		if seen[n.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
		if !n.Type.Valid() {
			problems = append(problems, fmt.Sprintf("node %q has unknown type %q", n.ID, n.Type))
		}
	}

	for _, n := range w.Nodes {
		for _, r := range n.Routes() {
			if !seen[r.Target] {
				problems = append(problems, fmt.Sprintf("node %q routes %s to missing node %q", n.ID, r.Handle, r.Target))
			}
		}
	}

	switch {
	case w.StartNodeID == "":
		problems = append(problems, "start node not set")
	case !seen[w.StartNodeID]:
		problems = append(problems, fmt.Sprintf("start node %q not found", w.StartNodeID))
	}

	if len(problems) > 0 {
		return &ValidationError{WorkflowID: w.ID, Problems: problems}
	}
	return nil
}

// DefaultPosition is the layout assigned to the i-th node of a document without positions.
func DefaultPosition(i int) Position {
	y := 150.0
	if i%2 == 1 {
		y += 50
	}
	return Position{X: 100 + 200*float64(i), Y: y}
}

type nodeWire struct {
	ID       string         `json:"id"`
	Type     NodeType       `json:"type"`
	Subtype  string         `json:"subtype,omitempty"`
	Config   map[string]any `json:"config"`
	Next     *string        `json:"next"`
	Position *Position      `json:"position,omitempty"`
}

type workflowWire struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartNodeID string     `json:"start_node_id"`
	Nodes       []nodeWire `json:"nodes"`
}

func (n Node) wire() nodeWire {
	w := nodeWire{
		ID:       n.ID,
		Type:     n.Type,
		Subtype:  n.Subtype,
		Config:   map[string]any{},
		Position: &Position{X: n.Position.X, Y: n.Position.Y},
	}
	if n.Config != nil {
		w.Config = n.Config.Values()
	}
	if n.Next != "" {
		next := n.Next
		w.Next = &next
	}
	return w
}

func (w nodeWire) node() (Node, error) {
	cfg, err := DecodeConfig(w.Type, w.Config)
	if err != nil {
		return Node{}, fmt.Errorf("node %q: %w", w.ID, err)
	}
	n := Node{ID: w.ID, Type: w.Type, Subtype: w.Subtype, Config: cfg}
	if w.Next != nil {
		n.Next = *w.Next
	}
	if w.Position != nil {
		n.Position = *w.Position
	}
	return n, nil
}

// MarshalJSON encodes the node in the workflow document wire format.
func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.wire())
}

// UnmarshalJSON decodes a node from the workflow document wire format.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	decoded, err := w.node()
	if err != nil {
		return err
	}
	*n = decoded
	return nil
}

// MarshalJSON encodes the workflow document.
func (w Workflow) MarshalJSON() ([]byte, error) {
	out := workflowWire{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		StartNodeID: w.StartNodeID,
		Nodes:       make([]nodeWire, len(w.Nodes)),
	}
	for i, n := range w.Nodes {
		out.Nodes[i] = n.wire()
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a workflow document, assigning DefaultPosition to every
// node that arrives without one.
func (w *Workflow) UnmarshalJSON(data []byte) error {
	var in workflowWire
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	nodes := make([]Node, len(in.Nodes))
	for i, nw := range in.Nodes {
		n, err := nw.node()
		if err != nil {
			return err
		}
		if nw.Position == nil {
			n.Position = DefaultPosition(i)
		}
		nodes[i] = n
	}
	*w = Workflow{
		ID:          in.ID,
		Name:        in.Name,
		Description: in.Description,
		StartNodeID: in.StartNodeID,
		Nodes:       nodes,
	}
	return nil
}
