// Package graph implements the mutation operations of a workflow graph.
//
// Every operation takes a workflow value and returns a new one; inputs are never
// modified. The operations are the only writers of routing references, which keeps
// every next, on_true, on_false and body_start pointing at an existing node.
package graph

import (
	"fmt"

	"github.com/aretw0/autoflow/pkg/domain"
)

// AddNode appends a disconnected node of type t at pos and returns its ID.
// Condition nodes start with expression "true"; every other type starts empty.
func AddNode(wf domain.Workflow, t domain.NodeType, pos domain.Position) (domain.Workflow, string, error) {
	return AddNodeWithIDs(wf, t, pos, RandomIDs)
}

// AddNodeWithIDs is AddNode with a custom ID generator.
func AddNodeWithIDs(wf domain.Workflow, t domain.NodeType, pos domain.Position, gen IDGenerator) (domain.Workflow, string, error) {
	cfg, err := domain.NewConfig(t)
	if err != nil {
		return wf, "", err
	}
	if cond, ok := cfg.(*domain.ConditionConfig); ok {
		cond.Expression = "true"
	}

	out := wf.Clone()
	id := allocateID(&out, t, gen)
	out.Nodes = append(out.Nodes, domain.Node{
		ID:       id,
		Type:     t,
		Config:   cfg,
		Position: pos,
	})
	return out, id, nil
}

// DeleteNode removes the node and clears every routing reference to it held by
// any remaining node. Deleting an absent ID returns an unchanged copy.
// StartNodeID is left as is; Validate reports it if it now dangles.
func DeleteNode(wf domain.Workflow, id string) domain.Workflow {
	out := wf.Clone()
	if !out.Has(id) {
		return out
	}

	kept := out.Nodes[:0]
	for _, n := range out.Nodes {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	out.Nodes = kept

	for i := range out.Nodes {
		scrub(&out.Nodes[i], id)
	}
	return out
}

func scrub(n *domain.Node, id string) {
	if n.Next == id {
		n.Next = ""
	}
	switch c := n.Config.(type) {
	case *domain.ConditionConfig:
		if c.OnTrue == id {
			c.OnTrue = ""
		}
		if c.OnFalse == id {
			c.OnFalse = ""
		}
	case *domain.ForEachConfig:
		if c.BodyStart == id {
			c.BodyStart = ""
		}
	}
}

// ConnectNodes wires source to target through handle.
//
//   - condition: "true" sets on_true, "false" sets on_false, other handles are a no-op.
//   - for-each: "loop" sets body_start, other handles set next (the loop-done path).
//   - anything else: next, whatever the handle.
//
// Self-loops are allowed. Both endpoints must exist.
func ConnectNodes(wf domain.Workflow, source, target string, handle domain.Handle) (domain.Workflow, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return wf, err
	}

	out := wf.Clone()
	src, err := out.Node(source)
	if err != nil {
		return wf, fmt.Errorf("connect source: %w", err)
	}
	if !out.Has(target) {
		return wf, fmt.Errorf("connect target: %w: %s", domain.ErrNodeNotFound, target)
	}

	setRoute(src, target, handle)
	return out, nil
}

// Disconnect clears the routing reference that handle addresses on source.
func Disconnect(wf domain.Workflow, source string, handle domain.Handle) (domain.Workflow, error) {
	handle, err := checkHandle(handle)
	if err != nil {
		return wf, err
	}
	out := wf.Clone()
	src, err := out.Node(source)
	if err != nil {
		return wf, err
	}
	setRoute(src, "", handle)
	return out, nil
}

func checkHandle(handle domain.Handle) (domain.Handle, error) {
	switch handle {
	case "":
		return domain.HandleDefault, nil
	case domain.HandleDefault, domain.HandleTrue, domain.HandleFalse, domain.HandleLoop:
		return handle, nil
	default:
		return handle, fmt.Errorf("%w: %q", domain.ErrUnknownHandle, handle)
	}
}

func setRoute(src *domain.Node, target string, handle domain.Handle) {
	switch c := src.Config.(type) {
	case *domain.ConditionConfig:
		switch handle {
		case domain.HandleTrue:
			c.OnTrue = target
		case domain.HandleFalse:
			c.OnFalse = target
		}
	case *domain.ForEachConfig:
		if handle == domain.HandleLoop {
			c.BodyStart = target
		} else {
			src.Next = target
		}
	default:
		src.Next = target
	}
}

// MoveNode updates only the position of a node.
func MoveNode(wf domain.Workflow, id string, pos domain.Position) (domain.Workflow, error) {
	out := wf.Clone()
	n, err := out.Node(id)
	if err != nil {
		return wf, err
	}
	n.Position = pos
	return out, nil
}

// SetConfigValue sets a single configuration key on a node. An empty string
// clears the key. Routing keys are rejected; use ConnectNodes instead.
func SetConfigValue(wf domain.Workflow, id, key string, value any) (domain.Workflow, error) {
	if domain.IsRoutingKey(key) {
		return wf, fmt.Errorf("%w: %s", domain.ErrRoutingKey, key)
	}
	out := wf.Clone()
	n, err := out.Node(id)
	if err != nil {
		return wf, err
	}
	if n.Config == nil {
		if n.Config, err = domain.NewConfig(n.Type); err != nil {
			return wf, err
		}
	}
	cfg, err := domain.WithValue(n.Config, key, value)
	if err != nil {
		return wf, err
	}
	n.Config = cfg
	return out, nil
}

// SetSubtype changes the subtype of a node (manual, webhook, schedule for triggers).
func SetSubtype(wf domain.Workflow, id, subtype string) (domain.Workflow, error) {
	out := wf.Clone()
	n, err := out.Node(id)
	if err != nil {
		return wf, err
	}
	n.Subtype = subtype
	return out, nil
}

// SetStart designates the node a run begins from.
func SetStart(wf domain.Workflow, id string) (domain.Workflow, error) {
	if !wf.Has(id) {
		return wf, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	out := wf.Clone()
	out.StartNodeID = id
	return out, nil
}
