package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/graph"
)

// Builder manages the workflow construction.
type Builder struct {
	wf    domain.Workflow
	nodes []*NodeBuilder
	byID  map[string]*NodeBuilder
	start string
	errs  []error
}

// New creates a new workflow builder.
func New(id string) *Builder {
	return &Builder{
		wf:   domain.Workflow{ID: id},
		byID: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name of the workflow.
func (b *Builder) Name(name string) *Builder {
	b.wf.Name = name
	return b
}

// Description sets the description of the workflow.
func (b *Builder) Description(d string) *Builder {
	b.wf.Description = d
	return b
}

// Start designates the start node. Without it the first added node is used.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Add declares a node. Adding an existing ID returns its builder unchanged.
func (b *Builder) Add(id string, t domain.NodeType) *NodeBuilder {
	if nb, ok := b.byID[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		builder: b,
		node:    domain.Node{ID: id, Type: t},
		values:  make(map[string]any),
		routes:  make(map[domain.Handle]string),
	}
	b.nodes = append(b.nodes, nb)
	b.byID[id] = nb
	return nb
}

// Build assembles the workflow. Nodes without a position get the default
// layout for their declaration order.
func (b *Builder) Build() (domain.Workflow, error) {
	wf := b.wf
	wf.Nodes = make([]domain.Node, 0, len(b.nodes))
	errs := append([]error(nil), b.errs...)

	for i, nb := range b.nodes {
		n := nb.node
		cfg, err := domain.DecodeConfig(n.Type, nb.values)
		if err != nil {
			errs = append(errs, fmt.Errorf("node %q: %w", n.ID, err))
			continue
		}
		n.Config = cfg
		if !nb.placed {
			n.Position = domain.DefaultPosition(i)
		}
		wf.Nodes = append(wf.Nodes, n)
	}
	if len(errs) > 0 {
		return domain.Workflow{}, errors.Join(errs...)
	}

	for _, nb := range b.nodes {
		for _, h := range []domain.Handle{domain.HandleDefault, domain.HandleTrue, domain.HandleFalse, domain.HandleLoop} {
			target, ok := nb.routes[h]
			if !ok {
				continue
			}
			next, err := graph.ConnectNodes(wf, nb.node.ID, target, h)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			wf = next
		}
	}
	if len(errs) > 0 {
		return domain.Workflow{}, errors.Join(errs...)
	}

	start := b.start
	if start == "" && len(wf.Nodes) > 0 {
		start = wf.Nodes[0].ID
	}
	if start != "" {
		next, err := graph.SetStart(wf, start)
		if err != nil {
			return domain.Workflow{}, err
		}
		wf = next
	}
	return wf, nil
}

// MustBuild is Build for statically known workflows. It panics on error.
func (b *Builder) MustBuild() domain.Workflow {
	wf, err := b.Build()
	if err != nil {
		panic(err)
	}
	return wf
}

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	builder *Builder
	node    domain.Node
	values  map[string]any
	routes  map[domain.Handle]string
	placed  bool
}

// Subtype sets the node subtype, e.g. the trigger kind.
func (n *NodeBuilder) Subtype(s string) *NodeBuilder {
	n.node.Subtype = s
	return n
}

// Set adds a configuration value. Routing keys must be set with Go, OnTrue,
// OnFalse or Loop.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	if domain.IsRoutingKey(key) {
		n.builder.errs = append(n.builder.errs, fmt.Errorf("node %q: %w: %s", n.node.ID, domain.ErrRoutingKey, key))
		return n
	}
	n.values[key] = value
	return n
}

// At places the node on the canvas.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.node.Position = domain.Position{X: x, Y: y}
	n.placed = true
	return n
}

// Go sets the default successor.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	n.routes[domain.HandleDefault] = target
	return n
}

// OnTrue sets the branch a condition takes when it holds.
func (n *NodeBuilder) OnTrue(target string) *NodeBuilder {
	n.routes[domain.HandleTrue] = target
	return n
}

// OnFalse sets the branch a condition takes when it does not hold.
func (n *NodeBuilder) OnFalse(target string) *NodeBuilder {
	n.routes[domain.HandleFalse] = target
	return n
}

// Loop sets the first node of a for-each body.
func (n *NodeBuilder) Loop(target string) *NodeBuilder {
	n.routes[domain.HandleLoop] = target
	return n
}

// Add declares the next node on the parent builder.
func (n *NodeBuilder) Add(id string, t domain.NodeType) *NodeBuilder {
	return n.builder.Add(id, t)
}

// Build builds the parent workflow.
func (n *NodeBuilder) Build() (domain.Workflow, error) {
	return n.builder.Build()
}

// MustBuild builds the parent workflow and panics on error.
func (n *NodeBuilder) MustBuild() domain.Workflow {
	return n.builder.MustBuild()
}
