package graph

import (
	"sync"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Document is a workflow shared between an editor and a running simulation.
// Edits are applied atomically and become visible to the next Snapshot.
type Document struct {
	mu      sync.RWMutex
	wf      domain.Workflow
	version uint64
}

// NewDocument wraps a copy of wf.
func NewDocument(wf domain.Workflow) *Document {
	return &Document{wf: wf.Clone()}
}

// Snapshot returns a copy of the current workflow.
func (d *Document) Snapshot() domain.Workflow {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.wf.Clone()
}

// Version increases by one with every successful edit.
func (d *Document) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Replace swaps the whole workflow, e.g. after loading or generating one.
func (d *Document) Replace(wf domain.Workflow) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wf = wf.Clone()
	d.version++
}

// Apply runs fn against the current workflow and stores the result unless fn fails.
func (d *Document) Apply(fn func(domain.Workflow) (domain.Workflow, error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	next, err := fn(d.wf)
	if err != nil {
		return err
	}
	d.wf = next
	d.version++
	return nil
}

func (d *Document) AddNode(t domain.NodeType, pos domain.Position) (string, error) {
	var id string
	err := d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		out, newID, err := AddNode(wf, t, pos)
		id = newID
		return out, err
	})
	return id, err
}

func (d *Document) DeleteNode(id string) {
	_ = d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return DeleteNode(wf, id), nil
	})
}

func (d *Document) ConnectNodes(source, target string, handle domain.Handle) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return ConnectNodes(wf, source, target, handle)
	})
}

func (d *Document) Disconnect(source string, handle domain.Handle) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return Disconnect(wf, source, handle)
	})
}

func (d *Document) MoveNode(id string, pos domain.Position) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return MoveNode(wf, id, pos)
	})
}

func (d *Document) SetConfigValue(id, key string, value any) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return SetConfigValue(wf, id, key, value)
	})
}

func (d *Document) SetSubtype(id, subtype string) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return SetSubtype(wf, id, subtype)
	})
}

func (d *Document) SetStart(id string) error {
	return d.Apply(func(wf domain.Workflow) (domain.Workflow, error) {
		return SetStart(wf, id)
	})
}
