// Package handlers simulates the effect of each node type.
//
// A Handler turns a node and the current execution context into a log message,
// a context delta and the ID of the next node. Handlers never perform I/O: sending
// a message, reading a file or calling a model produces a simulated result only.
package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Outcome is the result of simulating one node.
type Outcome struct {
	Message string
	Delta   map[string]any
	// Next is the node to run afterwards. Empty ends the run.
	Next string
}

// Handler simulates a single node type.
type Handler interface {
	Handle(ctx context.Context, node domain.Node, execCtx map[string]any) (Outcome, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, node domain.Node, execCtx map[string]any) (Outcome, error)

func (f HandlerFunc) Handle(ctx context.Context, node domain.Node, execCtx map[string]any) (Outcome, error) {
	return f(ctx, node, execCtx)
}

// Registry maps node types to handlers.
// Types without a registered handler are served by the fallback.
type Registry struct {
	mu       sync.RWMutex
	handlers map[domain.NodeType]Handler
	fallback Handler
}

// NewRegistry creates a registry that only knows the generic fallback.
func NewRegistry() *Registry {
	return &Registry{
		handlers: make(map[domain.NodeType]Handler),
		fallback: HandlerFunc(executed),
	}
}

// Register binds h to t. An existing binding is overwritten.
func (r *Registry) Register(t domain.NodeType, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[t] = h
}

// SetFallback replaces the handler used for unregistered types.
func (r *Registry) SetFallback(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = h
}

// Dispatch runs the handler bound to the node's type.
func (r *Registry) Dispatch(ctx context.Context, node domain.Node, execCtx map[string]any) (Outcome, error) {
	r.mu.RLock()
	h, ok := r.handlers[node.Type]
	if !ok {
		h = r.fallback
	}
	r.mu.RUnlock()

	if h == nil {
		return Outcome{}, fmt.Errorf("no handler for node type %s", node.Type)
	}
	out, err := h.Handle(ctx, node, execCtx)
	if err != nil {
		return Outcome{}, fmt.Errorf("%s handler: %w", node.Type, err)
	}
	if out.Delta == nil {
		out.Delta = map[string]any{}
	}
	return out, nil
}

// Types returns the node types with a dedicated handler.
func (r *Registry) Types() []domain.NodeType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]domain.NodeType, 0, len(r.handlers))
	for _, t := range domain.NodeTypes {
		if _, ok := r.handlers[t]; ok {
			types = append(types, t)
		}
	}
	return types
}
