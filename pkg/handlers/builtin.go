package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/template"
)

const (
	simulatedInput  = "Simulated User Input"
	simulatedAnswer = "This is a simulated AI response based on local LLaMA model behavior."
	ragAnswer       = "Based on the PDF, the policy states that refunds are processed within 5 days."
	defaultPrompt   = "Process input"
	statusSimulated = "simulated_send"
)

type options struct {
	now     func() time.Time
	decider Decider
}

// Option configures the built-in handlers.
type Option func(*options)

// WithClock sets the time source used for trigger timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithDecider sets the strategy used by condition nodes.
func WithDecider(d Decider) Option {
	return func(o *options) {
		o.decider = d
	}
}

// NewDefaultRegistry returns a registry with a simulated handler for every node type.
func NewDefaultRegistry(opts ...Option) *Registry {
	o := &options{now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if o.decider == nil {
		o.decider = NewRandomDecider(0)
	}

	r := NewRegistry()
	r.Register(domain.NodeTypeTrigger, Trigger(o.now))
	r.Register(domain.NodeTypeCondition, Condition(o.decider))
	r.Register(domain.NodeTypeCSVReader, HandlerFunc(csvReader))
	r.Register(domain.NodeTypeAIAgent, HandlerFunc(aiAgent))
	r.Register(domain.NodeTypeRAGAgent, HandlerFunc(ragAgent))
	r.Register(domain.NodeTypeWhatsApp, HandlerFunc(messenger))
	r.Register(domain.NodeTypeEmail, HandlerFunc(messenger))
	r.Register(domain.NodeTypeForEach, HandlerFunc(forEach))
	return r
}

// DeltaKey is the context key a node publishes its simulated output under.
func DeltaKey(node domain.Node) string {
	return fmt.Sprintf("%s::%s", node.Type, node.ID)
}

// Trigger records a simulated start event.
func Trigger(now func() time.Time) Handler {
	return HandlerFunc(func(_ context.Context, node domain.Node, _ map[string]any) (Outcome, error) {
		subtype := node.Subtype
		if subtype == "" {
			subtype = domain.SubtypeManual
		}
		return Outcome{
			Message: fmt.Sprintf("Trigger activated (%s)", subtype),
			Delta: map[string]any{
				"trigger": map[string]any{
					"startedAt": now().UTC().Format(time.RFC3339Nano),
					"input":     simulatedInput,
				},
			},
			Next: node.Next,
		}, nil
	})
}

// Condition routes to on_true or on_false as chosen by d.
func Condition(d Decider) Handler {
	return HandlerFunc(func(ctx context.Context, node domain.Node, execCtx map[string]any) (Outcome, error) {
		cond, ok := node.Config.(*domain.ConditionConfig)
		if !ok {
			cond = &domain.ConditionConfig{}
		}
		expression := cond.Expression
		if expression == "" {
			expression = "true"
		}

		branch, err := d.Decide(ctx, node, cond, execCtx)
		if err != nil {
			return Outcome{}, err
		}

		next := cond.OnFalse
		if branch {
			next = cond.OnTrue
		}
		return Outcome{
			Message: fmt.Sprintf("Condition evaluated: %s -> %t", expression, branch),
			Next:    next,
		}, nil
	})
}

func sampleRows() []any {
	return []any{
		map[string]any{"name": "Alice", "email": "alice@example.com", "phone": "+1234567890", "product": "Pro Plan"},
		map[string]any{"name": "Bob", "email": "bob@example.com", "phone": "+1987654321", "product": "Starter Plan"},
		map[string]any{"name": "Charlie", "email": "charlie@example.com", "phone": "+1122334455", "product": "Enterprise Plan"},
	}
}

func csvReader(_ context.Context, node domain.Node, _ map[string]any) (Outcome, error) {
	rows := sampleRows()
	return Outcome{
		Message: fmt.Sprintf("Read CSV file. Found %d rows.", len(rows)),
		Delta:   map[string]any{DeltaKey(node): map[string]any{"rows": rows}},
		Next:    node.Next,
	}, nil
}

func aiAgent(_ context.Context, node domain.Node, execCtx map[string]any) (Outcome, error) {
	prompt := defaultPrompt
	if cfg, ok := node.Config.(*domain.AgentConfig); ok && cfg.SystemPrompt != "" {
		prompt = cfg.SystemPrompt
	}
	resolved := template.Resolve(prompt, execCtx)
	return Outcome{
		Message: fmt.Sprintf(`AI Agent processed prompt: "%s..."`, truncate(resolved, 30)),
		Delta:   map[string]any{DeltaKey(node): map[string]any{"text": simulatedAnswer}},
		Next:    node.Next,
	}, nil
}

func ragAgent(_ context.Context, node domain.Node, _ map[string]any) (Outcome, error) {
	return Outcome{
		Message: "RAG Agent retrieved 3 chunks and generated answer.",
		Delta: map[string]any{DeltaKey(node): map[string]any{
			"answer":      ragAnswer,
			"used_chunks": []any{"chunk_1", "chunk_5"},
		}},
		Next: node.Next,
	}, nil
}

func messenger(_ context.Context, node domain.Node, execCtx map[string]any) (Outcome, error) {
	var to, body string
	switch cfg := node.Config.(type) {
	case *domain.WhatsAppConfig:
		to, body = cfg.To, cfg.MessageTemplate
	case *domain.EmailConfig:
		to, body = cfg.To, cfg.BodyTemplate
	}
	content := template.Resolve(body, execCtx)
	return Outcome{
		Message: fmt.Sprintf(`Generated %s message (Simulated): "%s..."`, node.Type, truncate(content, 40)),
		Delta: map[string]any{DeltaKey(node): map[string]any{
			"status":    statusSimulated,
			"content":   content,
			"recipient": template.Resolve(to, execCtx),
		}},
		Next: node.Next,
	}, nil
}

// forEach enters the loop body once with a fixed item; it does not iterate.
func forEach(_ context.Context, node domain.Node, _ map[string]any) (Outcome, error) {
	out := Outcome{Message: "Iterator check.", Next: node.Next}
	if cfg, ok := node.Config.(*domain.ForEachConfig); ok && cfg.BodyStart != "" {
		out.Next = cfg.BodyStart
		out.Delta = map[string]any{
			"row": map[string]any{"name": "Alice", "email": "alice@example.com", "phone": "+1234567890"},
		}
	}
	return out, nil
}

func executed(_ context.Context, node domain.Node, _ map[string]any) (Outcome, error) {
	return Outcome{
		Message: fmt.Sprintf("Executed node %s", node.ID),
		Next:    node.Next,
	}, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
