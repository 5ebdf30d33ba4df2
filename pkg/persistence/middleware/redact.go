package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/ports"
)

// Mask replaces redacted configuration values.
const Mask = "***"

// DefaultSecretPatterns match the config keys that usually hold credentials.
var DefaultSecretPatterns = []string{`(?i)api[_-]?key`, `(?i)token`, `(?i)password`, `(?i)secret`}

type redactMiddleware struct {
	next     ports.WorkflowStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks node config values whose
// keys match one of the patterns before they reach the store. Routing keys are
// never masked.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.WorkflowStore) ports.WorkflowStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, wf domain.Workflow) error {
	// Clone so the caller's live document keeps its values.
	out := wf.Clone()
	for i := range out.Nodes {
		n := &out.Nodes[i]
		if n.Config == nil {
			continue
		}
		values := n.Config.Values()
		if !maskMap(values, m.patterns) {
			continue
		}
		cfg, err := domain.DecodeConfig(n.Type, values)
		if err != nil {
			return fmt.Errorf("node %q: %w", n.ID, err)
		}
		n.Config = cfg
	}
	return m.next.Save(ctx, out)
}

func (m *redactMiddleware) Load(ctx context.Context, id string) (domain.Workflow, error) {
	return m.next.Load(ctx, id)
}

func (m *redactMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// maskMap masks matching keys in place, nested maps included, and reports
// whether anything changed.
func maskMap(m map[string]any, patterns []*regexp.Regexp) bool {
	changed := false
	for k, v := range m {
		if !domain.IsRoutingKey(k) && matches(k, patterns) {
			if v != Mask {
				m[k] = Mask
				changed = true
			}
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			cp := make(map[string]any, len(sub))
			for sk, sv := range sub {
				cp[sk] = sv
			}
			if maskMap(cp, patterns) {
				m[k] = cp
				changed = true
			}
		}
	}
	return changed
}

func matches(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
