package handlers

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Decider chooses the branch a condition node takes.
type Decider interface {
	Decide(ctx context.Context, node domain.Node, cond *domain.ConditionConfig, execCtx map[string]any) (bool, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, node domain.Node, cond *domain.ConditionConfig, execCtx map[string]any) (bool, error)

func (f DeciderFunc) Decide(ctx context.Context, node domain.Node, cond *domain.ConditionConfig, execCtx map[string]any) (bool, error) {
	return f(ctx, node, cond, execCtx)
}

// RandomDecider flips a fair coin and ignores the expression.
// It stands in for a real expression evaluator.
type RandomDecider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDecider seeds a decider. A zero seed uses the current time.
func NewRandomDecider(seed int64) *RandomDecider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandomDecider{rng: rand.New(rand.NewSource(seed))}
}

func (d *RandomDecider) Decide(context.Context, domain.Node, *domain.ConditionConfig, map[string]any) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() > 0.5, nil
}

// Always returns a decider that always picks the same branch.
func Always(branch bool) Decider {
	return DeciderFunc(func(context.Context, domain.Node, *domain.ConditionConfig, map[string]any) (bool, error) {
		return branch, nil
	})
}
