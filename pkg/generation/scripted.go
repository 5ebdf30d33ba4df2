package generation

import (
	"context"
	"sync"
)

// ScriptedGenerator replays canned replies in order. Once exhausted it keeps
// returning the last one. It is used offline and in tests.
type ScriptedGenerator struct {
	mu      sync.Mutex
	replies []string
	next    int
	// Err, when set, is returned by every call.
	Err error
}

// NewScriptedGenerator creates a generator over the given replies.
func NewScriptedGenerator(replies ...string) *ScriptedGenerator {
	return &ScriptedGenerator{replies: replies}
}

func (g *ScriptedGenerator) Send(ctx context.Context, _ []Message, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return "", g.Err
	}
	if len(g.replies) == 0 {
		return "", nil
	}
	reply := g.replies[g.next]
	if g.next < len(g.replies)-1 {
		g.next++
	}
	return reply, nil
}
