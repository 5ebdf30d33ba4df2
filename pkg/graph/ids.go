package graph

import (
	"fmt"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/google/uuid"
)

// IDGenerator proposes a node ID for a new node of the given type.
// Proposals may collide; AddNode retries until it finds a free one.
type IDGenerator func(t domain.NodeType) string

// RandomIDs yields IDs of the form "<type>-<8 hex chars>".
func RandomIDs(t domain.NodeType) string {
	return fmt.Sprintf("%s-%s", t, uuid.NewString()[:8])
}

const maxProposals = 32

func allocateID(wf *domain.Workflow, t domain.NodeType, gen IDGenerator) string {
	var candidate string
	for i := 0; i < maxProposals; i++ {
		candidate = gen(t)
		if candidate != "" && !wf.Has(candidate) {
			return candidate
		}
	}
	if candidate == "" {
		candidate = string(t)
	}
	// The generator kept colliding; fall back to a counter suffix.
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s-%d", candidate, n)
		if !wf.Has(id) {
			return id
		}
	}
}
