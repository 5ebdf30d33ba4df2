package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/autoflow/pkg/adapters/memory"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunWorkflowStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	wf := domain.Workflow{ID: "w", Nodes: []domain.Node{{ID: "a", Type: domain.NodeTypeLog, Config: &domain.LogConfig{}}}}
	if err := store.Save(ctx, wf); err != nil {
		t.Fatal(err)
	}
	wf.Nodes[0].Next = "mutated"

	loaded, err := store.Load(ctx, "w")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Nodes[0].Next != "" {
		t.Errorf("store shares memory with caller: next=%q", loaded.Nodes[0].Next)
	}
}
