package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractWorkflow(id string) domain.Workflow {
	return domain.Workflow{
		ID:          id,
		Name:        "Contract",
		Description: "round trip",
		StartNodeID: "trigger-1",
		Nodes: []domain.Node{
			{ID: "trigger-1", Type: domain.NodeTypeTrigger, Subtype: domain.SubtypeSchedule, Config: &domain.TriggerConfig{}, Next: "cond-1", Position: domain.Position{X: 100, Y: 150}},
			{ID: "cond-1", Type: domain.NodeTypeCondition, Config: &domain.ConditionConfig{Expression: "true", OnTrue: "log-1"}, Position: domain.Position{X: 300, Y: 200}},
			{ID: "log-1", Type: domain.NodeTypeLog, Config: &domain.LogConfig{Message: "bye", Extra: map[string]any{"color": "blue"}}, Position: domain.Position{X: 500, Y: 150}},
		},
	}
}

// RunWorkflowStoreContract verifies that a WorkflowStore implementation honours
// the interface contract.
func RunWorkflowStoreContract(t *testing.T, store WorkflowStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405.000000")

	t.Run("Save and Load", func(t *testing.T) {
		wf := contractWorkflow(id)
		require.NoError(t, store.Save(ctx, wf), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, wf.Name, loaded.Name)
		assert.Equal(t, wf.StartNodeID, loaded.StartNodeID)
		require.Len(t, loaded.Nodes, 3)
		assert.Equal(t, domain.SubtypeSchedule, loaded.Nodes[0].Subtype)
		assert.Equal(t, "cond-1", loaded.Nodes[0].Next)
		assert.Equal(t, "log-1", loaded.Nodes[1].Config.(*domain.ConditionConfig).OnTrue)
		assert.Equal(t, "blue", loaded.Nodes[2].Config.Values()["color"], "unknown config keys must survive")
		assert.Equal(t, domain.Position{X: 300, Y: 200}, loaded.Nodes[1].Position)
	})

	t.Run("Save Overwrites", func(t *testing.T) {
		wf := contractWorkflow(id)
		wf.Name = "Renamed"
		require.NoError(t, store.Save(ctx, wf))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", loaded.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := id+"-1", id+"-2"
		require.NoError(t, store.Save(ctx, contractWorkflow(id1)))
		require.NoError(t, store.Save(ctx, contractWorkflow(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, contractWorkflow(id)))
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound, "Load after Delete should return ErrWorkflowNotFound")

		assert.NoError(t, store.Delete(ctx, id), "deleting twice is not an error")
	})
}
