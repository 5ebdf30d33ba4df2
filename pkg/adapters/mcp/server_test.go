package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/adapters/memory"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/handlers"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *session.Manager) {
	t.Helper()
	mgr := session.NewManager(memory.NewStore())
	_, err := mgr.Create(context.Background(), document.Default())
	require.NoError(t, err)

	stepper := runtime.NewStepper(handlers.NewDefaultRegistry(), runtime.WithDelay(0))
	return NewServer(mgr, stepper, WithMaxSteps(20)), mgr
}

func call(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func text(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	}
	t.Fatalf("unexpected content %T", res.Content[0])
	return ""
}

func TestGetWorkflow(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleGetWorkflow(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	var wf domain.Workflow
	require.NoError(t, json.Unmarshal([]byte(text(t, res)), &wf))
	assert.Equal(t, "flow-1", wf.ID)
	assert.Len(t, wf.Nodes, 3)

	res, err = s.handleGetWorkflow(ctx, call(map[string]any{"session": "missing"}))
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestEditTools(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleAddNode(ctx, call(map[string]any{"type": "condition", "x": 50.0, "y": 75.0}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))
	id := text(t, res)
	assert.True(t, strings.HasPrefix(id, "condition-"), id)

	res, err = s.handleConnect(ctx, call(map[string]any{"source": "ai-1", "target": id}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleConnect(ctx, call(map[string]any{"source": id, "target": "log-1", "handle": "true"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	res, err = s.handleSetConfig(ctx, call(map[string]any{"node_id": "log-1", "key": "message", "value": "Done {{ai-1.text}}"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	stored, err := mgr.Store().Load(ctx, "flow-1")
	require.NoError(t, err)
	cond, err := stored.Node(id)
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 50, Y: 75}, cond.Position)
	cfg, ok := cond.Config.(*domain.ConditionConfig)
	require.True(t, ok)
	assert.Equal(t, "log-1", cfg.OnTrue)

	res, err = s.handleDeleteNode(ctx, call(map[string]any{"node_id": id}))
	require.NoError(t, err)
	require.False(t, res.IsError)
	ai, err := mgr.Store().Load(ctx, "flow-1")
	require.NoError(t, err)
	node, err := ai.Node("ai-1")
	require.NoError(t, err)
	assert.Empty(t, node.Next)
}

func TestEditTools_Errors(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		fn   func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args map[string]any
	}{
		{"Missing Type", s.handleAddNode, map[string]any{}},
		{"Unknown Type", s.handleAddNode, map[string]any{"type": "fax"}},
		{"Missing Target", s.handleConnect, map[string]any{"source": "ai-1", "target": "ghost"}},
		{"Bad Handle", s.handleConnect, map[string]any{"source": "ai-1", "target": "log-1", "handle": "up"}},
		{"Routing Key", s.handleSetConfig, map[string]any{"node_id": "log-1", "key": "next", "value": "ai-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.fn(ctx, call(tt.args))
			require.NoError(t, err)
			assert.True(t, res.IsError)
		})
	}
}

func TestSetConfig_DecodesJSON(t *testing.T) {
	s, mgr := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleSetConfig(ctx, call(map[string]any{"node_id": "log-1", "key": "retries", "value": "3"}))
	require.NoError(t, err)
	require.False(t, res.IsError, text(t, res))

	sess, err := mgr.Get("flow-1")
	require.NoError(t, err)
	wf := sess.Document().Snapshot()
	node, err := wf.Node("log-1")
	require.NoError(t, err)
	assert.Equal(t, float64(3), node.Config.Values()["retries"])
}

func TestRunAndStep(t *testing.T) {
	s, _ := newTestServer(t)
	ctx := context.Background()

	resp, err := s.handleRun(ctx, call(nil), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RunIdle, resp.State.Status)
	assert.Equal(t, []string{"trigger-1", "ai-1", "log-1"}, resp.State.Visited())
	assert.Equal(t, "Executed node log-1", resp.State.Logs[2].Message)

	resp, err = s.handleStep(ctx, call(nil), nil)
	require.NoError(t, err)
	require.NotNil(t, resp.Log)
	assert.Equal(t, "trigger-1", resp.Log.NodeID)
	assert.Equal(t, 1, resp.Log.Step)
	assert.Equal(t, "ai-1", resp.State.CurrentNodeID)

	res, err := s.handleReset(ctx, call(nil))
	require.NoError(t, err)
	assert.False(t, res.IsError)

	_, err = s.handleStep(ctx, call(map[string]any{"session": "missing"}), nil)
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}
