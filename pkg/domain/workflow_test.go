package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleWorkflow() Workflow {
	return Workflow{
		ID:          "flow-1",
		Name:        "Sample",
		StartNodeID: "t",
		Nodes: []Node{
			{ID: "t", Type: NodeTypeTrigger, Config: &TriggerConfig{}, Next: "c"},
			{ID: "c", Type: NodeTypeCondition, Config: &ConditionConfig{Expression: "true", OnTrue: "l", OnFalse: "missing"}},
			{ID: "l", Type: NodeTypeLog, Config: &LogConfig{Message: "done"}},
		},
	}
}

func TestWorkflow_Node(t *testing.T) {
	wf := sampleWorkflow()

	n, err := wf.Node("c")
	require.NoError(t, err)
	assert.Equal(t, NodeTypeCondition, n.Type)

	_, err = wf.Node("nope")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestWorkflow_Validate(t *testing.T) {
	wf := sampleWorkflow()
	wf.Nodes = append(wf.Nodes, Node{ID: "l", Type: NodeTypeLog, Config: &LogConfig{}})
	wf.StartNodeID = "ghost"

	err := wf.Validate()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Problems, `duplicate node id "l"`)
	assert.Contains(t, verr.Problems, `node "c" routes false to missing node "missing"`)
	assert.Contains(t, verr.Problems, `start node "ghost" not found`)

	valid := sampleWorkflow()
	valid.Nodes[1].Config.(*ConditionConfig).OnFalse = ""
	assert.NoError(t, valid.Validate())
}

func TestWorkflow_Clone(t *testing.T) {
	wf := sampleWorkflow()
	clone := wf.Clone()

	clone.Nodes[0].Next = "l"
	clone.Nodes[1].Config.(*ConditionConfig).OnTrue = "t"

	assert.Equal(t, "c", wf.Nodes[0].Next)
	assert.Equal(t, "l", wf.Nodes[1].Config.(*ConditionConfig).OnTrue)
}

func TestWorkflow_JSONBackfillsPositions(t *testing.T) {
	doc := `{
		"id": "flow-1",
		"name": "Generated",
		"description": "",
		"start_node_id": "a",
		"nodes": [
			{"id": "a", "type": "trigger", "config": {}, "next": "b"},
			{"id": "b", "type": "log", "config": {"message": "hi", "extra": 1}, "next": null},
			{"id": "c", "type": "output", "config": {}, "position": {"x": 7, "y": 9}},
			{"id": "d", "type": "log"}
		]
	}`

	var wf Workflow
	require.NoError(t, json.Unmarshal([]byte(doc), &wf))

	assert.Equal(t, Position{X: 100, Y: 150}, wf.Nodes[0].Position)
	assert.Equal(t, Position{X: 300, Y: 200}, wf.Nodes[1].Position)
	assert.Equal(t, Position{X: 7, Y: 9}, wf.Nodes[2].Position)
	assert.Equal(t, Position{X: 700, Y: 200}, wf.Nodes[3].Position)
	assert.Equal(t, "b", wf.Nodes[0].Next)
	assert.Empty(t, wf.Nodes[1].Next)

	out, err := json.Marshal(wf)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(out, &raw))
	nodes := raw["nodes"].([]any)
	second := nodes[1].(map[string]any)
	assert.Nil(t, second["next"])
	assert.Equal(t, float64(1), second["config"].(map[string]any)["extra"])
}

func TestWorkflow_JSONRejectsUnknownType(t *testing.T) {
	var wf Workflow
	err := json.Unmarshal([]byte(`{"nodes":[{"id":"x","type":"warp-drive"}]}`), &wf)
	assert.ErrorIs(t, err, ErrUnknownNodeType)
}

func TestMergeContext(t *testing.T) {
	base := map[string]any{"a": 1, "nested": map[string]any{"x": 1}}
	delta := map[string]any{"nested": map[string]any{"y": 2}, "b": 2}

	merged := MergeContext(base, delta)

	assert.Equal(t, map[string]any{"y": 2}, merged["nested"], "merge is shallow")
	assert.Equal(t, 1, merged["a"])
	assert.Equal(t, 2, merged["b"])
	assert.NotContains(t, base, "b")
}

func TestNode_Routes(t *testing.T) {
	n := Node{ID: "f", Type: NodeTypeForEach, Config: &ForEachConfig{BodyStart: "body"}, Next: "after"}
	assert.Equal(t, []Route{{Handle: HandleLoop, Target: "body"}, {Handle: HandleDefault, Target: "after"}}, n.Routes())
}
