package loam

import (
	"context"
	"testing"

	"github.com/aretw0/autoflow/internal/testutils"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greetingJSON = `{
	"id": "greeting",
	"name": "Greeting",
	"description": "Says hello",
	"start_node_id": "trigger-1",
	"nodes": [
		{"id": "trigger-1", "type": "trigger", "config": {}, "next": "ai-1"},
		{"id": "ai-1", "type": "ai-agent", "config": {"system_prompt": "Say hello", "model": "llama3"}, "next": "log-1"},
		{"id": "log-1", "type": "log", "config": {"message": "Flow finished"}, "next": null}
	]
}`

const splitterYAML = `id: splitter
name: Splitter
start_node_id: pdf-1
nodes:
  - id: pdf-1
    type: pdf-reader
    config:
      path: policy.pdf
    next: split-1
  - id: split-1
    type: chunk-splitter
    config:
      chunk_size: 500
      overlap: 50
`

func TestSource_LoadJSON(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{"greeting.json": greetingJSON})

	src, err := Open(dir)
	require.NoError(t, err)

	wf, err := src.Load(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Equal(t, "Greeting", wf.Name)
	assert.Equal(t, "trigger-1", wf.StartNodeID)
	require.Len(t, wf.Nodes, 3)

	ai := wf.Nodes[1].Config.(*domain.AgentConfig)
	assert.Equal(t, "Say hello", ai.SystemPrompt)
	assert.Equal(t, "llama3", ai.Model)
	assert.Equal(t, domain.DefaultPosition(2), wf.Nodes[2].Position)
	assert.NoError(t, wf.Validate())
}

func TestSource_LoadYAMLWithNumbers(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{"splitter.yaml": splitterYAML})

	src, err := Open(dir)
	require.NoError(t, err)

	wf, err := src.Load(context.Background(), "splitter")
	require.NoError(t, err)
	split := wf.Nodes[1].Config.(*domain.ChunkSplitterConfig)
	assert.Equal(t, 500, split.ChunkSize)
	assert.Equal(t, 50, split.Overlap)
}

func TestSource_List(t *testing.T) {
	dir := testutils.WriteFiles(t, map[string]string{
		"greeting.json": greetingJSON,
		"splitter.yaml": splitterYAML,
		"notes.md":      "---\ntitle: not a workflow\n---\nJust notes",
	})

	src, err := Open(dir)
	require.NoError(t, err)

	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"greeting", "splitter"}, ids)
}

func TestSource_LoadMissing(t *testing.T) {
	src, err := Open(testutils.WriteFiles(t, nil))
	require.NoError(t, err)

	_, err = src.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
}

func TestNormalize(t *testing.T) {
	in := map[string]any{"config": map[any]any{"k": []any{map[any]any{1: "one"}}}}
	out := normalize(in).(map[string]any)
	assert.Equal(t, map[string]any{"k": []any{map[string]any{"1": "one"}}}, out["config"])
}
