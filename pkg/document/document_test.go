package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFor(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"flow.json", JSON},
		{"flow.yaml", YAML},
		{"FLOW.YML", YAML},
		{"flow", JSON},
		{"flow.txt", JSON},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatFor(tt.path), tt.path)
	}
}

func TestDecode_YAML(t *testing.T) {
	src := `
id: notify
name: Notify
start_node_id: t
nodes:
  - id: t
    type: trigger
    subtype: webhook
    next: w
  - id: w
    type: whatsapp
    config:
      to: "+5511999999999"
      message_template: "Hi {{trigger.input}}"
      priority: high
`
	wf, err := Decode([]byte(src), YAML)
	require.NoError(t, err)
	require.Len(t, wf.Nodes, 2)
	assert.Equal(t, domain.SubtypeWebhook, wf.Nodes[0].Subtype)
	assert.Equal(t, "w", wf.Nodes[0].Next)

	wa := wf.Nodes[1].Config.(*domain.WhatsAppConfig)
	assert.Equal(t, "+5511999999999", wa.To)
	assert.Equal(t, "Hi {{trigger.input}}", wa.MessageTemplate)
	assert.Equal(t, "high", wa.Extra["priority"])

	assert.Equal(t, domain.Position{X: 100, Y: 150}, wf.Nodes[0].Position)
	assert.Equal(t, domain.Position{X: 300, Y: 200}, wf.Nodes[1].Position)
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode([]byte("{not json"), JSON)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Decode([]byte("nodes: [unclosed"), YAML)
	assert.ErrorIs(t, err, ErrInvalidDocument)

	_, err = Decode([]byte(`{"id":"x","nodes":[{"id":"a","type":"teleport"}]}`), JSON)
	assert.ErrorIs(t, err, domain.ErrUnknownNodeType)
}

func TestEncode_YAMLRoundTrip(t *testing.T) {
	wf := Default()

	data, err := Encode(wf, YAML)
	require.NoError(t, err)
	assert.Contains(t, string(data), "start_node_id: trigger-1")
	assert.Contains(t, string(data), "system_prompt: Say hello to the world")

	back, err := Decode(data, YAML)
	require.NoError(t, err)
	assert.Equal(t, wf.ID, back.ID)
	assert.Equal(t, wf.StartNodeID, back.StartNodeID)
	require.Len(t, back.Nodes, 3)
	for i := range wf.Nodes {
		assert.Equal(t, wf.Nodes[i].ID, back.Nodes[i].ID)
		assert.Equal(t, wf.Nodes[i].Next, back.Nodes[i].Next)
		assert.Equal(t, wf.Nodes[i].Position, back.Nodes[i].Position)
	}
	assert.Equal(t, "Flow finished", back.Nodes[2].Config.(*domain.LogConfig).Message)
}

func TestEncode_YAMLQuotesAmbiguousStrings(t *testing.T) {
	wf := domain.Workflow{
		ID:          "q",
		StartNodeID: "c",
		Nodes: []domain.Node{
			{ID: "c", Type: domain.NodeTypeCondition, Config: &domain.ConditionConfig{Expression: "true"}},
		},
	}

	data, err := Encode(wf, YAML)
	require.NoError(t, err)

	back, err := Decode(data, YAML)
	require.NoError(t, err)
	assert.Equal(t, "true", back.Nodes[0].Config.(*domain.ConditionConfig).Expression)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"flow.json", "flow.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Save(path, Default()))

		wf, err := Load(path)
		require.NoError(t, err, name)
		assert.NoError(t, wf.Validate(), name)
		assert.Equal(t, "ai-1", wf.Nodes[0].Next, name)
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDefault(t *testing.T) {
	wf := Default()
	require.NoError(t, wf.Validate())
	assert.Equal(t, []string{"ai-1"}, routes(wf.Nodes[0]))
	assert.Equal(t, []string{"log-1"}, routes(wf.Nodes[1]))
	assert.Empty(t, routes(wf.Nodes[2]))
}

func routes(n domain.Node) []string {
	var out []string
	for _, r := range n.Routes() {
		out = append(out, r.Target)
	}
	return out
}
