package dsl

import (
	"testing"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	wf, err := New("greeting").
		Name("Greeting").
		Add("start", domain.NodeTypeTrigger).Subtype(domain.SubtypeWebhook).Go("check").
		Add("check", domain.NodeTypeCondition).Set("expression", "{{start.payload}}").
		OnTrue("hello").OnFalse("bye").
		Add("hello", domain.NodeTypeLog).Set("message", "Hello!").At(10, 20).
		Add("bye", domain.NodeTypeLog).Set("message", "Bye!").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "greeting", wf.ID)
	assert.Equal(t, "Greeting", wf.Name)
	assert.Equal(t, "start", wf.StartNodeID)
	require.Len(t, wf.Nodes, 4)
	require.NoError(t, wf.Validate())

	start, err := wf.Node("start")
	require.NoError(t, err)
	assert.Equal(t, "check", start.Next)
	assert.Equal(t, domain.SubtypeWebhook, start.Subtype)
	assert.Equal(t, domain.DefaultPosition(0), start.Position)

	check, err := wf.Node("check")
	require.NoError(t, err)
	cond, ok := check.Config.(*domain.ConditionConfig)
	require.True(t, ok)
	assert.Equal(t, "{{start.payload}}", cond.Expression)
	assert.Equal(t, "hello", cond.OnTrue)
	assert.Equal(t, "bye", cond.OnFalse)

	hello, err := wf.Node("hello")
	require.NoError(t, err)
	assert.Equal(t, domain.Position{X: 10, Y: 20}, hello.Position)
	assert.Equal(t, "Hello!", hello.Config.(*domain.LogConfig).Message)
}

func TestBuilder_ForEach(t *testing.T) {
	wf := New("loop").
		Add("items", domain.NodeTypeForEach).Set("items", "{{csv.rows}}").Loop("body").Go("done").
		Add("body", domain.NodeTypeLog).
		Add("done", domain.NodeTypeOutput).
		builder.Start("items").
		MustBuild()

	items, err := wf.Node("items")
	require.NoError(t, err)
	assert.Equal(t, "body", items.Config.(*domain.ForEachConfig).BodyStart)
	assert.Equal(t, "done", items.Next)
}

func TestBuilder_Errors(t *testing.T) {
	tests := []struct {
		name    string
		builder *Builder
		want    error
	}{
		{
			name:    "Unknown Type",
			builder: New("x").Add("a", domain.NodeType("fax")).builder,
			want:    domain.ErrUnknownNodeType,
		},
		{
			name:    "Missing Target",
			builder: New("x").Add("a", domain.NodeTypeLog).Go("ghost").builder,
			want:    domain.ErrNodeNotFound,
		},
		{
			name:    "Routing Key",
			builder: New("x").Add("a", domain.NodeTypeLog).Set("on_true", "a").builder,
			want:    domain.ErrRoutingKey,
		},
		{
			name:    "Missing Start",
			builder: New("x").Add("a", domain.NodeTypeLog).builder.Start("ghost"),
			want:    domain.ErrNodeNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder.Build()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBuilder_AddIsIdempotent(t *testing.T) {
	b := New("x")
	first := b.Add("a", domain.NodeTypeLog)
	assert.Same(t, first, b.Add("a", domain.NodeTypeEmail))

	wf := b.MustBuild()
	require.Len(t, wf.Nodes, 1)
	assert.Equal(t, domain.NodeTypeLog, wf.Nodes[0].Type)
}

func TestBuilder_Empty(t *testing.T) {
	wf, err := New("empty").Build()
	require.NoError(t, err)
	assert.Empty(t, wf.Nodes)
	assert.Empty(t, wf.StartNodeID)
}
