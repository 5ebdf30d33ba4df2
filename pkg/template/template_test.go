package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	ctx := map[string]any{
		"trigger": map[string]any{"input": "Simulated User Input"},
		"row":     map[string]any{"name": "Alice", "email": "alice@example.com"},
		"csv-reader::csv-1": map[string]any{
			"rows": []any{
				map[string]any{"name": "Bob"},
			},
		},
		"count": 3,
		"empty": nil,
	}

	tests := []struct {
		name string
		tmpl any
		want string
	}{
		{"plain text", "no placeholders", "no placeholders"},
		{"single path", "Hello {{row.name}}!", "Hello Alice!"},
		{"several paths", "{{row.name}} <{{row.email}}>", "Alice <alice@example.com>"},
		{"whitespace inside braces", "Hi {{ row.name }}", "Hi Alice"},
		{"miss kept verbatim", "Hi {{row.phone}}", "Hi {{row.phone}}"},
		{"miss on unknown root", "{{nope.x}} and {{row.name}}", "{{nope.x}} and Alice"},
		{"nil value is a miss", "{{empty}}", "{{empty}}"},
		{"slice index", "{{csv-reader::csv-1.rows.0.name}}", "Bob"},
		{"number", "n={{count}}", "n=3"},
		{"map rendered as json", "{{row}}", `{"email":"alice@example.com","name":"Alice"}`},
		{"descend into scalar", "{{count.x}}", "{{count.x}}"},
		{"non-string template", 42, "42"},
		{"nil template", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.tmpl, ctx))
		})
	}
}

func TestResolve_IdempotentWithoutPlaceholders(t *testing.T) {
	ctx := map[string]any{"a": "b"}
	once := Resolve("static {text}", ctx)
	assert.Equal(t, once, Resolve(once, ctx))
	assert.Equal(t, "static {text}", once)
}

func TestResolve_EmptyContext(t *testing.T) {
	assert.Equal(t, "{{a.b}}", Resolve("{{a.b}}", nil))
}
