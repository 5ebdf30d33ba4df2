// Package template resolves {{path.to.value}} placeholders against an execution context.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var placeholder = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Resolve replaces every {{path}} placeholder in tmpl with the value found at the
// dot-separated path inside ctx. A placeholder whose path does not resolve is left
// verbatim. Non-string templates are rendered with fmt.Sprint first.
func Resolve(tmpl any, ctx map[string]any) string {
	var text string
	switch v := tmpl.(type) {
	case nil:
		return ""
	case string:
		text = v
	default:
		text = fmt.Sprint(v)
	}

	return placeholder.ReplaceAllStringFunc(text, func(match string) string {
		path := strings.TrimSpace(match[2 : len(match)-2])
		value, ok := Lookup(ctx, path)
		if !ok {
			return match
		}
		return render(value)
	})
}

// Lookup walks a dot-separated path through nested maps and slices.
// Numeric segments index into slices.
func Lookup(ctx map[string]any, path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = ctx
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]string:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		case []any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		case []map[string]any:
			i, err := strconv.Atoi(segment)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			current = node[i]
		default:
			return nil, false
		}
	}
	if current == nil {
		return nil, false
	}
	return current, true
}

func render(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any, map[string]string, []any, []map[string]any, []string:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
