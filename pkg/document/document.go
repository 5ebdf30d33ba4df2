// Package document reads and writes workflow documents in JSON and YAML.
//
// Both formats share the JSON wire layout: snake_case keys, a "nodes" array and
// a free-form "config" object per node. Nodes without a position receive the
// default canvas layout on decode.
package document

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/autoflow/pkg/domain"
	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument reports input that is not a well-formed workflow document.
var ErrInvalidDocument = errors.New("invalid workflow document")

// Format identifies a document encoding.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

// FormatFor picks the encoding from a file extension. Unknown extensions are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// Decode parses a workflow document.
func Decode(data []byte, format Format) (domain.Workflow, error) {
	if format == YAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return domain.Workflow{}, err
		}
		data = converted
	}

	var wf domain.Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return wf, nil
}

// Encode renders a workflow document, indented for humans.
func Encode(wf domain.Workflow, format Format) ([]byte, error) {
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}
	if format == YAML {
		return jsonToYAML(data)
	}
	return append(data, '\n'), nil
}

// Load reads a document from disk, choosing the format by extension.
func Load(path string) (domain.Workflow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	wf, err := Decode(data, FormatFor(path))
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("%s: %w", path, err)
	}
	return wf, nil
}

// Save writes a document to disk, choosing the format by extension.
func Save(path string, wf domain.Workflow) error {
	data, err := Encode(wf, FormatFor(path))
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: yaml: %w", ErrInvalidDocument, err)
	}
	out, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: yaml is not JSON compatible: %w", ErrInvalidDocument, err)
	}
	return out, nil
}

// jsonToYAML re-emits JSON as block-style YAML, keeping key order.
func jsonToYAML(data []byte) ([]byte, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("failed to convert to yaml: %w", err)
	}
	resetStyle(&root)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&root); err != nil {
		return nil, fmt.Errorf("failed to convert to yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resetStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		resetStyle(c)
	}
}
