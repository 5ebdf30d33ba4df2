// Package loam reads workflow documents from a directory through the Loam library.
//
// Any JSON, YAML or Markdown (front matter) file in the directory holding a
// workflow document is exposed as a workflow. The directory is opened read-only.
package loam

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/loam"
)

// WorkflowMetadata is the top-level shape of a workflow document.
type WorkflowMetadata struct {
	ID          string           `json:"id" mapstructure:"id"`
	Name        string           `json:"name" mapstructure:"name"`
	Description string           `json:"description" mapstructure:"description"`
	StartNodeID string           `json:"start_node_id" mapstructure:"start_node_id"`
	Nodes       []map[string]any `json:"nodes" mapstructure:"nodes"`
}

// Source adapts a Loam repository to ports.WorkflowSource.
type Source struct {
	Repo *loam.TypedRepository[WorkflowMetadata]
}

// New wraps an existing typed repository.
func New(repo *loam.TypedRepository[WorkflowMetadata]) *Source {
	return &Source{Repo: repo}
}

// Open initializes a read-only Loam repository rooted at dir.
// Strict mode keeps integers as json.Number instead of float64.
func Open(dir string) (*Source, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[WorkflowMetadata](repo)), nil
}

// Load reads and decodes the document with the given ID.
func (s *Source) Load(ctx context.Context, id string) (domain.Workflow, error) {
	doc, err := s.Repo.Get(ctx, id)
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("%w: %s (%v)", domain.ErrWorkflowNotFound, id, err)
	}

	meta := doc.Data
	if meta.ID == "" {
		meta.ID = trimExtension(doc.ID)
	}
	if meta.Description == "" {
		meta.Description = strings.TrimSpace(doc.Content)
	}
	return decode(meta)
}

// List returns the IDs of every document holding a workflow.
func (s *Source) List(ctx context.Context) ([]string, error) {
	docs, err := s.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Data.Nodes) == 0 {
			continue
		}
		id := trimExtension(doc.ID)
		if existing, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: workflow '%s' is defined in both '%s' and '%s'", id, existing, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Watch emits the ID of every document that changes on disk.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	events, err := s.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// decode routes the metadata through the workflow JSON codec so that config
// variants and default positions are applied exactly as for any other document.
func decode(meta WorkflowMetadata) (domain.Workflow, error) {
	nodes := make([]any, len(meta.Nodes))
	for i, n := range meta.Nodes {
		nodes[i] = normalize(n)
	}
	raw, err := json.Marshal(map[string]any{
		"id":            meta.ID,
		"name":          meta.Name,
		"description":   meta.Description,
		"start_node_id": meta.StartNodeID,
		"nodes":         nodes,
	})
	if err != nil {
		return domain.Workflow{}, fmt.Errorf("failed to encode workflow %s: %w", meta.ID, err)
	}

	var wf domain.Workflow
	if err := json.Unmarshal(raw, &wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("invalid workflow %s: %w", meta.ID, err)
	}
	return wf, nil
}

// normalize converts YAML-style map[any]any values into JSON-encodable maps.
func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[k] = normalize(sub)
		}
		return m
	case map[any]any:
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[fmt.Sprintf("%v", k)] = normalize(sub)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, sub := range val {
			s[i] = normalize(sub)
		}
		return s
	default:
		return v
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
