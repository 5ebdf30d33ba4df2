package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/autoflow/pkg/domain"
)

// Store implements ports.WorkflowStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]domain.Workflow
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]domain.Workflow),
	}
}

// Save keeps a private copy of the workflow.
func (s *Store) Save(ctx context.Context, wf domain.Workflow) error {
	if wf.ID == "" {
		return fmt.Errorf("workflow id cannot be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[wf.ID] = wf.Clone()
	return nil
}

// Load returns a copy so callers can't mutate stored workflows.
func (s *Store) Load(ctx context.Context, id string) (domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.data[id]
	if !ok {
		return domain.Workflow{}, domain.ErrWorkflowNotFound
	}
	return wf.Clone(), nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, id)
	return nil
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
