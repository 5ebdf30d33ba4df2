package ports

import (
	"context"

	"github.com/aretw0/autoflow/pkg/domain"
)

// WorkflowStore persists workflow documents.
type WorkflowStore interface {
	// Save creates or replaces the workflow with the same ID.
	Save(ctx context.Context, wf domain.Workflow) error

	// Load retrieves a workflow by ID.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Load(ctx context.Context, id string) (domain.Workflow, error)

	// Delete removes a workflow. Deleting a missing workflow is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of every stored workflow.
	List(ctx context.Context) ([]string, error)
}

// WorkflowSource is a read-only catalogue of workflows, e.g. a directory of documents.
type WorkflowSource interface {
	Load(ctx context.Context, id string) (domain.Workflow, error)
	List(ctx context.Context) ([]string, error)
}

// Watchable is implemented by sources that can report changes to their documents.
type Watchable interface {
	// Watch emits the ID of every document that changed until ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
