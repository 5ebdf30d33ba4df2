package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned when a node ID cannot be found in a workflow.
var ErrNodeNotFound = errors.New("node not found")

// ErrRunAlreadyTerminated is returned when a step is requested without a current node.
var ErrRunAlreadyTerminated = errors.New("run already terminated")

// ErrRunInProgress is returned when a run is started while another is still running.
var ErrRunInProgress = errors.New("run already in progress")

// ErrSessionNotFound is returned when a session ID is not open.
var ErrSessionNotFound = errors.New("session not found")

// ErrUnknownNodeType is returned when a node declares a type outside the closed set.
var ErrUnknownNodeType = errors.New("unknown node type")

// ErrRoutingKey is returned when a routing reference is edited as a plain config value.
var ErrRoutingKey = errors.New("routing keys can only be changed by connecting nodes")

// ErrUnknownHandle is returned when a connection names a handle outside the closed set.
var ErrUnknownHandle = errors.New("unknown connection handle")

// ErrGenerationParse is returned when an assistant reply carries a malformed workflow block.
var ErrGenerationParse = errors.New("generation parse failure")

// ErrWorkflowNotFound is returned when a workflow ID cannot be found in a store.
var ErrWorkflowNotFound = errors.New("workflow not found")

// ValidationError aggregates the integrity problems found in a workflow.
type ValidationError struct {
	WorkflowID string
	Problems   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("workflow %q is invalid: %s", e.WorkflowID, strings.Join(e.Problems, "; "))
}
