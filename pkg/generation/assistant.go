package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/pkg/domain"
)

const (
	// Apology replaces the reply whenever the generator fails.
	Apology = "Error communicating with AI Assistant. Please check your API key."
	// Placeholder replaces the JSON block in the displayed reply.
	Placeholder = "[Workflow JSON Generated]"
	// EmptyReply is shown when the generator answers with nothing.
	EmptyReply = "No response generated."
)

var (
	workflowBlock = regexp.MustCompile("(?s)```json\n(.*?)\n```")
	anyJSONBlock  = regexp.MustCompile("(?s)```json.*?```")
)

// Generator produces the assistant's next reply. The history holds the system
// prompt followed by every prior turn; message is the new user turn.
type Generator interface {
	Send(ctx context.Context, history []Message, message string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, history []Message, message string) (string, error)

func (f GeneratorFunc) Send(ctx context.Context, history []Message, message string) (string, error) {
	return f(ctx, history, message)
}

// Reply is what the user sees after asking.
type Reply struct {
	Text string `json:"text"`
	// Workflow is set only when the reply carried a parseable document.
	Workflow *domain.Workflow `json:"workflow,omitempty"`
}

// Assistant mediates between a Chat and a Generator.
type Assistant struct {
	gen    Generator
	logger *slog.Logger
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = logger
	}
}

// NewAssistant creates an Assistant backed by gen.
func NewAssistant(gen Generator, opts ...Option) *Assistant {
	a := &Assistant{
		gen:    gen,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Ask sends message within chat and records both turns.
// It never fails: generator errors become the Apology text and unparseable
// documents are logged and dropped.
func (a *Assistant) Ask(ctx context.Context, chat *Chat, message string) Reply {
	history := append([]Message{{Role: RoleSystem, Content: chat.System()}}, chat.History()...)
	chat.append(Message{Role: RoleUser, Content: message})

	raw, err := a.gen.Send(ctx, history, message)
	if err != nil {
		a.logger.Error("generator request failed", "err", err)
		chat.append(Message{Role: RoleAssistant, Content: Apology})
		return Reply{Text: Apology}
	}
	if raw == "" {
		raw = EmptyReply
	}

	reply := Reply{Text: StripWorkflow(raw)}
	wf, err := ExtractWorkflow(raw)
	switch {
	case err == nil:
		reply.Workflow = &wf
		if verr := wf.Validate(); verr != nil {
			a.logger.Warn("generated workflow has integrity problems", "workflow_id", wf.ID, "err", verr)
		}
	case hasBlock(raw):
		a.logger.Warn("GenerationParseFailure", "err", err)
	}

	chat.append(Message{Role: RoleAssistant, Content: reply.Text, Generated: reply.Workflow != nil})
	return reply
}

// ExtractWorkflow parses the first ```json block of text as a workflow document.
// Missing positions are filled with the default layout.
func ExtractWorkflow(text string) (domain.Workflow, error) {
	m := workflowBlock.FindStringSubmatch(text)
	if m == nil {
		return domain.Workflow{}, fmt.Errorf("%w: no json block", domain.ErrGenerationParse)
	}
	var wf domain.Workflow
	if err := json.Unmarshal([]byte(m[1]), &wf); err != nil {
		return domain.Workflow{}, fmt.Errorf("%w: %v", domain.ErrGenerationParse, err)
	}
	return wf, nil
}

// StripWorkflow replaces the first ```json block of text with Placeholder.
func StripWorkflow(text string) string {
	loc := anyJSONBlock.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + Placeholder + text[loc[1]:]
}

func hasBlock(text string) bool {
	return anyJSONBlock.MatchString(text)
}
