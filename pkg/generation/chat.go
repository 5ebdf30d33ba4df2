// Package generation turns natural-language requests into workflow documents.
//
// The language model itself is a black box behind Generator. A Chat holds one
// conversation explicitly, so several users never share assistant state.
package generation

import (
	"sync"
	"time"
)

// SystemPrompt primes the model with the document schema and node catalogue.
const SystemPrompt = `You are an expert system architect and product assistant for "AutoFlow", an AI Automation Simulation Platform.
The platform is a VISUAL AI AUTOMATION & SIMULATION TOOL, similar to n8n or Node-RED.

Your capabilities:
1. Interpret natural language requests to design workflows.
2. Generate JSON configurations for workflows based on user requests.
3. Explain node behaviors and RAG pipelines.

Workflows follow this structure:
{
  "id": "string",
  "name": "string",
  "description": "string",
  "start_node_id": "string",
  "nodes": [ { "id": "...", "type": "...", "config": {...}, "next": "..." } ]
}

Node Types:
- trigger (manual, webhook, schedule)
- csv-reader, pdf-reader
- chunk-splitter, embedding-index (RAG)
- ai-agent (LLM), rag-ai-agent (RAG LLM)
- for-each, condition (routing)
- whatsapp, email, http-request (Simulated targets)
- log, output

When the user asks to create a flow, output the JSON in a markdown code block labeled 'json'.
Ensure the JSON is valid and follows the schema.
Always favor "simulate" mode in configs.
Make reasonable assumptions for missing config values.`

// Greeting opens every conversation.
const Greeting = "Hello! I'm your AutoFlow architect. Describe a workflow you need, and I'll design it for you."

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
	// Generated is set on assistant turns that produced a workflow.
	Generated bool `json:"generated,omitempty"`
}

// Chat is a single conversation with the assistant.
type Chat struct {
	mu      sync.Mutex
	system  string
	history []Message
	now     func() time.Time
}

// ChatOption configures a Chat.
type ChatOption func(*Chat)

// WithSystemPrompt replaces SystemPrompt for this chat.
func WithSystemPrompt(prompt string) ChatOption {
	return func(c *Chat) {
		c.system = prompt
	}
}

// WithChatClock sets the time source for message timestamps.
func WithChatClock(now func() time.Time) ChatOption {
	return func(c *Chat) {
		c.now = now
	}
}

// NewChat starts a conversation containing only the greeting.
func NewChat(opts ...ChatOption) *Chat {
	c := &Chat{
		system: SystemPrompt,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.Reset()
	return c
}

// Reset drops every turn except the greeting.
func (c *Chat) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = []Message{{Role: RoleAssistant, Content: Greeting, Time: c.now()}}
}

// System returns the system prompt.
func (c *Chat) System() string {
	return c.system
}

// History returns a copy of the conversation so far.
func (c *Chat) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

func (c *Chat) append(m Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if m.Time.IsZero() {
		m.Time = c.now()
	}
	c.history = append(c.history, m)
}
