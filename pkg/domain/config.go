package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Config is the per-type configuration of a node.
//
// Each node type has its own variant carrying only the fields it understands.
// Keys a variant does not recognize are kept in its Extra bag and written back
// on encode, so documents produced by newer editors survive a round trip.
type Config interface {
	// NodeType returns the node type this variant belongs to.
	NodeType() NodeType
	// Values returns the wire form of the configuration, including unknown keys.
	Values() map[string]any
}

// Routing configuration keys. They are owned by the graph mutation operations.
// KeyNext is the node-level successor; it is reserved so a config entry cannot
// shadow it.
const (
	KeyNext      = "next"
	KeyOnTrue    = "on_true"
	KeyOnFalse   = "on_false"
	KeyBodyStart = "body_start"
)

// IsRoutingKey reports whether key holds a routing reference.
func IsRoutingKey(key string) bool {
	switch key {
	case KeyNext, KeyOnTrue, KeyOnFalse, KeyBodyStart:
		return true
	}
	return false
}

type TriggerConfig struct {
	Extra map[string]any `mapstructure:",remain"`
}

func (c *TriggerConfig) NodeType() NodeType     { return NodeTypeTrigger }
func (c *TriggerConfig) Values() map[string]any { return extra(c.Extra) }

// ConditionConfig routes to OnTrue or OnFalse depending on Expression.
type ConditionConfig struct {
	Expression string         `mapstructure:"expression"`
	OnTrue     string         `mapstructure:"on_true"`
	OnFalse    string         `mapstructure:"on_false"`
	Extra      map[string]any `mapstructure:",remain"`
}

func (c *ConditionConfig) NodeType() NodeType { return NodeTypeCondition }
func (c *ConditionConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "expression", c.Expression)
	putString(m, KeyOnTrue, c.OnTrue)
	putString(m, KeyOnFalse, c.OnFalse)
	return m
}

// ForEachConfig enters BodyStart when set; the node's Next is the loop-done successor.
type ForEachConfig struct {
	BodyStart string         `mapstructure:"body_start"`
	Items     any            `mapstructure:"items"`
	Extra     map[string]any `mapstructure:",remain"`
}

func (c *ForEachConfig) NodeType() NodeType { return NodeTypeForEach }
func (c *ForEachConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, KeyBodyStart, c.BodyStart)
	if c.Items != nil {
		m["items"] = deepCopy(c.Items)
	}
	return m
}

type AgentConfig struct {
	SystemPrompt string         `mapstructure:"system_prompt"`
	Model        string         `mapstructure:"model"`
	Extra        map[string]any `mapstructure:",remain"`
}

func (c *AgentConfig) NodeType() NodeType { return NodeTypeAIAgent }
func (c *AgentConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "system_prompt", c.SystemPrompt)
	putString(m, "model", c.Model)
	return m
}

type RAGAgentConfig struct {
	SystemPrompt string         `mapstructure:"system_prompt"`
	IndexID      string         `mapstructure:"index_id"`
	Model        string         `mapstructure:"model"`
	Extra        map[string]any `mapstructure:",remain"`
}

func (c *RAGAgentConfig) NodeType() NodeType { return NodeTypeRAGAgent }
func (c *RAGAgentConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "system_prompt", c.SystemPrompt)
	putString(m, "index_id", c.IndexID)
	putString(m, "model", c.Model)
	return m
}

type WhatsAppConfig struct {
	To              string         `mapstructure:"to"`
	MessageTemplate string         `mapstructure:"message_template"`
	Extra           map[string]any `mapstructure:",remain"`
}

func (c *WhatsAppConfig) NodeType() NodeType { return NodeTypeWhatsApp }
func (c *WhatsAppConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "to", c.To)
	putString(m, "message_template", c.MessageTemplate)
	return m
}

type EmailConfig struct {
	To           string         `mapstructure:"to"`
	Subject      string         `mapstructure:"subject"`
	BodyTemplate string         `mapstructure:"body_template"`
	Extra        map[string]any `mapstructure:",remain"`
}

func (c *EmailConfig) NodeType() NodeType { return NodeTypeEmail }
func (c *EmailConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "to", c.To)
	putString(m, "subject", c.Subject)
	putString(m, "body_template", c.BodyTemplate)
	return m
}

type CSVReaderConfig struct {
	Path  string         `mapstructure:"path"`
	Extra map[string]any `mapstructure:",remain"`
}

func (c *CSVReaderConfig) NodeType() NodeType { return NodeTypeCSVReader }
func (c *CSVReaderConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "path", c.Path)
	return m
}

type PDFReaderConfig struct {
	Path  string         `mapstructure:"path"`
	Extra map[string]any `mapstructure:",remain"`
}

func (c *PDFReaderConfig) NodeType() NodeType { return NodeTypePDFReader }
func (c *PDFReaderConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "path", c.Path)
	return m
}

type ChunkSplitterConfig struct {
	ChunkSize int            `mapstructure:"chunk_size"`
	Overlap   int            `mapstructure:"overlap"`
	Extra     map[string]any `mapstructure:",remain"`
}

func (c *ChunkSplitterConfig) NodeType() NodeType { return NodeTypeChunkSplitter }
func (c *ChunkSplitterConfig) Values() map[string]any {
	m := extra(c.Extra)
	if c.ChunkSize != 0 {
		m["chunk_size"] = c.ChunkSize
	}
	if c.Overlap != 0 {
		m["overlap"] = c.Overlap
	}
	return m
}

type EmbeddingIndexConfig struct {
	IndexID string         `mapstructure:"index_id"`
	Extra   map[string]any `mapstructure:",remain"`
}

func (c *EmbeddingIndexConfig) NodeType() NodeType { return NodeTypeEmbeddingIndex }
func (c *EmbeddingIndexConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "index_id", c.IndexID)
	return m
}

type HTTPRequestConfig struct {
	Method string         `mapstructure:"method"`
	URL    string         `mapstructure:"url"`
	Extra  map[string]any `mapstructure:",remain"`
}

func (c *HTTPRequestConfig) NodeType() NodeType { return NodeTypeHTTPRequest }
func (c *HTTPRequestConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "method", c.Method)
	putString(m, "url", c.URL)
	return m
}

type LogConfig struct {
	Message string         `mapstructure:"message"`
	Extra   map[string]any `mapstructure:",remain"`
}

func (c *LogConfig) NodeType() NodeType { return NodeTypeLog }
func (c *LogConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "message", c.Message)
	return m
}

type OutputConfig struct {
	Key   string         `mapstructure:"key"`
	Extra map[string]any `mapstructure:",remain"`
}

func (c *OutputConfig) NodeType() NodeType { return NodeTypeOutput }
func (c *OutputConfig) Values() map[string]any {
	m := extra(c.Extra)
	putString(m, "key", c.Key)
	return m
}

// NewConfig returns the empty configuration variant for t.
func NewConfig(t NodeType) (Config, error) {
	switch t {
	case NodeTypeTrigger:
		return &TriggerConfig{}, nil
	case NodeTypeCondition:
		return &ConditionConfig{}, nil
	case NodeTypeForEach:
		return &ForEachConfig{}, nil
	case NodeTypeAIAgent:
		return &AgentConfig{}, nil
	case NodeTypeRAGAgent:
		return &RAGAgentConfig{}, nil
	case NodeTypeWhatsApp:
		return &WhatsAppConfig{}, nil
	case NodeTypeEmail:
		return &EmailConfig{}, nil
	case NodeTypeCSVReader:
		return &CSVReaderConfig{}, nil
	case NodeTypePDFReader:
		return &PDFReaderConfig{}, nil
	case NodeTypeChunkSplitter:
		return &ChunkSplitterConfig{}, nil
	case NodeTypeEmbeddingIndex:
		return &EmbeddingIndexConfig{}, nil
	case NodeTypeHTTPRequest:
		return &HTTPRequestConfig{}, nil
	case NodeTypeLog:
		return &LogConfig{}, nil
	case NodeTypeOutput:
		return &OutputConfig{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
}

// DecodeConfig builds the configuration variant for t from its open wire mapping.
// Scalar values are converted leniently (e.g. "500" into an int field).
func DecodeConfig(t NodeType, raw map[string]any) (Config, error) {
	cfg, err := NewConfig(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return cfg, nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid %s config: %w", t, err)
	}
	return cfg, nil
}

// CloneConfig returns a deep copy of c.
func CloneConfig(c Config) Config {
	clone, err := DecodeConfig(c.NodeType(), c.Values())
	if err != nil {
		return c
	}
	return clone
}

// WithValue returns a copy of c with key set to value. An empty string removes the key.
func WithValue(c Config, key string, value any) (Config, error) {
	values := c.Values()
	if s, ok := value.(string); ok && s == "" {
		delete(values, key)
	} else if value == nil {
		delete(values, key)
	} else {
		values[key] = value
	}
	return DecodeConfig(c.NodeType(), values)
}

func extra(src map[string]any) map[string]any {
	m := make(map[string]any, len(src))
	for k, v := range src {
		m[k] = deepCopy(v)
	}
	return m
}

func putString(m map[string]any, key, value string) {
	if value != "" {
		m[key] = value
	}
}

func deepCopy(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, sub := range val {
			m[k] = deepCopy(sub)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, sub := range val {
			s[i] = deepCopy(sub)
		}
		return s
	default:
		return v
	}
}
