package domain

// NodeType is the closed set of automation step kinds.
type NodeType string

const (
	NodeTypeTrigger        NodeType = "trigger"
	NodeTypeCSVReader      NodeType = "csv-reader"
	NodeTypePDFReader      NodeType = "pdf-reader"
	NodeTypeChunkSplitter  NodeType = "chunk-splitter"
	NodeTypeEmbeddingIndex NodeType = "embedding-index"
	NodeTypeForEach        NodeType = "for-each"
	NodeTypeCondition      NodeType = "condition"
	NodeTypeAIAgent        NodeType = "ai-agent"
	NodeTypeRAGAgent       NodeType = "rag-ai-agent"
	NodeTypeWhatsApp       NodeType = "whatsapp"
	NodeTypeEmail          NodeType = "email"
	NodeTypeHTTPRequest    NodeType = "http-request"
	NodeTypeLog            NodeType = "log"
	NodeTypeOutput         NodeType = "output"
)

// NodeTypes lists every known node type in palette order.
var NodeTypes = []NodeType{
	NodeTypeTrigger,
	NodeTypeCSVReader,
	NodeTypePDFReader,
	NodeTypeChunkSplitter,
	NodeTypeEmbeddingIndex,
	NodeTypeForEach,
	NodeTypeCondition,
	NodeTypeAIAgent,
	NodeTypeRAGAgent,
	NodeTypeWhatsApp,
	NodeTypeEmail,
	NodeTypeHTTPRequest,
	NodeTypeLog,
	NodeTypeOutput,
}

// Valid reports whether t belongs to the closed set of node types.
func (t NodeType) Valid() bool {
	for _, known := range NodeTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Trigger subtypes. Only meaningful for NodeTypeTrigger.
const (
	SubtypeManual   = "manual"
	SubtypeWebhook  = "webhook"
	SubtypeSchedule = "schedule"
)

// Handle names the outgoing port a connection is drawn from.
type Handle string

const (
	HandleDefault Handle = "default"
	HandleTrue    Handle = "true"
	HandleFalse   Handle = "false"
	HandleLoop    Handle = "loop"
)

// Position is the canvas location of a node. It is opaque to execution.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node is a single automation step in a workflow graph.
type Node struct {
	ID      string
	Type    NodeType
	Subtype string
	Config  Config
	// Next is the default successor. Empty means none.
	Next     string
	Position Position
}

// Route is a single outgoing routing reference of a node.
type Route struct {
	Handle Handle
	Target string
}

// Routes returns the non-empty routing references held by the node.
func (n Node) Routes() []Route {
	var routes []Route
	switch c := n.Config.(type) {
	case *ConditionConfig:
		if c.OnTrue != "" {
			routes = append(routes, Route{Handle: HandleTrue, Target: c.OnTrue})
		}
		if c.OnFalse != "" {
			routes = append(routes, Route{Handle: HandleFalse, Target: c.OnFalse})
		}
	case *ForEachConfig:
		if c.BodyStart != "" {
			routes = append(routes, Route{Handle: HandleLoop, Target: c.BodyStart})
		}
	}
	if n.Next != "" {
		routes = append(routes, Route{Handle: HandleDefault, Target: n.Next})
	}
	return routes
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Config != nil {
		out.Config = CloneConfig(n.Config)
	}
	return out
}
