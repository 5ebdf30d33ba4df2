package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/internal/presentation/graph"
	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/runner"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// DefaultSession is the session tools act on when no "session" argument is given.
const DefaultSession = "flow-1"

const (
	workflowURI = "autoflow://workflow"
	graphURI    = "autoflow://graph"
)

// RunResponse is the structured result of the simulation tools.
type RunResponse struct {
	State domain.RunState  `json:"state" jsonschema_description:"The simulation state after the call"`
	Log   *domain.LogEntry `json:"log,omitempty" jsonschema_description:"The entry produced by a single step"`
}

// Server exposes workflow sessions as an MCP Server.
type Server struct {
	sessions  *session.Manager
	runner    *runner.Runner
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	version  string
	maxSteps int
	observer runner.Observer
	logger   *slog.Logger
}

// WithVersion sets the version reported to clients.
func WithVersion(v string) Option {
	return func(c *serverConfig) { c.version = v }
}

// WithMaxSteps bounds run_simulation.
func WithMaxSteps(n int) Option {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithObserver receives the progress of every simulation.
func WithObserver(o runner.Observer) Option {
	return func(c *serverConfig) { c.observer = o }
}

// WithLogger sets the logger. Stdio transports must not log to stdout.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serverConfig) { c.logger = logger }
}

// NewServer creates a new MCP Server instance.
func NewServer(sessions *session.Manager, stepper *runtime.Stepper, opts ...Option) *Server {
	cfg := serverConfig{
		version:  "dev",
		maxSteps: runner.DefaultMaxSteps,
		observer: runner.NopObserver{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		sessions: sessions,
		runner: runner.New(stepper,
			runner.WithMaxSteps(cfg.maxSteps),
			runner.WithObserver(cfg.observer),
			runner.WithLogger(cfg.logger),
		),
		mcpServer: server.NewMCPServer("autoflow-mcp", cfg.version,
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
		logger: cfg.logger,
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func sessionArg() mcp.ToolOption {
	return mcp.WithString("session", mcp.Description("Session (workflow) ID. Defaults to "+DefaultSession))
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("get_workflow",
		mcp.WithDescription("Get the workflow document of a session as JSON."),
		sessionArg(),
	), s.handleGetWorkflow)

	s.mcpServer.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a disconnected node to the workflow and return its ID."),
		mcp.WithString("type", mcp.Required(), mcp.Description("Node type, e.g. trigger, condition, ai-agent, log")),
		mcp.WithNumber("x", mcp.Description("Canvas x position")),
		mcp.WithNumber("y", mcp.Description("Canvas y position")),
		sessionArg(),
	), s.handleAddNode)

	s.mcpServer.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("Delete a node and every connection pointing at it."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		sessionArg(),
	), s.handleDeleteNode)

	s.mcpServer.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Route a source node to a target node through a handle."),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithString("handle", mcp.Description("default, true, false or loop"), mcp.Enum("default", "true", "false", "loop")),
		sessionArg(),
	), s.handleConnect)

	s.mcpServer.AddTool(mcp.NewTool("set_config",
		mcp.WithDescription("Set one configuration value of a node. JSON values are decoded, anything else is kept as text."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("Node ID")),
		mcp.WithString("key", mcp.Required(), mcp.Description("Config key, e.g. message or expression")),
		mcp.WithString("value", mcp.Required(), mcp.Description("New value")),
		sessionArg(),
	), s.handleSetConfig)

	s.mcpServer.AddTool(mcp.NewTool("run_simulation",
		mcp.WithDescription("Simulate the workflow from its start node until it ends and return the logs."),
		sessionArg(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleRun))

	s.mcpServer.AddTool(mcp.NewTool("step",
		mcp.WithDescription("Execute a single simulation step."),
		sessionArg(),
		mcp.WithOutputSchema[RunResponse](),
	), mcp.NewStructuredToolHandler(s.handleStep))

	s.mcpServer.AddTool(mcp.NewTool("reset_run",
		mcp.WithDescription("Clear the logs and context of the simulation."),
		sessionArg(),
	), s.handleReset)
}

func (s *Server) session(ctx context.Context, request mcp.CallToolRequest) (*session.Session, error) {
	return s.sessions.Open(ctx, request.GetString("session", DefaultSession))
}

// mutate applies fn to the session's document and persists the result.
func (s *Server) mutate(ctx context.Context, request mcp.CallToolRequest, fn func(*session.Session) (string, error)) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := fn(sess)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Save(ctx, sess.ID); err != nil {
		s.logger.Error("MCP: failed to persist workflow", "session_id", sess.ID, "err", err)
		return mcp.NewToolResultError(fmt.Sprintf("persist failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleGetWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	jsonBytes, err := json.Marshal(sess.Document().Snapshot())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleAddNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := request.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pos := domain.Position{
		X: request.GetFloat("x", 0),
		Y: request.GetFloat("y", 0),
	}
	return s.mutate(ctx, request, func(sess *session.Session) (string, error) {
		return sess.Document().AddNode(domain.NodeType(t), pos)
	})
}

func (s *Server) handleDeleteNode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.mutate(ctx, request, func(sess *session.Session) (string, error) {
		sess.Document().DeleteNode(id)
		return fmt.Sprintf("deleted %s", id), nil
	})
}

func (s *Server) handleConnect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source, err := request.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := request.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	handle := domain.Handle(request.GetString("handle", string(domain.HandleDefault)))
	return s.mutate(ctx, request, func(sess *session.Session) (string, error) {
		if err := sess.Document().ConnectNodes(source, target, handle); err != nil {
			return "", err
		}
		return fmt.Sprintf("connected %s -[%s]-> %s", source, handle, target), nil
	})
}

func (s *Server) handleSetConfig(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("node_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, err := request.RequireString("key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw := request.GetString("value", "")

	var value any = raw
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		value = decoded
	}
	return s.mutate(ctx, request, func(sess *session.Session) (string, error) {
		if err := sess.Document().SetConfigValue(id, key, value); err != nil {
			return "", err
		}
		return fmt.Sprintf("set %s.%s", id, key), nil
	})
}

func (s *Server) handleRun(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	sess, err := s.session(ctx, request)
	if err != nil {
		return RunResponse{}, err
	}
	state, err := s.runner.Run(ctx, sess)
	if err != nil {
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}
	return RunResponse{State: state}, nil
}

func (s *Server) handleStep(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (RunResponse, error) {
	sess, err := s.session(ctx, request)
	if err != nil {
		return RunResponse{}, err
	}
	entry, err := s.runner.StepOnce(ctx, sess)
	if err != nil {
		return RunResponse{}, fmt.Errorf("step failed: %w", err)
	}
	return RunResponse{State: sess.State(), Log: &entry}, nil
}

func (s *Server) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.session(ctx, request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	sess.Reset()
	return mcp.NewToolResultText("simulation reset"), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(workflowURI, "Current Workflow Document",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sess, err := s.sessions.Open(ctx, DefaultSession)
		if err != nil {
			return nil, fmt.Errorf("failed to open workflow: %w", err)
		}
		jsonBytes, err := json.MarshalIndent(sess.Document().Snapshot(), "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      workflowURI,
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Workflow Mermaid Diagram",
		mcp.WithMIMEType("text/vnd.mermaid"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		sess, err := s.sessions.Open(ctx, DefaultSession)
		if err != nil {
			return nil, fmt.Errorf("failed to open workflow: %w", err)
		}
		var overlay *graph.GraphOverlay
		if state := sess.State(); len(state.Logs) > 0 {
			overlay = graph.OverlayFor(state)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/vnd.mermaid",
				Text:     graph.GenerateMermaid(sess.Document().Snapshot(), overlay),
			},
		}, nil
	})
}
