package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/pkg/adapters/mcp"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/observability"
	"github.com/aretw0/autoflow/pkg/session"
)

// MCPOptions configure the MCP server.
type MCPOptions struct {
	// Path is an optional workflow document or directory opened as the
	// default session. Without it the built-in workflow is used.
	Path      string
	ID        string
	Transport string
	Addr      string
	Debug     bool
	Version   string
	Settings  Settings
}

// ServeMCP exposes the workflow as MCP tools until ctx is done or stdin closes.
func ServeMCP(ctx context.Context, opts MCPOptions) error {
	// Stdout carries JSON-RPC; logs go to stderr only.
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}
	logger := logging.New(level)

	wf := document.Default()
	if opts.Path != "" {
		loaded, err := LoadWorkflow(ctx, opts.Path, opts.ID)
		if err != nil {
			return err
		}
		wf = loaded
	}
	// Tools address the default session, whatever the document calls itself.
	wf.ID = mcp.DefaultSession

	backend, err := OpenStore(opts.Settings.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if backend.Locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(backend.Locker))
	}
	sessions := session.NewManager(backend.Store, sessionOpts...)
	if _, err := sessions.Create(ctx, wf); err != nil {
		return err
	}

	stepper := NewStepper(opts.Settings, logger, observability.LoggingHooks(logger))
	srv := mcp.NewServer(sessions, stepper,
		mcp.WithVersion(opts.Version),
		mcp.WithMaxSteps(opts.Settings.MaxSteps),
		mcp.WithLogger(logger),
	)

	switch opts.Transport {
	case "", "stdio":
		logger.Info("Starting AutoFlow MCP Server (Stdio)...")
		return srv.ServeStdio()
	case "sse":
		addr := opts.Addr
		if addr == "" {
			addr = ":8080"
		}
		logger.Info("Starting AutoFlow MCP Server (SSE)", "address", addr)
		baseURL := "http://" + addr
		if strings.HasPrefix(addr, ":") {
			baseURL = "http://localhost" + addr
		}
		err := srv.ServeSSE(ctx, addr, baseURL)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("MCP Server stopped gracefully")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", opts.Transport)
	}
}
