package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/autoflow/internal/logging"
	httpadapter "github.com/aretw0/autoflow/pkg/adapters/http"
	loamadapter "github.com/aretw0/autoflow/pkg/adapters/loam"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/generation"
	"github.com/aretw0/autoflow/pkg/observability"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
)

// shutdownTimeout is how long outstanding requests get once a shutdown starts.
const shutdownTimeout = 5 * time.Second

// ServeOptions configure the HTTP server.
type ServeOptions struct {
	Settings Settings
	Debug    bool
	// ChatScript is a file of canned assistant replies separated by lines
	// holding only "---". Without it POST /chat is disabled.
	ChatScript string
	Stdout     io.Writer
}

// Serve runs the HTTP API until ctx is done, then shuts down gracefully.
func Serve(ctx context.Context, opts ServeOptions) error {
	logger, err := serverLogger(opts.Settings.LogLevel, opts.Debug)
	if err != nil {
		return err
	}
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	backend, err := OpenStore(opts.Settings.Store)
	if err != nil {
		return err
	}
	defer backend.Close()

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	sessionOpts := []session.Option{session.WithLogger(logger)}
	if backend.Locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(backend.Locker))
	}
	sessions := session.NewManager(backend.Store, sessionOpts...)

	if err := preload(ctx, sessions, opts.Settings.Server.Library, logger); err != nil {
		return err
	}

	serverOpts := []httpadapter.Option{
		httpadapter.WithLogger(logger),
		httpadapter.WithMaxSteps(opts.Settings.MaxSteps),
		httpadapter.WithObserver(metrics),
	}
	if opts.ChatScript != "" {
		replies, err := readChatScript(opts.ChatScript)
		if err != nil {
			return err
		}
		assistant := generation.NewAssistant(generation.NewScriptedGenerator(replies...), generation.WithLogger(logger))
		serverOpts = append(serverOpts, httpadapter.WithAssistant(assistant))
	}

	stepper := NewStepper(opts.Settings, logger, observability.ChainHooks(
		observability.LoggingHooks(logger),
		metrics.Hooks(),
	))
	api := httpadapter.NewServer(sessions, stepper, serverOpts...)
	defer api.Close()

	srv := &http.Server{
		Addr:    opts.Settings.Server.Addr,
		Handler: api.Handler(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage(out, "Starting AutoFlow Server on %s (store: %s)", srv.Addr, storeName(opts.Settings.Store))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case <-ctx.Done():
		printSystemMessage(out, "Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("error killing server: %w", err)
			}
		}
		printSystemMessage(out, "AutoFlow Server stopped gracefully")
		return nil
	}
}

// preload makes sure the default session exists and imports the documents of
// library that the store does not hold yet.
func preload(ctx context.Context, sessions *session.Manager, library string, logger *slog.Logger) error {
	if library != "" {
		src, err := loamadapter.Open(library)
		if err != nil {
			return fmt.Errorf("failed to open library: %w", err)
		}
		ids, err := src.List(ctx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := sessions.Store().Load(ctx, id); err == nil {
				continue
			}
			wf, err := src.Load(ctx, id)
			if err != nil {
				logger.Warn("Skipping library document", "workflow_id", id, "err", err)
				continue
			}
			if _, err := sessions.Create(ctx, wf); err != nil {
				return err
			}
			logger.Info("Imported workflow", "workflow_id", id)
		}
	}

	_, err := sessions.Open(ctx, httpadapter.DefaultSession)
	if errors.Is(err, domain.ErrWorkflowNotFound) {
		_, err = sessions.Create(ctx, document.Default())
	}
	return err
}

func readChatScript(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chat script: %w", err)
	}
	var replies []string
	for _, part := range strings.Split(string(data), "\n---\n") {
		if reply := strings.TrimSpace(part); reply != "" {
			replies = append(replies, reply)
		}
	}
	if len(replies) == 0 {
		return nil, fmt.Errorf("chat script %s holds no replies", path)
	}
	return replies, nil
}

func serverLogger(level string, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.NewJSON(os.Stderr, slog.LevelDebug), nil
	}
	lvl, err := logging.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	return logging.NewJSON(os.Stderr, lvl), nil
}

func storeName(s StoreSettings) string {
	if s.Backend == "" {
		return "memory"
	}
	return s.Backend
}
