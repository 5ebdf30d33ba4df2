package cli

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/autoflow/internal/adapters/file"
	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/internal/runtime"
	loamadapter "github.com/aretw0/autoflow/pkg/adapters/loam"
	"github.com/aretw0/autoflow/pkg/adapters/memory"
	redisadapter "github.com/aretw0/autoflow/pkg/adapters/redis"
	sqliteadapter "github.com/aretw0/autoflow/pkg/adapters/sqlite"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/handlers"
	"github.com/aretw0/autoflow/pkg/persistence/middleware"
	"github.com/aretw0/autoflow/pkg/ports"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"
)

// NewStepper wires the default handlers with the configured delay and seed.
func NewStepper(s Settings, logger *slog.Logger, hooks domain.LifecycleHooks) *runtime.Stepper {
	reg := handlers.NewDefaultRegistry(
		handlers.WithDecider(handlers.NewRandomDecider(s.Seed)),
	)
	return runtime.NewStepper(reg,
		runtime.WithDelay(s.StepDelay),
		runtime.WithLogger(logger),
		runtime.WithLifecycleHooks(hooks),
	)
}

// Backend is an opened workflow store and its optional distributed locker.
type Backend struct {
	Store  ports.WorkflowStore
	Locker ports.DistributedLocker
	Close  func() error
}

// OpenStore opens the configured workflow store. Config values whose keys
// match s.Redact are masked before they are persisted.
func OpenStore(s StoreSettings) (*Backend, error) {
	backend, err := openBackend(s)
	if err != nil || len(s.Redact) == 0 {
		return backend, err
	}
	redact, err := middleware.NewRedactMiddleware(s.Redact)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	backend.Store = middleware.Chain(backend.Store, redact)
	return backend, nil
}

func openBackend(s StoreSettings) (*Backend, error) {
	nop := func() error { return nil }

	switch s.Backend {
	case "", "memory":
		return &Backend{Store: memory.NewStore(), Close: nop}, nil

	case "file":
		return &Backend{Store: file.New(s.Path), Close: nop}, nil

	case "sqlite":
		path := s.Path
		if path == "" {
			path = "autoflow.db"
		}
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		store, err := sqliteadapter.New(db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &Backend{Store: store, Close: db.Close}, nil

	case "redis":
		addr := s.RedisAddr
		if addr == "" {
			addr = "localhost:6379"
		}
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: s.RedisPassword,
			DB:       s.RedisDB,
		})
		var opts []redisadapter.Option
		if s.TTL > 0 {
			opts = append(opts, redisadapter.WithTTL(s.TTL))
		}
		return &Backend{
			Store:  redisadapter.NewFromClient(client, opts...),
			Locker: redisadapter.NewLocker(client, "autoflow:"),
			Close:  client.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q (memory, file, redis, sqlite)", s.Backend)
	}
}

// LoadWorkflow reads a workflow from a document file, or from a directory of
// documents when path is a directory. id selects the document in a directory
// and may be empty when it holds exactly one workflow.
func LoadWorkflow(ctx context.Context, path, id string) (domain.Workflow, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Workflow{}, err
	}
	if !info.IsDir() {
		return document.Load(path)
	}

	src, err := loamadapter.Open(path)
	if err != nil {
		return domain.Workflow{}, err
	}
	if id == "" {
		ids, err := src.List(ctx)
		if err != nil {
			return domain.Workflow{}, err
		}
		if len(ids) != 1 {
			return domain.Workflow{}, fmt.Errorf("directory %s holds %d workflows, choose one with --id", path, len(ids))
		}
		id = ids[0]
	}
	return src.Load(ctx, id)
}

// createLogger writes text logs to stderr in debug mode and discards them otherwise.
func createLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}
