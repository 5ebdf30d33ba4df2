package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/autoflow/internal/logging"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed session lock is held.
const DefaultLockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps open sessions and persists their workflows.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store ports.WorkflowStore

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active per-session locks

	sessMu   sync.RWMutex
	sessions map[string]*Session

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL overrides DefaultLockTTL.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager persisting workflows in store.
func NewManager(store ports.WorkflowStore, opts ...Option) *Manager {
	m := &Manager{
		store:    store,
		locks:    make(map[string]*lockEntry),
		sessions: make(map[string]*Session),
		lockTTL:  DefaultLockTTL,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create opens a session for wf under its own ID and persists the workflow.
// An already open session with that ID has its document replaced.
func (m *Manager) Create(ctx context.Context, wf domain.Workflow) (*Session, error) {
	if wf.ID == "" {
		return nil, errors.New("workflow id is required")
	}
	var sess *Session
	err := m.WithLock(ctx, wf.ID, func(ctx context.Context) error {
		if err := m.store.Save(ctx, wf); err != nil {
			return fmt.Errorf("failed to save workflow: %w", err)
		}
		if existing := m.lookup(wf.ID); existing != nil {
			existing.Document().Replace(wf)
			existing.Reset()
			sess = existing
			return nil
		}
		sess = m.register(wf.ID, wf)
		return nil
	})
	return sess, err
}

// Open returns the open session with the given ID, loading its workflow from
// the store when it is not open yet.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	if sess := m.lookup(id); sess != nil {
		return sess, nil
	}
	var sess *Session
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		if sess = m.lookup(id); sess != nil {
			return nil
		}
		wf, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		sess = m.register(id, wf)
		m.logger.Debug("session opened", "session_id", id)
		return nil
	})
	return sess, err
}

// Get returns an open session without touching the store.
func (m *Manager) Get(id string) (*Session, error) {
	if sess := m.lookup(id); sess != nil {
		return sess, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, id)
}

// Save persists the current workflow of an open session.
func (m *Manager) Save(ctx context.Context, id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		return m.store.Save(ctx, sess.Document().Snapshot())
	})
}

// Delete stops and closes the session and removes its workflow from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		m.sessMu.Lock()
		if sess, ok := m.sessions[id]; ok {
			sess.Stop()
			delete(m.sessions, id)
		}
		m.sessMu.Unlock()
		return m.store.Delete(ctx, id)
	})
}

// List returns the IDs of stored workflows and open sessions.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(stored))
	for _, id := range stored {
		seen[id] = true
	}
	m.sessMu.RLock()
	for id := range m.sessions {
		seen[id] = true
	}
	m.sessMu.RUnlock()

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Store returns the underlying workflow store.
func (m *Manager) Store() ports.WorkflowStore {
	return m.store
}

func (m *Manager) lookup(id string) *Session {
	m.sessMu.RLock()
	defer m.sessMu.RUnlock()
	return m.sessions[id]
}

func (m *Manager) register(id string, wf domain.Workflow) *Session {
	sess := New(id, wf)
	m.sessMu.Lock()
	m.sessions[id] = sess
	m.sessMu.Unlock()
	return sess
}
