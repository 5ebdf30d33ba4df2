package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/aretw0/autoflow/internal/presentation/graph"
	"github.com/aretw0/autoflow/internal/runtime"
	"github.com/aretw0/autoflow/pkg/document"
	"github.com/aretw0/autoflow/pkg/domain"
	"github.com/aretw0/autoflow/pkg/generation"
	"github.com/aretw0/autoflow/pkg/runner"
	"github.com/aretw0/autoflow/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultSession is the session used by requests without a ?session= parameter.
const DefaultSession = "flow-1"

// maxBodySize bounds request bodies, workflow documents included.
const maxBodySize = 1 << 20

// Server exposes workflow sessions over HTTP.
type Server struct {
	Sessions  *session.Manager
	Streams   *StreamManager
	Assistant *generation.Assistant

	runner         *runner.Runner
	stepper        *runtime.Stepper
	observers      []runner.Observer
	maxSteps       int
	metrics        http.Handler
	defaultSession string
	logger         *slog.Logger

	// runs are the simulations started by POST /run/start.
	ctx    context.Context
	cancel context.CancelFunc
	runs   sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithAssistant enables POST /chat.
func WithAssistant(a *generation.Assistant) Option {
	return func(s *Server) {
		s.Assistant = a
	}
}

// WithObserver adds an observer notified of every run alongside the SSE streams.
func WithObserver(o runner.Observer) Option {
	return func(s *Server) {
		s.observers = append(s.observers, o)
	}
}

// WithMaxSteps bounds the runs started through the API.
func WithMaxSteps(n int) Option {
	return func(s *Server) {
		s.maxSteps = n
	}
}

// WithMetricsHandler replaces the handler served at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithDefaultSession changes the session used when a request names none.
func WithDefaultSession(id string) Option {
	return func(s *Server) {
		s.defaultSession = id
	}
}

// WithLogger sets the request logger. The default writes JSON to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a Server simulating with stepper.
func NewServer(sessions *session.Manager, stepper *runtime.Stepper, opts ...Option) *Server {
	s := &Server{
		Sessions:       sessions,
		stepper:        stepper,
		maxSteps:       runner.DefaultMaxSteps,
		metrics:        promhttp.Handler(),
		defaultSession: DefaultSession,
		logger:         slog.New(slog.NewJSONHandler(os.Stderr, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.runner = runner.New(stepper,
		runner.WithMaxSteps(s.maxSteps),
		runner.WithObserver(append(runner.MultiObserver{s.Streams}, s.observers...)),
		runner.WithLogger(s.logger),
	)
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// NewHandler creates a new HTTP handler for the sessions.
func NewHandler(sessions *session.Manager, stepper *runtime.Stepper, opts ...Option) http.Handler {
	return NewServer(sessions, stepper, opts...).Handler()
}

// Close stops the runs started through the API and waits for them to end.
func (s *Server) Close() {
	s.cancel()
	s.runs.Wait()
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.GetHealth)
	r.Handle("/metrics", s.metrics)
	r.Get("/workflows", s.ListWorkflows)

	r.Get("/workflow", s.GetWorkflow)
	r.Put("/workflow", s.PutWorkflow)
	r.Put("/workflow/start", s.SetStart)
	r.Get("/graph.mmd", s.GetGraph)

	r.Post("/nodes", s.AddNode)
	r.Delete("/nodes/{id}", s.DeleteNode)
	r.Patch("/nodes/{id}/position", s.MoveNode)
	r.Patch("/nodes/{id}/config", s.UpdateConfig)
	r.Post("/connections", s.Connect)
	r.Delete("/connections/{source}/{handle}", s.Disconnect)

	r.Get("/run", s.GetRun)
	r.Post("/run/start", s.StartRun)
	r.Post("/run/step", s.StepRun)
	r.Post("/run/stop", s.StopRun)
	r.Post("/run/reset", s.ResetRun)
	r.Get("/events", s.SubscribeEvents)

	r.Get("/chat", s.GetChat)
	r.Post("/chat", s.PostChat)
	r.Delete("/chat", s.ResetChat)

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListWorkflows handles the GET /workflows request.
func (s *Server) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.fail(w, "ListWorkflows", err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetWorkflow handles the GET /workflow request.
func (s *Server) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Document().Snapshot())
}

// PutWorkflow replaces the whole document and resets the run.
// The workflow keeps the session's ID whatever the body says.
func (s *Server) PutWorkflow(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	wf, err := document.Decode(data, document.JSON)
	if err != nil {
		s.fail(w, "PutWorkflow", err)
		return
	}
	wf.ID = sess.ID
	if verr := wf.Validate(); verr != nil {
		s.logger.Warn("PutWorkflow: workflow has integrity problems", "session_id", sess.ID, "err", verr)
	}

	sess.Document().Replace(wf)
	sess.Reset()
	s.Streams.OnStatus(r.Context(), sess.ID, sess.State())
	if !s.persist(w, r, sess) {
		return
	}
	writeJSON(w, http.StatusOK, sess.Document().Snapshot())
}

type startRequest struct {
	NodeID string `json:"node_id"`
}

// SetStart handles the PUT /workflow/start request.
func (s *Server) SetStart(w http.ResponseWriter, r *http.Request) {
	var body startRequest
	s.mutate(w, r, &body, func(sess *session.Session) (int, any, error) {
		if err := sess.Document().SetStart(body.NodeID); err != nil {
			return 0, nil, err
		}
		return http.StatusOK, sess.Document().Snapshot(), nil
	})
}

// GetGraph renders the workflow as Mermaid, highlighting the current run.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var overlay *graph.GraphOverlay
	if state := sess.State(); len(state.Logs) > 0 {
		overlay = graph.OverlayFor(state)
	}
	w.Header().Set("Content-Type", "text/vnd.mermaid; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(sess.Document().Snapshot(), overlay))
}

type addNodeRequest struct {
	Type     domain.NodeType `json:"type"`
	Position domain.Position `json:"position"`
}

// AddNode handles the POST /nodes request.
func (s *Server) AddNode(w http.ResponseWriter, r *http.Request) {
	var body addNodeRequest
	s.mutate(w, r, &body, func(sess *session.Session) (int, any, error) {
		id, err := sess.Document().AddNode(body.Type, body.Position)
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, map[string]string{"id": id}, nil
	})
}

// DeleteNode handles the DELETE /nodes/{id} request. Deleting an absent node succeeds.
func (s *Server) DeleteNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.mutate(w, r, nil, func(sess *session.Session) (int, any, error) {
		sess.Document().DeleteNode(id)
		return http.StatusNoContent, nil, nil
	})
}

// MoveNode handles the PATCH /nodes/{id}/position request.
func (s *Server) MoveNode(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var pos domain.Position
	s.mutate(w, r, &pos, func(sess *session.Session) (int, any, error) {
		if err := sess.Document().MoveNode(id, pos); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

type configRequest struct {
	Key     string  `json:"key"`
	Value   any     `json:"value"`
	Subtype *string `json:"subtype"`
}

// UpdateConfig handles the PATCH /nodes/{id}/config request. The body sets
// either one config value or the node's subtype.
func (s *Server) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body configRequest
	s.mutate(w, r, &body, func(sess *session.Session) (int, any, error) {
		doc := sess.Document()
		var err error
		switch {
		case body.Subtype != nil:
			err = doc.SetSubtype(id, *body.Subtype)
		case body.Key != "":
			err = doc.SetConfigValue(id, body.Key, body.Value)
		default:
			return http.StatusBadRequest, nil, errors.New("either key or subtype is required")
		}
		if err != nil {
			return 0, nil, err
		}
		wf := doc.Snapshot()
		node, err := wf.Node(id)
		if err != nil {
			return 0, nil, err
		}
		if node.Config == nil {
			return http.StatusOK, map[string]any{}, nil
		}
		return http.StatusOK, node.Config.Values(), nil
	})
}

type connectRequest struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Handle domain.Handle `json:"handle"`
}

// Connect handles the POST /connections request.
func (s *Server) Connect(w http.ResponseWriter, r *http.Request) {
	var body connectRequest
	s.mutate(w, r, &body, func(sess *session.Session) (int, any, error) {
		if err := sess.Document().ConnectNodes(body.Source, body.Target, body.Handle); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// Disconnect handles the DELETE /connections/{source}/{handle} request.
func (s *Server) Disconnect(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")
	handle := domain.Handle(chi.URLParam(r, "handle"))
	s.mutate(w, r, nil, func(sess *session.Session) (int, any, error) {
		if err := sess.Document().Disconnect(source, handle); err != nil {
			return 0, nil, err
		}
		return http.StatusNoContent, nil, nil
	})
}

// GetRun handles the GET /run request.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.State())
}

// StartRun starts a simulation in the background. Progress is reported on
// GET /events and GET /run.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if _, err := sess.Start(); err != nil {
		s.fail(w, "StartRun", err)
		return
	}

	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.runner.RunStarted(s.ctx, sess)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"session_id": sess.ID, "status": "started"})
}

// StepRun executes a single step and returns its log entry.
func (s *Server) StepRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	entry, err := s.runner.StepOnce(r.Context(), sess)
	if err != nil {
		s.fail(w, "StepRun", err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// StopRun asks the running simulation to halt before its next step.
func (s *Server) StopRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Stop()
	writeJSON(w, http.StatusOK, sess.State())
}

// ResetRun clears the logs and context of the session.
func (s *Server) ResetRun(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Reset()
	state := sess.State()
	s.Streams.OnStatus(r.Context(), sess.ID, state)
	writeJSON(w, http.StatusOK, state)
}

// SubscribeEvents handles the GET /events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to Session Updates", "session_id", sess.ID)
	ch, cancel := s.Streams.Subscribe(sess.ID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "session_id", sess.ID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// GetChat returns the conversation of the session.
func (s *Server) GetChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Chat.History())
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Text     string           `json:"text"`
	Workflow *domain.Workflow `json:"workflow,omitempty"`
}

// PostChat sends a message to the assistant. A reply carrying a workflow
// replaces the session's document and resets its run.
func (s *Server) PostChat(w http.ResponseWriter, r *http.Request) {
	if s.Assistant == nil {
		http.Error(w, "No generator configured", http.StatusNotImplemented)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var body chatRequest
	if !decodeBody(w, r, &body) {
		return
	}
	message, err := generation.SanitizePrompt(body.Message)
	if err != nil {
		s.logger.Warn("PostChat: Input rejected", "err", err, "size", len(body.Message))
		s.fail(w, "PostChat", err)
		return
	}

	reply := s.Assistant.Ask(r.Context(), sess.Chat, message)
	if reply.Workflow != nil {
		wf := *reply.Workflow
		wf.ID = sess.ID
		sess.Stop()
		sess.Document().Replace(wf)
		sess.Reset()
		s.Streams.OnStatus(r.Context(), sess.ID, sess.State())
		if !s.persist(w, r, sess) {
			return
		}
		reply.Workflow = &wf
	}
	writeJSON(w, http.StatusOK, chatResponse{Text: reply.Text, Workflow: reply.Workflow})
}

// ResetChat starts a new conversation.
func (s *Server) ResetChat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Chat.Reset()
	writeJSON(w, http.StatusOK, sess.Chat.History())
}

// -- Helpers --

// session resolves the session named by ?session=, opening it from the store
// when needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := r.URL.Query().Get("session")
	if id == "" {
		id = s.defaultSession
	}
	sess, err := s.Sessions.Open(r.Context(), id)
	if err != nil {
		s.fail(w, "session", err)
		return nil, false
	}
	return sess, true
}

// mutate decodes the body into dst (when not nil), applies fn to the session
// and persists the document on success.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, dst any, fn func(*session.Session) (int, any, error)) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if dst != nil && !decodeBody(w, r, dst) {
		return
	}
	status, resp, err := fn(sess)
	if err != nil {
		if status == http.StatusBadRequest {
			http.Error(w, err.Error(), status)
			return
		}
		s.fail(w, "mutate", err)
		return
	}
	if !s.persist(w, r, sess) {
		return
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, resp)
}

func (s *Server) persist(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	if err := s.Sessions.Save(r.Context(), sess.ID); err != nil {
		s.fail(w, "persist", err)
		return false
	}
	return true
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Debug(op+" rejected", "err", err, "status", status)
	}
	http.Error(w, err.Error(), status)
}

func statusFor(err error) int {
	var verr *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrWorkflowNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRunInProgress),
		errors.Is(err, domain.ErrRunAlreadyTerminated):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownNodeType),
		errors.Is(err, domain.ErrUnknownHandle),
		errors.Is(err, domain.ErrRoutingKey),
		errors.Is(err, domain.ErrGenerationParse),
		errors.Is(err, document.ErrInvalidDocument),
		errors.Is(err, generation.ErrPromptEmpty),
		errors.Is(err, generation.ErrPromptTooLarge),
		errors.Is(err, generation.ErrInvalidUTF8),
		errors.As(err, &verr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(dst); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
