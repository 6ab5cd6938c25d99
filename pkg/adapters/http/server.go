package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aleung/fsm"
	"github.com/aleung/fsm/internal/presentation/graph"
	"github.com/aleung/fsm/pkg/domain"
	"github.com/aleung/fsm/pkg/ports"
	"github.com/aleung/fsm/pkg/session"
)

// DefaultMaxBodySize bounds the request body of POST /machines/{id}/events.
const DefaultMaxBodySize int64 = 1 << 20

// MachineResponse is the representation of one instance.
type MachineResponse struct {
	ID    string `json:"id"`
	State string `json:"state"`
}

// ListResponse is returned by GET /machines.
type ListResponse struct {
	Machines []string `json:"machines"`
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager *session.Manager
	Journal ports.Journal
	Streams *StreamManager
	Logger  *slog.Logger
	// MaxBodySize bounds event request bodies in bytes.
	MaxBodySize int64
}

// Option configures the Server.
type Option func(*Server)

// WithJournal enables GET /journal/{id}.
func WithJournal(journal ports.Journal) Option {
	return func(s *Server) {
		s.Journal = journal
	}
}

// WithStreams enables GET /events. The manager's machines must carry
// streams.Hooks() for anything to be delivered.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithMaxBodySize bounds event request bodies. n <= 0 keeps DefaultMaxBodySize.
func WithMaxBodySize(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.MaxBodySize = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.Logger = logger
		}
	}
}

// NewHandler creates a new HTTP handler for the manager.
func NewHandler(manager *session.Manager, opts ...Option) http.Handler {
	server := &Server{
		Manager:     manager,
		Logger:      slog.Default(),
		MaxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(server)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/graph", server.GetGraph)
	r.Get("/events", server.SubscribeEvents)
	r.Get("/journal/{id}", server.GetJournal)

	r.Route("/machines", func(r chi.Router) {
		r.Get("/", server.ListMachines)
		r.Post("/{id}", server.CreateMachine)
		r.Get("/{id}", server.GetMachine)
		r.Delete("/{id}", server.DeleteMachine)
		r.Post("/{id}/events", server.SendEvent)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListMachines handles GET /machines.
func (s *Server) ListMachines(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ListResponse{Machines: s.Manager.List()})
}

// CreateMachine handles POST /machines/{id}. It answers 201 when the instance
// was created and initialized, 200 when it already existed.
func (s *Server) CreateMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, created, err := s.Manager.GetOrCreate(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.writeJSON(w, status, MachineResponse{ID: id, State: m.CurrentState()})
}

// GetMachine handles GET /machines/{id}.
func (s *Server) GetMachine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	m, err := s.Manager.Get(id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MachineResponse{ID: id, State: m.CurrentState()})
}

// DeleteMachine handles DELETE /machines/{id}.
func (s *Server) DeleteMachine(w http.ResponseWriter, r *http.Request) {
	if err := s.Manager.Delete(chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendEvent handles POST /machines/{id}/events with a domain.Event body.
func (s *Server) SendEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var evt domain.Event
	body := http.MaxBytesReader(w, r.Body, s.MaxBodySize)
	if err := json.NewDecoder(body).Decode(&evt); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)})
			s.Logger.Warn("SendEvent: Request body too large", "instance", id, "limit", tooLarge.Limit)
			return
		}
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		s.Logger.Warn("SendEvent: Invalid request body", "instance", id, "err", err)
		return
	}
	m, err := s.Manager.Send(r.Context(), id, evt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, MachineResponse{ID: id, State: m.CurrentState()})
}

// GetGraph handles GET /graph. With ?id= the instance's current state is
// highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.GraphOverlay
	if id := r.URL.Query().Get("id"); id != "" {
		m, err := s.Manager.Get(id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		overlay = &graph.GraphOverlay{CurrentState: m.CurrentState()}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(graph.GenerateMermaid(s.Manager.Definition(), overlay)))
}

// GetJournal handles GET /journal/{id}?limit=N.
func (s *Server) GetJournal(w http.ResponseWriter, r *http.Request) {
	if s.Journal == nil {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "journal is not configured"})
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	recs, err := s.Journal.List(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	def := s.Manager.Definition()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":           "fsm-http",
		"version":       fsm.Version,
		"initial_state": def.InitialState,
		"states":        len(def.States),
	})
}

// SubscribeEvents handles the GET /events?id= request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	if s.Streams == nil {
		s.writeJSON(w, http.StatusNotImplemented, ErrorResponse{Error: "event streaming is not configured"})
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "id is required"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.Logger.Info("SSE: Subscribing to transitions", "instance", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.Logger.Info("SSE Client Disconnected", "instance", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: transition\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// statusFor maps domain and session errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrInstanceNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidID),
		errors.Is(err, session.ErrInvalidEvent):
		return http.StatusBadRequest
	case domain.IsUnhandledEvent(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrBusy),
		errors.Is(err, domain.ErrReentrantCall):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.Logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}
