package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/aretw0/transito"
	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/internal/presentation/graph"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/aretw0/transito/pkg/ports"
	"github.com/aretw0/transito/pkg/schema"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodyBytes bounds request bodies (create context and event payloads).
const MaxBodyBytes = 1 << 20

// Server exposes a bound machine over HTTP.
type Server struct {
	machine  *transito.Machine
	streams  *StreamManager
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	newID    func() (string, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithMetrics serves the gatherer's metrics on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithIDGenerator replaces the UUIDv7 generator used when POST /actors omits the id.
func WithIDGenerator(fn func() (string, error)) Option {
	return func(s *Server) { s.newID = fn }
}

// CreateRequest is the body of POST /actors.
type CreateRequest struct {
	ID      string         `json:"id,omitempty"`
	Context map[string]any `json:"context"`
}

// ListResponse is the body of GET /actors.
type ListResponse struct {
	IDs []string `json:"ids"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewHandler creates the HTTP handler for machine.
//
//	GET    /healthz
//	GET    /metrics                      (WithMetrics only)
//	GET    /graph                        Mermaid source of the definition
//	POST   /actors                       create, 201 / 409 / 422
//	GET    /actors                       ids, 501 when the adapter cannot list
//	GET    /actors/{id}                  snapshot, 404
//	DELETE /actors/{id}                  204, 501 when the adapter cannot delete
//	POST   /actors/{id}/events/{event}   send, body is the payload
//	GET    /actors/{id}/stream           server-sent snapshots
func NewHandler(machine *transito.Machine, opts ...Option) http.Handler {
	s := &Server{
		machine: machine,
		streams: NewStreamManager(),
		logger:  logging.NewNop(),
		newID:   newUUID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams.logger = s.logger

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer)

	r.Get("/healthz", s.GetHealth)
	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/graph", s.GetGraph)
	r.Route("/actors", func(r chi.Router) {
		r.Post("/", s.CreateActor)
		r.Get("/", s.ListActors)
		r.Get("/{id}", s.GetActor)
		r.Delete("/{id}", s.DeleteActor)
		r.Post("/{id}/events/{event}", s.SendEvent)
		r.Get("/{id}/stream", s.StreamActor)
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetGraph handles GET /graph.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, graph.GenerateMermaid(s.machine.Definition(), nil))
}

// CreateActor handles POST /actors.
func (s *Server) CreateActor(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&body); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid request body: %v", err)})
		return
	}
	if body.ID == "" {
		id, err := s.newID()
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		body.ID = id
	}

	actor, err := s.machine.CreateActor(r.Context(), body.ID, body.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap := actor.Snapshot()
	s.streams.Broadcast(snap)
	s.writeJSON(w, http.StatusCreated, snap)
}

// ListActors handles GET /actors.
func (s *Server) ListActors(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.machine.Adapter().(ports.Lister)
	if !ok {
		s.writeError(w, r, errors.ErrUnsupported)
		return
	}
	ids, err := lister.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ListResponse{IDs: ids})
}

// GetActor handles GET /actors/{id}.
func (s *Server) GetActor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	actor, err := s.machine.GetActor(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if actor == nil {
		s.writeError(w, r, fmt.Errorf("%w: %s", domain.ErrActorNotFound, id))
		return
	}
	s.writeJSON(w, http.StatusOK, actor.Snapshot())
}

// DeleteActor handles DELETE /actors/{id}.
func (s *Server) DeleteActor(w http.ResponseWriter, r *http.Request) {
	deleter, ok := s.machine.Adapter().(ports.Deleter)
	if !ok {
		s.writeError(w, r, errors.ErrUnsupported)
		return
	}
	if err := deleter.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SendEvent handles POST /actors/{id}/events/{event}. An empty body sends a nil payload.
func (s *Server) SendEvent(w http.ResponseWriter, r *http.Request) {
	id, event := chi.URLParam(r, "id"), chi.URLParam(r, "event")

	var payload any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(&payload); err != nil && !errors.Is(err, io.EOF) {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("invalid payload: %v", err)})
		return
	}

	actor, err := s.machine.Send(r.Context(), id, event, payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap := actor.Snapshot()
	s.streams.Broadcast(snap)
	s.writeJSON(w, http.StatusOK, snap)
}

// StatusCode maps engine and adapter errors to HTTP status codes.
func StatusCode(err error) int {
	var (
		actionErr *domain.ActionError
		schemaErr *schema.AggregateError
	)
	switch {
	case errors.Is(err, domain.ErrInvalidActorID):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrActorNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrActorAlreadyExists), errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.As(err, &actionErr), errors.Is(err, domain.ErrUnhandledEvent), errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errors.ErrUnsupported):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)
	log := s.logger.With("method", r.Method, "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()))
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "error", err)
	} else {
		log.Warn("request rejected", "status", status, "error", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

func newUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
