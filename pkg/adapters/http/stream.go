package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/transito/internal/logging"
	"github.com/aretw0/transito/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// StreamManager fans out snapshots written through this server to SSE subscribers.
// Writes made by other processes sharing the adapter are not observed.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // actor id -> set of channels
	logger      *slog.Logger
}

func NewStreamManager() *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logging.NewNop(),
	}
}

// Subscribe registers a channel for id. The returned func unregisters and closes it.
func (sm *StreamManager) Subscribe(id string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 10)
	if _, ok := sm.subscribers[id]; !ok {
		sm.subscribers[id] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[id][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[id]; ok {
			if _, ok := subs[ch]; !ok {
				return
			}
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, id)
			}
		}
	}
}

// Broadcast sends snap to every subscriber of its actor. Slow subscribers miss messages.
func (sm *StreamManager) Broadcast(snap *domain.Snapshot) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[snap.ID]
	if !ok {
		return
	}
	msg, err := json.Marshal(snap)
	if err != nil {
		sm.logger.Error("stream: snapshot encode failed", "actor_id", snap.ID, "error", err)
		return
	}
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("stream: client buffer full, dropping message", "actor_id", snap.ID)
		}
	}
}

// StreamActor handles GET /actors/{id}/stream.
func (s *Server) StreamActor(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "streaming not supported"})
		return
	}
	id := chi.URLParam(r, "id")

	ch, cancel := s.streams.Subscribe(id)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("stream: subscribed", "actor_id", id)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("stream: client disconnected", "actor_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}
