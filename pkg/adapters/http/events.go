package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/arbor/internal/stream"
	"github.com/aretw0/arbor/pkg/domain"
)

// SubscribeTreeEvents handles the GET /trees/{key}/events request (SSE).
// Each save is pushed as the tree's JSON document on a single data line; a
// deletion is announced with a tree_deleted event.
func (s *Server) SubscribeTreeEvents(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	s.stream(w, r, key, func(e *domain.TreeEvent) (string, []byte, bool) {
		if e.Type == domain.EventTreeDeleted {
			data, _ := json.Marshal(e.EventBase)
			return string(e.Type), data, true
		}
		if len(e.Tree) == 0 {
			return "", nil, false
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, e.Tree); err != nil {
			s.logger.Warn("SSE: Dropping malformed tree payload", "key", e.Key, "err", err)
			return "", nil, false
		}
		return "", compact.Bytes(), true
	})
}

// SubscribeAllEvents handles the GET /events request (SSE). It reports every change
// of every tree as an event carrying the key and the diff, without the document.
func (s *Server) SubscribeAllEvents(w http.ResponseWriter, r *http.Request) {
	s.stream(w, r, stream.AllKeys, func(e *domain.TreeEvent) (string, []byte, bool) {
		data, err := json.Marshal(e)
		if err != nil {
			s.logger.Warn("SSE: Failed to encode event", "key", e.Key, "err", err)
			return "", nil, false
		}
		return string(e.Type), data, true
	})
}

type frame func(e *domain.TreeEvent) (event string, data []byte, ok bool)

func (s *Server) stream(w http.ResponseWriter, r *http.Request, key string, encode frame) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	events, cancel := s.Workspace.Subscribe(key)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to tree updates", "key", key)
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "key", key)
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			name, data, ok := encode(e)
			if !ok {
				continue
			}
			if name != "" {
				fmt.Fprintf(w, "event: %s\n", name)
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
