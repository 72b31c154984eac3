package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// sseHeartbeatInterval matches the teacher's keep-alive cadence for
// long-lived SSE connections behind proxies that time out idle sockets.
const sseHeartbeatInterval = 30 * time.Second

// sseWriter writes Server-Sent Events frames, flushing after every write
// the way the teacher's internal/server/sse.go does via
// http.NewResponseController with a type-assertion fallback.
type sseWriter struct {
	w http.ResponseWriter
	rc *http.ResponseController
}

func newSSEWriter(w http.ResponseWriter) *sseWriter {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, rc: http.NewResponseController(w)}
}

func (s *sseWriter) flush() {
	if err := s.rc.Flush(); err != nil {
		if f, ok := s.w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func (s *sseWriter) writeEvent(id uint64, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if id != 0 {
		if _, err := fmt.Fprintf(s.w, "id: %d\n", id); err != nil {
			return err
		}
	}
	if event != "" {
		if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flush()
	return nil
}

func (s *sseWriter) writeHeartbeat() error {
	if _, err := fmt.Fprint(s.w, ": heartbeat\n\n"); err != nil {
		return err
	}
	s.flush()
	return nil
}

// subscribeEvents implements §6 subscribeEvents: an SSE stream over the
// EventStore, replaying backlog since the Last-Event-ID / ?after= cursor
// before switching to live delivery, and filtering client-side by
// ?branchID= since EventStore.Subscribe has no native branch filter.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	branchFilter := r.URL.Query().Get("branchID")

	var after uint64
	if v := r.Header.Get("Last-Event-ID"); v != "" {
		after, _ = strconv.ParseUint(v, 10, 64)
	} else if v := r.URL.Query().Get("after"); v != "" {
		after, _ = strconv.ParseUint(v, 10, 64)
	}

	sub, err := s.events.Subscribe(r.Context(), sessionID, after)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrCodeInternalError, err.Error())
		return
	}
	defer sub.Close()

	sw := newSSEWriter(w)
	w.WriteHeader(http.StatusOK)
	sw.flush()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-sub.C:
			if !ok {
				return
			}
			if branchFilter != "" && env.BranchID != branchFilter {
				continue
			}
			if err := sw.writeEvent(env.ID, string(env.Event.Tag()), env); err != nil {
				return
			}
		case <-ticker.C:
			if err := sw.writeHeartbeat(); err != nil {
				return
			}
		}
	}
}
