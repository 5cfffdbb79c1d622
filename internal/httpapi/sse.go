package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/cdubvdub/fpl-power-meter-api/internal/progress"
	"github.com/cdubvdub/fpl-power-meter-api/internal/store"
)

// handleEvents streams a job's progress as server-sent events. The
// stream closes when the job reaches a terminal event or the client
// disconnects. Subscribing to an already-terminal job replays a single
// synthetic terminal event so late clients do not hang.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	jobID := mux.Vars(r)["jobId"]
	job, err := s.store.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "job not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events, cancel := s.hub.Subscribe(jobID)
	defer cancel()

	// The job may have finished between the store read and the
	// subscription. Re-check now that we are registered.
	if current, err := s.store.GetJob(r.Context(), jobID); err == nil {
		job = current
	}
	if job.Status.Terminal() {
		s.writeSSE(w, terminalEventFor(job))
		flusher.Flush()
		return
	}

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			s.writeSSE(w, ev)
			flusher.Flush()
			if ev.Type.Terminal() {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}

func terminalEventFor(job *store.Job) progress.Event {
	eventType := progress.EventJobCompleted
	if job.Status == store.JobFailed {
		eventType = progress.EventJobFailed
	}
	return progress.Event{
		Type:      eventType,
		JobID:     job.JobID,
		Processed: job.Processed,
		Total:     job.Total,
		Timestamp: time.Now(),
	}
}

func (s *Server) writeSSE(w http.ResponseWriter, ev interface{}) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.log.Errorf("failed to marshal event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
