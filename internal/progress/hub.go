// Package progress fans job lifecycle events out to API subscribers
// and optionally mirrors them onto NATS for external consumers.
package progress

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// EventType names one lifecycle event of a job or row.
type EventType string

const (
	EventJobStarted       EventType = "job_started"
	EventAddressCompleted EventType = "address_completed"
	EventAddressFailed    EventType = "address_failed"
	EventAddressError     EventType = "address_error"
	EventJobCompleted     EventType = "job_completed"
	EventJobFailed        EventType = "job_failed"
)

// Terminal reports whether this event closes the job's stream.
func (t EventType) Terminal() bool {
	return t == EventJobCompleted || t == EventJobFailed
}

// Event is one progress notification for a job.
type Event struct {
	Type      EventType `json:"type"`
	JobID     string    `json:"job_id"`
	RowIndex  *int      `json:"row_index,omitempty"`
	Processed int       `json:"processed"`
	Total     int       `json:"total"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Logger interface for observability
type Logger interface {
	Printf(format string, v ...interface{})
	Errorf(format string, v ...interface{})
}

// Hub routes events to per-job subscribers. Delivery is best effort: a
// subscriber that stops draining its channel loses events rather than
// stalling the scheduler.
type Hub struct {
	mu   sync.Mutex
	subs map[string]map[chan Event]struct{}
	nc   *nats.Conn
	log  Logger
}

// NewHub builds a hub. nc may be nil to disable the NATS mirror.
func NewHub(nc *nats.Conn, log Logger) *Hub {
	return &Hub{
		subs: make(map[string]map[chan Event]struct{}),
		nc:   nc,
		log:  log,
	}
}

// Subscribe registers a listener for one job's events. The returned
// cancel func must be called exactly once; it closes the channel.
func (h *Hub) Subscribe(jobID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	h.mu.Lock()
	if h.subs[jobID] == nil {
		h.subs[jobID] = make(map[chan Event]struct{})
	}
	h.subs[jobID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if set, ok := h.subs[jobID]; ok {
			if _, live := set[ch]; live {
				delete(set, ch)
				close(ch)
			}
			if len(set) == 0 {
				delete(h.subs, jobID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// Notify delivers the event to all of the job's subscribers and mirrors
// it to NATS. Never blocks.
func (h *Hub) Notify(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	for ch := range h.subs[event.JobID] {
		select {
		case ch <- event:
		default:
		}
	}
	h.mu.Unlock()

	h.mirror(event)
}

func (h *Hub) mirror(event Event) {
	if h.nc == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		if h.log != nil {
			h.log.Errorf("failed to marshal event: %v", err)
		}
		return
	}
	subject := "meterstatus.jobs." + event.JobID + "." + string(event.Type)
	if err := h.nc.Publish(subject, data); err != nil && h.log != nil {
		h.log.Errorf("failed to publish %s: %v", subject, err)
	}
}
