// Package progress fans research progress messages out to subscribers, one
// stream per run.
package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/atlas/internal/model"
)

const (
	// DefaultHistory is how many past events a late subscriber receives.
	DefaultHistory   = 256
	subscriberBuffer = 64
)

// Event is one progress message for a run.
type Event struct {
	RunID   string    `json:"run_id"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
	// Done marks the final event of a run.
	Done bool `json:"done,omitempty"`
}

type stream struct {
	history []Event
	subs    map[string]chan Event
	done    bool
}

// Hub is safe for concurrent use.
type Hub struct {
	mu      sync.Mutex
	streams map[string]*stream
	history int
	now     func() time.Time
}

// NewHub creates a hub keeping up to history past events per run.
func NewHub(history int) *Hub {
	if history <= 0 {
		history = DefaultHistory
	}
	return &Hub{streams: make(map[string]*stream), history: history, now: time.Now}
}

func (h *Hub) stream(runID string) *stream {
	s, ok := h.streams[runID]
	if !ok {
		s = &stream{subs: make(map[string]chan Event)}
		h.streams[runID] = s
	}
	return s
}

// Publish records message for runID and delivers it to current subscribers.
// Slow subscribers miss messages rather than block the publisher.
func (h *Hub) Publish(runID, message string) {
	h.publish(Event{RunID: runID, Message: message})
}

// Finish publishes a final event and closes every subscriber of runID.
func (h *Hub) Finish(runID, message string) {
	h.publish(Event{RunID: runID, Message: message, Done: true})
}

func (h *Hub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stream(ev.RunID)
	if s.done {
		return
	}
	ev.Time = h.now()
	s.history = append(s.history, ev)
	if len(s.history) > h.history {
		s.history = s.history[len(s.history)-h.history:]
	}
	for id, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			zap.L().Debug("progress: subscriber lagging, dropped event",
				zap.String("run_id", ev.RunID),
				zap.String("subscriber", id),
			)
		}
	}
	if ev.Done {
		s.done = true
		for id, ch := range s.subs {
			close(ch)
			delete(s.subs, id)
		}
	}
}

// Subscribe returns a channel that first replays the run's history and then
// receives new events. The channel is closed after the final event or when
// cancel is called.
func (h *Hub) Subscribe(runID string) (events <-chan Event, cancel func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	s := h.stream(runID)
	ch := make(chan Event, len(s.history)+subscriberBuffer)
	for _, ev := range s.history {
		ch <- ev
	}
	if s.done {
		close(ch)
		return ch, func() {}
	}

	id := uuid.NewString()
	s.subs[id] = ch
	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			close(c)
			delete(s.subs, id)
		}
	}
}

// History returns a copy of the recorded events for runID.
func (h *Hub) History(runID string) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.streams[runID]
	if !ok {
		return nil
	}
	return append([]Event(nil), s.history...)
}

// Forget drops a finished run's history.
func (h *Hub) Forget(runID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.streams[runID]; ok && len(s.subs) == 0 {
		delete(h.streams, runID)
	}
}

// ForgetAfter drops runID's history once d has elapsed. Streams that still
// have subscribers are kept.
func (h *Hub) ForgetAfter(runID string, d time.Duration) {
	time.AfterFunc(d, func() { h.Forget(runID) })
}

// Reporter adapts the hub to the research progress callback for runID.
func (h *Hub) Reporter(runID string) model.ProgressFunc {
	return func(message string) { h.Publish(runID, message) }
}
