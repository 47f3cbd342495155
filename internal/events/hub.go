// Package events fans out generation progress to API subscribers.
package events

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Event types published during a batch.
const (
	TypeBatchStarted      = "batch.started"
	TypeWorkflowGenerated = "workflow.generated"
	TypeWorkflowFailed    = "workflow.failed"
	TypeBatchCompleted    = "batch.completed"
)

// Event types published by server maintenance.
const (
	TypeHistoryPruned      = "history.pruned"
	TypeWorkflowsRefreshed = "workflows.refreshed"
)

const (
	defaultRetained  = 100
	subscriberBuffer = 64
)

type Event struct {
	ID   int64           `json:"id"`
	Type string          `json:"type"`
	At   time.Time       `json:"at"`
	Data json.RawMessage `json:"data"`
}

// Hub is an in-memory pub/sub that retains the latest events so a client
// reconnecting with Last-Event-ID can catch up.
type Hub struct {
	nextID atomic.Int64
	now    func() time.Time

	mu       sync.Mutex
	retained []Event
	limit    int
	subs     map[int]chan Event
	nextSub  int
}

func NewHub(retain int) *Hub {
	if retain <= 0 {
		retain = defaultRetained
	}
	return &Hub{
		now:   time.Now,
		limit: retain,
		subs:  make(map[int]chan Event),
	}
}

// Publish records an event and delivers it to every subscriber. Subscribers
// that are not keeping up miss the event rather than block the batch.
func (h *Hub) Publish(eventType string, data any) Event {
	payload := json.RawMessage("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			payload = b
		}
	}
	ev := Event{
		ID:   h.nextID.Add(1),
		Type: eventType,
		At:   h.now().UTC(),
		Data: payload,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.retained = append(h.retained, ev)
	if over := len(h.retained) - h.limit; over > 0 {
		h.retained = append(h.retained[:0], h.retained[over:]...)
	}
	for _, ch := range h.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return ev
}

// Subscribe returns a channel of new events and a cancel func that closes it.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := h.nextSub
	h.nextSub++
	ch := make(chan Event, subscriberBuffer)
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Since returns retained events with ID greater than lastID, oldest first.
func (h *Hub) Since(lastID int64) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Event, 0, len(h.retained))
	for _, ev := range h.retained {
		if ev.ID > lastID {
			out = append(out, ev)
		}
	}
	return out
}
