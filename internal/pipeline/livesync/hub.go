// Package livesync keeps dashboard surfaces in one process consistent:
// a scoped publish/subscribe hub, a per-surface record view and a poller that
// reconciles the view against the store.
package livesync

import (
	"sync"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/metrics"
)

// EventType is the kind of change carried by an Event.
type EventType string

const (
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Origin tells where an event came from.
type Origin string

const (
	OriginMutation Origin = "mutation"
	OriginPoll     Origin = "poll"
)

// Event announces a change to one record. Record is nil for deletions.
type Event struct {
	Type      EventType
	Ref       domain.Ref
	BrandID   string
	UpdatedAt time.Time
	Record    domain.Record
	Origin    Origin
}

// Updated builds an updated event for rec.
func Updated(rec domain.Record, origin Origin) Event {
	return Event{
		Type:      EventUpdated,
		Ref:       rec.Ref(),
		BrandID:   rec.Brand(),
		UpdatedAt: rec.Version(),
		Record:    rec.CloneRecord(),
		Origin:    origin,
	}
}

// Deleted builds a deleted event. at orders it after the record's last update.
func Deleted(ref domain.Ref, brandID string, at time.Time, origin Origin) Event {
	return Event{Type: EventDeleted, Ref: ref, BrandID: brandID, UpdatedAt: at, Origin: origin}
}

// Handler receives events. It must not block for long: it runs on the
// publisher's goroutine.
type Handler func(Event)

type subscription struct {
	scope   domain.Scope
	handler Handler
}

// Hub fans events out to subscribers whose scope matches the event's brand.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]subscription
	nextID  uint64
	metrics *metrics.Metrics
}

// NewHub creates an empty hub. m may be nil.
func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{subs: make(map[uint64]subscription), metrics: m}
}

// Subscribe registers handler for events within scope. The returned function
// removes the subscription; calling it more than once is harmless.
func (h *Hub) Subscribe(scope domain.Scope, handler Handler) (unsubscribe func()) {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.subs[id] = subscription{scope: scope, handler: handler}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
		})
	}
}

// Publish delivers ev to every matching subscriber.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	targets := make([]Handler, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.scope.Match(ev.BrandID) {
			targets = append(targets, sub.handler)
		}
	}
	h.mu.RUnlock()

	h.metrics.IncrSyncEvent(string(ev.Type), string(ev.Origin))
	for _, handler := range targets {
		handler(ev)
	}
}

// Subscribers returns the current number of subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
