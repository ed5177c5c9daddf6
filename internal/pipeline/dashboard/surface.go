// Package dashboard hosts one live surface per signed-in user. A surface
// combines the user's view, its mutation coordinator, a poller and a scoped
// hub subscription, and fans events out to streaming listeners.
package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"marketplace_backend/internal/pipeline/coordinator"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
)

const defaultListenerBuffer = 32

// Surface is one dashboard session.
type Surface struct {
	id       string
	identity domain.Identity
	scope    domain.Scope
	view     *livesync.View
	coord    *coordinator.Coordinator
	poller   *livesync.Poller
	log      *logger.Logger

	unsubscribe func()
	cancel      context.CancelFunc
	ready       chan struct{}
	done        chan struct{}

	mu        sync.Mutex
	lastSeen  map[domain.Ref]Event
	listeners map[uint64]chan Event
	nextID    uint64

	lastActive atomic.Int64
}

// Event is what listeners receive.
type Event = livesync.Event

// ID identifies the surface in logs and stream headers.
func (s *Surface) ID() string { return s.id }

// Identity returns the identity the surface was opened for.
func (s *Surface) Identity() domain.Identity { return s.identity }

// Scope returns the brands the surface may see.
func (s *Surface) Scope() domain.Scope { return s.scope }

// View returns the surface's local records.
func (s *Surface) View() *livesync.View { return s.view }

// Coordinator returns the coordinator that mutates this surface's view.
func (s *Surface) Coordinator() *coordinator.Coordinator { return s.coord }

// Touch marks the surface as in use.
func (s *Surface) Touch() {
	s.lastActive.Store(time.Now().UnixNano())
}

func (s *Surface) idleSince() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Listen registers a listener. Events that do not fit the buffer are dropped
// for that listener; the next poll brings it up to date.
func (s *Surface) Listen(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = defaultListenerBuffer
	}
	ch := make(chan Event, buffer)

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = ch
	s.mu.Unlock()
	s.Touch()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.listeners[id]; ok {
				delete(s.listeners, id)
				close(ch)
			}
			s.mu.Unlock()
			s.Touch()
		})
	}
}

// Listeners returns the number of connected listeners.
func (s *Surface) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// deliver folds ev into the view and forwards it. Per ref, listeners see
// events in non-decreasing updated_at order; stale and duplicate events are
// dropped. Deleted refs are forgotten.
func (s *Surface) deliver(ev Event) {
	if !s.scope.Match(ev.BrandID) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.lastSeen[ev.Ref]; ok {
		if ev.UpdatedAt.Before(prev.UpdatedAt) {
			return
		}
		if ev.UpdatedAt.Equal(prev.UpdatedAt) && ev.Type == prev.Type {
			return
		}
	}

	s.view.Apply(ev)
	if ev.Type == livesync.EventDeleted {
		// Refs are never reused, so a delete ends the ref's history.
		delete(s.lastSeen, ev.Ref)
	} else {
		s.lastSeen[ev.Ref] = Event{Type: ev.Type, Ref: ev.Ref, UpdatedAt: ev.UpdatedAt}
	}

	for _, ch := range s.listeners {
		select {
		case ch <- ev:
		default:
			s.log.Debug("surface listener full, event dropped",
				slog.String("surface_id", s.id),
				slog.String("ref", ev.Ref.String()))
		}
	}
}

// WaitReady blocks until the surface's first load has finished or ctx ends.
// A failed first load still counts as finished; the view is then empty until
// the next successful poll.
func (s *Surface) WaitReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Surface) run(ctx context.Context) {
	defer close(s.done)

	_, err := s.poller.PollOnce(ctx)
	close(s.ready)
	if err != nil && ctx.Err() == nil {
		s.log.Warn("initial surface load failed",
			slog.String("surface_id", s.id),
			slog.String("error", err.Error()))
	}
	s.poller.Run(ctx)
}

// stop ends polling, drops the hub subscription and closes all listeners.
func (s *Surface) stop() {
	s.unsubscribe()
	s.cancel()
	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, ch := range s.listeners {
		delete(s.listeners, id)
		close(ch)
	}
}

func newSurfaceID() string {
	return uuid.NewString()
}
