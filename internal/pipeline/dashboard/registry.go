package dashboard

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/pipeline/coordinator"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"
)

const (
	defaultPollInterval = 30 * time.Second
	defaultIdleTTL      = 15 * time.Minute
)

// Deps configure a Registry. Bus, Metrics and Log are optional.
type Deps struct {
	Store           coordinator.Store
	Policy          coordinator.Policy
	Hub             *livesync.Hub
	Bus             events.Bus
	Metrics         *metrics.Metrics
	Log             *logger.Logger
	MutationTimeout time.Duration
	PollInterval    time.Duration
	IdleTTL         time.Duration
}

// Registry keeps one surface per user. Surfaces start on first use and stop
// after IdleTTL without requests or connected listeners.
type Registry struct {
	deps    Deps
	fetcher livesync.Fetcher
	log     *logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	surfaces map[string]*Surface
}

// NewRegistry creates a registry. Surfaces poll until Close is called.
func NewRegistry(deps Deps) *Registry {
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	if deps.IdleTTL <= 0 {
		deps.IdleTTL = defaultIdleTTL
	}
	if deps.Log == nil {
		deps.Log = logger.Discard()
	}
	if deps.Hub == nil {
		deps.Hub = livesync.NewHub(deps.Metrics)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		deps:     deps,
		fetcher:  NewStoreFetcher(deps.Store),
		log:      deps.Log,
		ctx:      ctx,
		cancel:   cancel,
		surfaces: make(map[string]*Surface),
	}
}

// Hub returns the hub shared by all surfaces.
func (r *Registry) Hub() *livesync.Hub { return r.deps.Hub }

// Surface returns the caller's surface, starting it if needed. A surface
// opened for a different role or brand set is replaced.
func (r *Registry) Surface(id domain.Identity) *Surface {
	scope := r.deps.Policy.VisibilityFilter(id)

	r.mu.Lock()
	existing, ok := r.surfaces[id.UserID]
	if ok && existing.identity.Role == id.Role && reflect.DeepEqual(existing.scope, scope) {
		r.mu.Unlock()
		existing.Touch()
		return existing
	}

	s := r.open(id, scope)
	r.surfaces[id.UserID] = s
	r.mu.Unlock()

	if ok {
		existing.stop()
	}
	return s
}

func (r *Registry) open(id domain.Identity, scope domain.Scope) *Surface {
	view := livesync.NewView()
	s := &Surface{
		id:        newSurfaceID(),
		identity:  id,
		scope:     scope,
		view:      view,
		log:       r.log,
		ready:     make(chan struct{}),
		done:      make(chan struct{}),
		lastSeen:  make(map[domain.Ref]Event),
		listeners: make(map[uint64]chan Event),
	}
	s.coord = coordinator.New(coordinator.Deps{
		Store:   r.deps.Store,
		Policy:  r.deps.Policy,
		View:    view,
		Hub:     r.deps.Hub,
		Bus:     r.deps.Bus,
		Metrics: r.deps.Metrics,
		Log:     r.log.WithUserID(id.UserID),
		Timeout: r.deps.MutationTimeout,
	})
	s.poller = livesync.NewPoller(r.deps.PollInterval, scope, r.fetcher, view, s.deliver, r.log)
	s.unsubscribe = r.deps.Hub.Subscribe(scope, s.deliver)
	s.Touch()

	ctx, cancel := context.WithCancel(r.ctx)
	s.cancel = cancel
	go s.run(ctx)

	r.log.Debug("surface opened",
		slog.String("surface_id", s.id),
		slog.String("user_id", id.UserID),
		slog.String("role", string(id.Role)))
	return s
}

// Sweep stops surfaces idle since before now-IdleTTL that have no listeners
// and returns how many were stopped.
func (r *Registry) Sweep(now time.Time) int {
	cutoff := now.Add(-r.deps.IdleTTL)

	r.mu.Lock()
	var idle []*Surface
	for userID, s := range r.surfaces {
		if s.Listeners() == 0 && s.idleSince().Before(cutoff) {
			idle = append(idle, s)
			delete(r.surfaces, userID)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		s.stop()
		r.log.Debug("surface expired", slog.String("surface_id", s.id))
	}
	return len(idle)
}

// Run sweeps idle surfaces until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	interval := r.deps.IdleTTL / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Sweep(now)
		}
	}
}

// Len returns the number of open surfaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.surfaces)
}

// Close stops every surface.
func (r *Registry) Close() {
	r.mu.Lock()
	all := make([]*Surface, 0, len(r.surfaces))
	for userID, s := range r.surfaces {
		all = append(all, s)
		delete(r.surfaces, userID)
	}
	r.mu.Unlock()

	for _, s := range all {
		s.stop()
	}
	r.cancel()
}
