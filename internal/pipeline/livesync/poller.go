package livesync

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/logger"
)

// Fetcher loads every record currently inside scope from the store.
type Fetcher interface {
	FetchScope(ctx context.Context, scope domain.Scope) ([]domain.Record, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, scope domain.Scope) ([]domain.Record, error)

// FetchScope calls f.
func (f FetcherFunc) FetchScope(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	return f(ctx, scope)
}

// Poller periodically compares a view with the store and emits synthetic
// events for every divergence. Polling twice without intervening changes
// emits nothing the second time.
type Poller struct {
	interval time.Duration
	scope    domain.Scope
	fetcher  Fetcher
	view     *View
	emit     Handler
	now      func() time.Time
	log      *logger.Logger
}

// NewPoller creates a poller for view. emit receives each synthetic event and
// is expected to apply it to the view.
func NewPoller(interval time.Duration, scope domain.Scope, fetcher Fetcher, view *View, emit Handler, log *logger.Logger) *Poller {
	if log == nil {
		log = logger.Discard()
	}
	return &Poller{
		interval: interval,
		scope:    scope,
		fetcher:  fetcher,
		view:     view,
		emit:     emit,
		now:      time.Now,
		log:      log,
	}
}

// Run polls every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := p.PollOnce(ctx); err != nil && ctx.Err() == nil {
				p.log.Warn("sync poll failed", slog.String("error", err.Error()))
			}
		}
	}
}

// PollOnce runs one reconciliation pass and returns the number of events emitted.
func (p *Poller) PollOnce(ctx context.Context) (int, error) {
	records, err := p.fetcher.FetchScope(ctx, p.scope)
	if err != nil {
		return 0, err
	}

	seen := make(map[domain.Ref]struct{}, len(records))
	emitted := 0

	for _, rec := range records {
		if !p.scope.Match(rec.Brand()) {
			continue
		}
		ref := rec.Ref()
		seen[ref] = struct{}{}
		if p.view.Pending(ref) {
			continue
		}
		current, ok := p.view.Get(ref)
		if ok && reflect.DeepEqual(current, rec) {
			continue
		}
		p.emit(Updated(rec, OriginPoll))
		emitted++
	}

	for _, rec := range p.view.Records() {
		ref := rec.Ref()
		if _, ok := seen[ref]; ok || p.view.Pending(ref) {
			continue
		}
		p.emit(Deleted(ref, rec.Brand(), domain.Stamp(p.now()), OriginPoll))
		emitted++
	}

	return emitted, nil
}
