package livesync

import (
	"context"
	"errors"
	"testing"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/metrics"
)

const unexpectedErr = "unexpected error: %v"

var base = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func testLead(t *testing.T, brand string) domain.Lead {
	t.Helper()
	l, err := domain.NewLead(domain.NewLeadInput{
		BrandID:       brand,
		CustomerName:  "Cara",
		CustomerEmail: "cara@example.com",
	}, base)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return l
}

func bumped(t *testing.T, l domain.Lead, status domain.LeadStatus, at time.Time) domain.Lead {
	t.Helper()
	next, err := domain.TransitionLead(l, status, at)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return next
}

func TestHubFiltersByScope(t *testing.T) {
	m := metrics.New()
	hub := NewHub(m)

	var gotA, gotAll []Event
	unsubA := hub.Subscribe(domain.Brands("brand-a"), func(ev Event) { gotA = append(gotA, ev) })
	hub.Subscribe(domain.AllBrands(), func(ev Event) { gotAll = append(gotAll, ev) })
	hub.Subscribe(domain.Scope{}, func(ev Event) { t.Fatalf("empty scope must see nothing, got %+v", ev) })

	hub.Publish(Updated(testLead(t, "brand-a"), OriginMutation))
	hub.Publish(Updated(testLead(t, "brand-b"), OriginMutation))

	if len(gotA) != 1 || gotA[0].BrandID != "brand-a" {
		t.Fatalf("expected one brand-a event, got %+v", gotA)
	}
	if len(gotAll) != 2 {
		t.Fatalf("expected platform scope to see both, got %d", len(gotAll))
	}

	unsubA()
	unsubA()
	hub.Publish(Updated(testLead(t, "brand-a"), OriginMutation))
	if len(gotA) != 1 {
		t.Fatalf("expected no delivery after unsubscribe")
	}
	if hub.Subscribers() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.Subscribers())
	}
	if got := m.SyncEventCount(string(EventUpdated), string(OriginMutation)); got != 3 {
		t.Fatalf("expected 3 counted events, got %v", got)
	}
}

func TestViewApplyDropsStaleEvents(t *testing.T) {
	view := NewView()
	l := testLead(t, "brand-a")
	newer := bumped(t, l, domain.LeadStatusContacted, base.Add(time.Minute))
	view.Put(newer)

	if view.Apply(Updated(l, OriginPoll)) {
		t.Fatalf("expected stale event to be dropped")
	}
	if view.Apply(Updated(newer, OriginPoll)) {
		t.Fatalf("expected identical event to be a no-op")
	}

	newest := bumped(t, newer, domain.LeadStatusQualified, base.Add(2*time.Minute))
	if !view.Apply(Updated(newest, OriginMutation)) {
		t.Fatalf("expected newer event to apply")
	}
	rec, _ := view.Get(l.Ref())
	if rec.(domain.Lead).Status != domain.LeadStatusQualified {
		t.Fatalf("expected qualified, got %s", rec.(domain.Lead).Status)
	}

	if !view.Apply(Deleted(l.Ref(), l.BrandID, base.Add(3*time.Minute), OriginMutation)) {
		t.Fatalf("expected delete to apply")
	}
	if view.Len() != 0 {
		t.Fatalf("expected empty view")
	}
}

func TestViewPendingIgnoresEventsUntilRestore(t *testing.T) {
	view := NewView()
	l := testLead(t, "brand-a")
	view.Put(l)

	snap := view.Snapshot(l.Ref())
	optimistic := bumped(t, l, domain.LeadStatusLost, base.Add(time.Minute))
	view.Optimistic(optimistic)

	other := bumped(t, l, domain.LeadStatusContacted, base.Add(2*time.Minute))
	if view.Apply(Updated(other, OriginMutation)) {
		t.Fatalf("expected pending ref to ignore events")
	}

	view.Restore(snap)
	if view.Pending(l.Ref()) {
		t.Fatalf("expected pending cleared")
	}
	rec, _ := view.Get(l.Ref())
	if rec.(domain.Lead).Status != domain.LeadStatusNew {
		t.Fatalf("expected snapshot restored, got %s", rec.(domain.Lead).Status)
	}
}

func TestRestoreOfAbsentRecordRemovesIt(t *testing.T) {
	view := NewView()
	l := testLead(t, "brand-a")

	snap := view.Snapshot(l.Ref())
	view.Optimistic(l)
	view.Restore(snap)

	if _, ok := view.Get(l.Ref()); ok {
		t.Fatalf("expected record absent after restore")
	}
}

func TestViewReturnsCopies(t *testing.T) {
	view := NewView()
	notes := "call after 5pm"
	l := testLead(t, "brand-a")
	l.Notes = &notes
	view.Put(l)

	rec, _ := view.Get(l.Ref())
	got := rec.(domain.Lead)
	*got.Notes = "changed"

	again, _ := view.Get(l.Ref())
	if *again.(domain.Lead).Notes != notes {
		t.Fatalf("expected view to be unaffected by caller mutation")
	}
}

type fakeFetcher struct {
	records []domain.Record
	err     error
}

func (f *fakeFetcher) FetchScope(context.Context, domain.Scope) ([]domain.Record, error) {
	return f.records, f.err
}

func TestPollerIsIdempotent(t *testing.T) {
	view := NewView()
	kept := testLead(t, "brand-a")
	gone := testLead(t, "brand-a")
	view.Put(kept)
	view.Put(gone)

	changed := bumped(t, kept, domain.LeadStatusContacted, base.Add(time.Minute))
	added := testLead(t, "brand-a")
	foreign := testLead(t, "brand-b")
	fetcher := &fakeFetcher{records: []domain.Record{changed, added, foreign}}

	var emitted []Event
	poller := NewPoller(time.Second, domain.Brands("brand-a"), fetcher, view, func(ev Event) {
		emitted = append(emitted, ev)
		view.Apply(ev)
	}, nil)

	n, err := poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if n != 3 {
		t.Fatalf("expected 3 events (update, add, delete), got %d: %+v", n, emitted)
	}
	for _, ev := range emitted {
		if ev.Origin != OriginPoll {
			t.Fatalf("expected poll origin, got %s", ev.Origin)
		}
		if ev.BrandID != "brand-a" {
			t.Fatalf("expected only in-scope events, got %s", ev.BrandID)
		}
	}
	if _, ok := view.Get(gone.Ref()); ok {
		t.Fatalf("expected vanished record removed")
	}

	n, err = poller.PollOnce(context.Background())
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if n != 0 {
		t.Fatalf("expected second poll to emit nothing, got %d", n)
	}
}

func TestPollerSkipsPendingRefs(t *testing.T) {
	view := NewView()
	l := testLead(t, "brand-a")
	view.Optimistic(bumped(t, l, domain.LeadStatusLost, base.Add(time.Minute)))

	poller := NewPoller(time.Second, domain.AllBrands(), &fakeFetcher{records: []domain.Record{l}}, view, func(Event) {
		t.Fatalf("expected no events for pending ref")
	}, nil)

	if _, err := poller.PollOnce(context.Background()); err != nil {
		t.Fatalf(unexpectedErr, err)
	}
}

func TestPollerReportsFetchErrors(t *testing.T) {
	boom := errors.New("store down")
	poller := NewPoller(time.Second, domain.AllBrands(), &fakeFetcher{err: boom}, NewView(), func(Event) {}, nil)

	if _, err := poller.PollOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestPollerRunStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	fetched := make(chan struct{}, 8)
	fetcher := FetcherFunc(func(context.Context, domain.Scope) ([]domain.Record, error) {
		fetched <- struct{}{}
		return nil, nil
	})
	poller := NewPoller(5*time.Millisecond, domain.AllBrands(), fetcher, NewView(), func(Event) {}, nil)

	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	<-fetched
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}
