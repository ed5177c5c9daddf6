package dashboard

import (
	"context"
	"testing"
	"time"

	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"
)

const unexpectedErr = "unexpected error: %v"

var (
	ownerA  = domain.Identity{UserID: "owner-a", Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{"brand-a"}}
	helperA = domain.Identity{UserID: "helper-a", Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{"brand-a"}}
	ownerB  = domain.Identity{UserID: "owner-b", Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{"brand-b"}}
)

func newRegistry(t *testing.T, store *repository.MemoryStore) *Registry {
	t.Helper()
	reg := NewRegistry(Deps{
		Store:           store,
		Policy:          access.NewEvaluator(access.AdminScopes{}),
		MutationTimeout: time.Second,
		PollInterval:    time.Hour,
		IdleTTL:         time.Minute,
	})
	t.Cleanup(reg.Close)
	return reg
}

func seedLead(t *testing.T, store *repository.MemoryStore, brand string) domain.Lead {
	t.Helper()
	lead, err := domain.NewLead(domain.NewLeadInput{
		BrandID:       brand,
		CustomerName:  "Dina",
		CustomerEmail: "dina@example.com",
	}, time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	stored, err := store.CreateLead(context.Background(), lead)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return stored
}

func waitForStatus(t *testing.T, ch <-chan Event, ref domain.Ref, status domain.LeadStatus) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("listener closed")
			}
			if ev.Ref != ref || ev.Record == nil {
				continue
			}
			if ev.Record.(domain.Lead).Status == status {
				return ev
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s on %s", status, ref)
		}
	}
}

func TestMutationReachesOtherSurfacesInScope(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := newRegistry(t, store)
	lead := seedLead(t, store, "brand-a")

	first := reg.Surface(ownerA)
	second := reg.Surface(helperA)
	foreign := reg.Surface(ownerB)

	secondEvents, stopSecond := second.Listen(16)
	defer stopSecond()
	foreignEvents, stopForeign := foreign.Listen(16)
	defer stopForeign()

	if _, err := first.Coordinator().UpdateStatus(context.Background(), ownerA, lead.Ref(), "contacted"); err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	ev := waitForStatus(t, secondEvents, lead.Ref(), domain.LeadStatusContacted)
	if ev.Origin != livesync.OriginMutation {
		t.Fatalf("expected mutation origin, got %s", ev.Origin)
	}
	rec, ok := second.View().Get(lead.Ref())
	if !ok || rec.(domain.Lead).Status != domain.LeadStatusContacted {
		t.Fatalf("expected second surface view updated")
	}

	select {
	case ev := <-foreignEvents:
		t.Fatalf("foreign surface received out-of-scope event %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDeliverDropsStaleEvents(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := newRegistry(t, store)
	s := reg.Surface(ownerA)

	lead := seedLead(t, store, "brand-a")
	newer, err := domain.TransitionLead(lead, domain.LeadStatusQualified, time.Now())
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	ch, stop := s.Listen(8)
	defer stop()

	s.deliver(livesync.Updated(newer, livesync.OriginMutation))
	s.deliver(livesync.Updated(lead, livesync.OriginPoll))
	s.deliver(livesync.Updated(newer, livesync.OriginPoll))

	got := waitForStatus(t, ch, lead.Ref(), domain.LeadStatusQualified)
	if !got.UpdatedAt.Equal(newer.UpdatedAt) {
		t.Fatalf("expected newest version first")
	}
	select {
	case ev := <-ch:
		if ev.Ref == lead.Ref() {
			t.Fatalf("expected stale and duplicate events dropped, got %+v", ev)
		}
	case <-time.After(20 * time.Millisecond):
	}
}

func TestWaitReadyAfterFirstLoad(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := newRegistry(t, store)
	seedLead(t, store, "brand-a")
	seedLead(t, store, "brand-a")
	seedLead(t, store, "brand-b")

	s := reg.Surface(ownerA)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if n := s.View().Len(); n != 2 {
		t.Fatalf("expected 2 records after the first load, got %d", n)
	}
}

func TestWaitReadyHonoursContext(t *testing.T) {
	s := &Surface{ready: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.WaitReady(ctx); err == nil {
		t.Fatalf("expected context error before the first load")
	}
}

func TestDeliverForgetsDeletedRefs(t *testing.T) {
	store := repository.NewMemoryStore()
	reg := newRegistry(t, store)
	s := reg.Surface(ownerA)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.WaitReady(ctx); err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	lead := seedLead(t, store, "brand-a")
	ch, stop := s.Listen(8)
	defer stop()

	s.deliver(livesync.Updated(lead, livesync.OriginMutation))
	s.deliver(livesync.Deleted(lead.Ref(), lead.BrandID, lead.UpdatedAt.Add(time.Second), livesync.OriginMutation))

	var types []livesync.EventType
	for len(types) < 2 {
		select {
		case ev := <-ch:
			if ev.Ref == lead.Ref() {
				types = append(types, ev.Type)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for events, got %v", types)
		}
	}
	if types[0] != livesync.EventUpdated || types[1] != livesync.EventDeleted {
		t.Fatalf("expected updated then deleted, got %v", types)
	}

	s.mu.Lock()
	remaining := len(s.lastSeen)
	s.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected deleted ref forgotten, %d entries left", remaining)
	}
	if _, ok := s.View().Get(lead.Ref()); ok {
		t.Fatalf("expected deleted record removed from the view")
	}
}

func TestRegistryReusesAndReplacesSurfaces(t *testing.T) {
	reg := newRegistry(t, repository.NewMemoryStore())

	s1 := reg.Surface(ownerA)
	if again := reg.Surface(ownerA); again.ID() != s1.ID() {
		t.Fatalf("expected the same surface for the same identity")
	}

	widened := ownerA
	widened.OwnedBrandIDs = []string{"brand-a", "brand-c"}
	s2 := reg.Surface(widened)
	if s2.ID() == s1.ID() {
		t.Fatalf("expected a new surface after the brand set changed")
	}
	if !s2.Scope().Match("brand-c") {
		t.Fatalf("expected widened scope")
	}
	if reg.Len() != 1 {
		t.Fatalf("expected one surface per user, got %d", reg.Len())
	}
}

func TestSweepStopsIdleSurfaces(t *testing.T) {
	reg := newRegistry(t, repository.NewMemoryStore())

	idle := reg.Surface(ownerA)
	busy := reg.Surface(ownerB)
	_, stop := busy.Listen(1)
	defer stop()

	if n := reg.Sweep(time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("expected one surface swept, got %d", n)
	}
	if reg.Len() != 1 {
		t.Fatalf("expected the listened surface to survive")
	}
	if reg.Surface(ownerA).ID() == idle.ID() {
		t.Fatalf("expected a fresh surface after expiry")
	}
}

func TestStopClosesListeners(t *testing.T) {
	reg := newRegistry(t, repository.NewMemoryStore())
	s := reg.Surface(ownerA)
	ch, stop := s.Listen(1)

	reg.Close()
	if _, ok := <-ch; ok {
		t.Fatalf("expected listener channel closed")
	}
	stop()
}

func TestStoreFetcherHonoursScope(t *testing.T) {
	store := repository.NewMemoryStore()
	seedLead(t, store, "brand-a")
	seedLead(t, store, "brand-b")

	records, err := NewStoreFetcher(store).FetchScope(context.Background(), domain.Brands("brand-a"))
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if len(records) != 1 || records[0].Brand() != "brand-a" {
		t.Fatalf("expected only brand-a records, got %d", len(records))
	}

	none, err := NewStoreFetcher(store).FetchScope(context.Background(), domain.Scope{})
	if err != nil || len(none) != 0 {
		t.Fatalf("expected empty scope to fetch nothing, got %d (%v)", len(none), err)
	}
}
