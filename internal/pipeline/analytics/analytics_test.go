package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/platform/metrics"
)

const unexpectedErr = "unexpected error: %v"

var clock = time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return clock }

func cents(v int64) *int64 { return &v }

func addLead(t *testing.T, store *repository.MemoryStore, brand string, created time.Time, value *int64) domain.Lead {
	t.Helper()
	lead, err := domain.NewLead(domain.NewLeadInput{
		BrandID:             brand,
		CustomerName:        "Eve",
		CustomerEmail:       "eve@example.com",
		EstimatedValueCents: value,
	}, created)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	stored, err := store.CreateLead(context.Background(), lead)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return stored
}

func moveLead(t *testing.T, store *repository.MemoryStore, lead domain.Lead, status domain.LeadStatus, at time.Time) domain.Lead {
	t.Helper()
	next, err := domain.TransitionLead(lead, status, at)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	stored, err := store.UpdateLead(context.Background(), next, lead.UpdatedAt)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return stored
}

func addInquiry(t *testing.T, store *repository.MemoryStore, brand string, created time.Time) domain.Inquiry {
	t.Helper()
	q, err := domain.NewInquiry(domain.NewInquiryInput{
		BrandID:       brand,
		CustomerName:  "Finn",
		CustomerEmail: "finn@example.com",
		Subject:       "Wholesale",
		Message:       "Minimum order?",
	}, created)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	stored, err := store.CreateInquiry(context.Background(), q)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	return stored
}

func newAggregator(store Reader, est Estimator, m *metrics.Metrics) *Aggregator {
	return New(store, est, m, nil, Options{
		Lookback:          30 * 24 * time.Hour,
		CommissionRateBps: 1000,
		EstimatorTimeout:  50 * time.Millisecond,
		Now:               fixedNow,
	})
}

func TestFunnelConversionRate(t *testing.T) {
	store := repository.NewMemoryStore()
	for i := 0; i < 10; i++ {
		lead := addLead(t, store, "brand-a", clock.Add(-time.Duration(i)*24*time.Hour), nil)
		if i < 3 {
			moveLead(t, store, lead, domain.LeadStatusConverted, clock)
		}
	}
	addLead(t, store, "brand-b", clock, nil)

	funnel, err := newAggregator(store, nil, nil).ComputeFunnel(context.Background(), domain.Brands("brand-a"), time.UTC)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	if funnel.Total != 10 || funnel.Converted != 3 {
		t.Fatalf("expected 10 total and 3 converted, got %d/%d", funnel.Total, funnel.Converted)
	}
	if math.Abs(funnel.ConversionRate-0.3) > 1e-9 {
		t.Fatalf("expected conversion rate 0.3, got %v", funnel.ConversionRate)
	}
	if funnel.ByStatus[domain.LeadStatusNew] != 7 {
		t.Fatalf("expected 7 new, got %d", funnel.ByStatus[domain.LeadStatusNew])
	}
	if funnel.Today != 1 {
		t.Fatalf("expected 1 lead today, got %d", funnel.Today)
	}
	if funnel.ThisMonth != 10 {
		t.Fatalf("expected 10 leads this month, got %d", funnel.ThisMonth)
	}
}

func TestFunnelEmptyScope(t *testing.T) {
	store := repository.NewMemoryStore()
	addLead(t, store, "brand-a", clock, nil)

	funnel, err := newAggregator(store, nil, nil).ComputeFunnel(context.Background(), domain.Scope{}, time.UTC)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if funnel.Total != 0 || funnel.ConversionRate != 0 {
		t.Fatalf("expected empty funnel with rate 0, got %+v", funnel)
	}
	if _, ok := funnel.ByStatus[domain.LeadStatusClosed]; !ok {
		t.Fatalf("expected every status present in the breakdown")
	}
}

func TestFunnelTodayFollowsTimezone(t *testing.T) {
	store := repository.NewMemoryStore()
	// 23:30 UTC on the 14th is already the 15th in Auckland.
	addLead(t, store, "brand-a", time.Date(2026, 3, 14, 23, 30, 0, 0, time.UTC), nil)

	auckland, err := time.LoadLocation("Pacific/Auckland")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	agg := newAggregator(store, nil, nil)

	utc, err := agg.ComputeFunnel(context.Background(), domain.AllBrands(), time.UTC)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	local, err := agg.ComputeFunnel(context.Background(), domain.AllBrands(), auckland)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if utc.Today != 0 || local.Today != 1 {
		t.Fatalf("expected today 0 in UTC and 1 in Auckland, got %d/%d", utc.Today, local.Today)
	}
}

func TestInquiryFunnelResponseRate(t *testing.T) {
	store := repository.NewMemoryStore()
	q := addInquiry(t, store, "brand-a", clock)
	addInquiry(t, store, "brand-a", clock)
	addInquiry(t, store, "brand-a", clock)
	addInquiry(t, store, "brand-a", clock)

	reply, err := domain.NewReply(q.ID, "owner", "Thanks!", false, clock)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if _, _, err := store.AddReply(context.Background(), reply, domain.ApplyReply(q, reply, clock), q.UpdatedAt); err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	funnel, err := newAggregator(store, nil, nil).ComputeInquiryFunnel(context.Background(), domain.AllBrands(), time.UTC)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if funnel.Total != 4 || funnel.Answered != 1 || funnel.ResponseRate != 0.25 {
		t.Fatalf("expected 1 of 4 answered, got %+v", funnel)
	}
	if funnel.ByStatus[domain.InquiryStatusReplied] != 1 || funnel.ByStatus[domain.InquiryStatusUnread] != 3 {
		t.Fatalf("unexpected breakdown %+v", funnel.ByStatus)
	}
}

func TestTopEntitiesOrderingAndTies(t *testing.T) {
	store := repository.NewMemoryStore()
	recent := clock.Add(-24 * time.Hour)

	// brand-c: highest revenue.
	moveLead(t, store, addLead(t, store, "brand-c", recent, cents(90000)), domain.LeadStatusConverted, clock)
	// brand-a and brand-b tie on revenue; brand-b has more records.
	moveLead(t, store, addLead(t, store, "brand-a", recent, cents(20000)), domain.LeadStatusConverted, clock)
	moveLead(t, store, addLead(t, store, "brand-b", recent, cents(20000)), domain.LeadStatusConverted, clock)
	addInquiry(t, store, "brand-b", recent)
	// brand-d and brand-e tie on revenue and records; brand ID decides.
	addLead(t, store, "brand-e", recent, nil)
	addLead(t, store, "brand-d", recent, nil)
	// Converted outside the window does not count.
	old := addLead(t, store, "brand-e", clock.Add(-90*24*time.Hour), cents(500000))
	moveLead(t, store, old, domain.LeadStatusConverted, clock.Add(-60*24*time.Hour))

	ranked, err := newAggregator(store, nil, nil).ComputeTopEntities(context.Background(), domain.AllBrands(), 10)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}

	want := []string{"brand-c", "brand-b", "brand-a", "brand-d", "brand-e"}
	if len(ranked) != len(want) {
		t.Fatalf("expected %d brands, got %d: %+v", len(want), len(ranked), ranked)
	}
	for i, id := range want {
		if ranked[i].BrandID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].BrandID)
		}
	}
	if ranked[0].RevenueCents != 90000 || ranked[0].CommissionCents != 9000 {
		t.Fatalf("expected revenue 90000 and commission 9000, got %+v", ranked[0])
	}
	if ranked[1].RecordCount != 2 {
		t.Fatalf("expected brand-b to count lead and inquiry, got %d", ranked[1].RecordCount)
	}

	top2, err := newAggregator(store, nil, nil).ComputeTopEntities(context.Background(), domain.Brands("brand-a", "brand-d"), 1)
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if len(top2) != 1 || top2[0].BrandID != "brand-a" {
		t.Fatalf("expected k and scope honoured, got %+v", top2)
	}
}

func TestTopEntitiesRejectsNonPositiveK(t *testing.T) {
	_, err := newAggregator(repository.NewMemoryStore(), nil, nil).ComputeTopEntities(context.Background(), domain.AllBrands(), 0)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCommissionRounding(t *testing.T) {
	agg := New(repository.NewMemoryStore(), nil, nil, nil, Options{CommissionRateBps: 250})
	cases := []struct {
		revenue int64
		want    int64
	}{
		{0, 0},
		{100, 3},
		{1000, 25},
		{19, 0},
		{20, 1},
	}
	for _, tc := range cases {
		if got := agg.Commission(tc.revenue); got != tc.want {
			t.Fatalf("commission(%d): expected %d, got %d", tc.revenue, tc.want, got)
		}
	}
}

type fakeEstimator struct {
	value int64
	err   error
	delay time.Duration
	calls int
}

func (f *fakeEstimator) EstimateLeads(ctx context.Context, leads []domain.Lead) (int64, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	return f.value, f.err
}

func TestEstimatePipelineValue(t *testing.T) {
	leads := []domain.Lead{
		{EstimatedValueCents: cents(1000)},
		{EstimatedValueCents: cents(2500)},
		{},
	}

	cases := []struct {
		name      string
		estimator *fakeEstimator
		total     int64
		source    string
		fallbacks float64
	}{
		{"no estimator", nil, 3500, SourceExplicit, 0},
		{"estimated", &fakeEstimator{value: 700}, 4200, SourceEstimated, 0},
		{"error", &fakeEstimator{err: errors.New("boom")}, 3500, SourceFallback, 1},
		{"timeout", &fakeEstimator{value: 700, delay: time.Second}, 3500, SourceFallback, 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := metrics.New()
			var est Estimator
			if tc.estimator != nil {
				est = tc.estimator
			}
			got := newAggregator(repository.NewMemoryStore(), est, m).EstimatePipelineValue(context.Background(), leads)

			if got.TotalCents != tc.total || got.Source != tc.source {
				t.Fatalf("expected %d via %s, got %d via %s", tc.total, tc.source, got.TotalCents, got.Source)
			}
			if got.ValuedCount != 2 || got.UnvaluedCount != 1 || got.ExplicitCents != 3500 {
				t.Fatalf("unexpected counts %+v", got)
			}
			if n := m.ValuationFallbackCount(); n != tc.fallbacks {
				t.Fatalf("expected %v fallbacks, got %v", tc.fallbacks, n)
			}
		})
	}
}

func TestEstimatorSkippedWhenAllValued(t *testing.T) {
	est := &fakeEstimator{value: 1}
	got := newAggregator(repository.NewMemoryStore(), est, nil).EstimatePipelineValue(context.Background(), []domain.Lead{{EstimatedValueCents: cents(5)}})
	if est.calls != 0 || got.Source != SourceExplicit || got.TotalCents != 5 {
		t.Fatalf("expected explicit total without estimator call, got %+v (calls %d)", got, est.calls)
	}
}

func TestPipelineValueForScopeIgnoresClosedLeads(t *testing.T) {
	store := repository.NewMemoryStore()
	addLead(t, store, "brand-a", clock, cents(100))
	won := addLead(t, store, "brand-a", clock, cents(900))
	moveLead(t, store, won, domain.LeadStatusConverted, clock)
	addLead(t, store, "brand-b", clock, cents(50))

	got, err := newAggregator(store, nil, nil).PipelineValueForScope(context.Background(), domain.Brands("brand-a"))
	if err != nil {
		t.Fatalf(unexpectedErr, err)
	}
	if got.TotalCents != 100 {
		t.Fatalf("expected only the open brand-a lead, got %d", got.TotalCents)
	}
}
