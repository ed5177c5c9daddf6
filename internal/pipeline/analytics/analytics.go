// Package analytics computes funnel, ranking and pipeline value reports over
// the records a caller may see.
package analytics

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"

	"golang.org/x/sync/errgroup"
)

const (
	defaultLookback         = 30 * 24 * time.Hour
	defaultEstimatorTimeout = 2 * time.Second
	maxTopK                 = 100
	basisPoints             = 10000
)

// Value sources reported by PipelineValue.
const (
	SourceExplicit  = "explicit"
	SourceEstimated = "estimated"
	SourceFallback  = "fallback"
)

// Reader is the part of the store the aggregator reads.
type Reader interface {
	repository.AnalyticsReader
	repository.LeadReader
}

// Estimator values leads that carry no explicit estimate. It returns the
// combined estimate in cents.
type Estimator interface {
	EstimateLeads(ctx context.Context, leads []domain.Lead) (int64, error)
}

// Options tune the aggregator. Zero values fall back to defaults.
type Options struct {
	Lookback          time.Duration
	CommissionRateBps int64
	EstimatorTimeout  time.Duration
	Now               func() time.Time
}

// Aggregator computes reports on demand. It holds no state between calls.
type Aggregator struct {
	store     Reader
	estimator Estimator
	metrics   *metrics.Metrics
	log       *logger.Logger

	lookback      time.Duration
	commissionBps int64
	timeout       time.Duration
	now           func() time.Time
}

// New creates an aggregator. estimator, m and log may be nil.
func New(store Reader, estimator Estimator, m *metrics.Metrics, log *logger.Logger, opts Options) *Aggregator {
	a := &Aggregator{
		store:         store,
		estimator:     estimator,
		metrics:       m,
		log:           log,
		lookback:      opts.Lookback,
		commissionBps: opts.CommissionRateBps,
		timeout:       opts.EstimatorTimeout,
		now:           opts.Now,
	}
	if a.log == nil {
		a.log = logger.Discard()
	}
	if a.lookback <= 0 {
		a.lookback = defaultLookback
	}
	if a.timeout <= 0 {
		a.timeout = defaultEstimatorTimeout
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// FunnelMetrics summarizes leads per status.
type FunnelMetrics struct {
	ByStatus       map[domain.LeadStatus]int `json:"byStatus"`
	Total          int                       `json:"total"`
	Converted      int                       `json:"converted"`
	ConversionRate float64                   `json:"conversionRate"`
	Today          int                       `json:"today"`
	ThisMonth      int                       `json:"thisMonth"`
}

// InquiryFunnelMetrics summarizes inquiries per status.
type InquiryFunnelMetrics struct {
	ByStatus     map[domain.InquiryStatus]int `json:"byStatus"`
	Total        int                          `json:"total"`
	Answered     int                          `json:"answered"`
	ResponseRate float64                      `json:"responseRate"`
	Today        int                          `json:"today"`
	ThisMonth    int                          `json:"thisMonth"`
}

// RankedBrand is one row of the top brands report.
type RankedBrand struct {
	BrandID         string `json:"brandId"`
	RevenueCents    int64  `json:"revenueCents"`
	CommissionCents int64  `json:"commissionCents"`
	ConvertedCount  int    `json:"convertedCount"`
	LeadCount       int    `json:"leadCount"`
	InquiryCount    int    `json:"inquiryCount"`
	RecordCount     int    `json:"recordCount"`
}

// PipelineValue is the value of a set of open leads.
type PipelineValue struct {
	TotalCents     int64  `json:"totalCents"`
	ExplicitCents  int64  `json:"explicitCents"`
	EstimatedCents int64  `json:"estimatedCents"`
	ValuedCount    int    `json:"valuedCount"`
	UnvaluedCount  int    `json:"unvaluedCount"`
	Source         string `json:"source"`
}

// periodStarts returns the start of the current day and month in loc.
func periodStarts(now time.Time, loc *time.Location) (day, month time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	month = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return day.UTC(), month.UTC()
}

func rate(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total)
}

func sum[K comparable](counts map[K]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// ComputeFunnel counts leads in scope. Today and ThisMonth use created_at
// against calendar boundaries in loc.
func (a *Aggregator) ComputeFunnel(ctx context.Context, scope domain.Scope, loc *time.Location) (FunnelMetrics, error) {
	day, month := periodStarts(a.now(), loc)

	var all, today, thisMonth repository.LeadCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		all, err = a.store.CountLeads(gctx, repository.CountParams{Scope: scope})
		return err
	})
	g.Go(func() (err error) {
		today, err = a.store.CountLeads(gctx, repository.CountParams{Scope: scope, CreatedFrom: &day})
		return err
	})
	g.Go(func() (err error) {
		thisMonth, err = a.store.CountLeads(gctx, repository.CountParams{Scope: scope, CreatedFrom: &month})
		return err
	})
	if err := g.Wait(); err != nil {
		return FunnelMetrics{}, fmt.Errorf("count leads: %w", err)
	}

	out := FunnelMetrics{
		ByStatus:  make(map[domain.LeadStatus]int, len(domain.LeadStatuses)),
		Today:     sum(today),
		ThisMonth: sum(thisMonth),
	}
	for _, status := range domain.LeadStatuses {
		out.ByStatus[status] = all[status]
	}
	out.Total = sum(all)
	out.Converted = all[domain.LeadStatusConverted]
	out.ConversionRate = rate(out.Converted, out.Total)
	return out, nil
}

// ComputeInquiryFunnel counts inquiries in scope. ResponseRate is the share of
// inquiries with at least one customer-facing reply.
func (a *Aggregator) ComputeInquiryFunnel(ctx context.Context, scope domain.Scope, loc *time.Location) (InquiryFunnelMetrics, error) {
	day, month := periodStarts(a.now(), loc)

	var all, today, thisMonth repository.InquiryCounts
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		all, err = a.store.CountInquiries(gctx, repository.CountParams{Scope: scope})
		return err
	})
	g.Go(func() (err error) {
		today, err = a.store.CountInquiries(gctx, repository.CountParams{Scope: scope, CreatedFrom: &day})
		return err
	})
	g.Go(func() (err error) {
		thisMonth, err = a.store.CountInquiries(gctx, repository.CountParams{Scope: scope, CreatedFrom: &month})
		return err
	})
	if err := g.Wait(); err != nil {
		return InquiryFunnelMetrics{}, fmt.Errorf("count inquiries: %w", err)
	}

	out := InquiryFunnelMetrics{
		ByStatus:  make(map[domain.InquiryStatus]int, len(domain.InquiryStatuses)),
		Answered:  all.Answered,
		Today:     sum(today.ByStatus),
		ThisMonth: sum(thisMonth.ByStatus),
	}
	for _, status := range domain.InquiryStatuses {
		out.ByStatus[status] = all.ByStatus[status]
	}
	out.Total = sum(all.ByStatus)
	out.ResponseRate = rate(out.Answered, out.Total)
	return out, nil
}

// Commission returns revenue times the configured rate, rounded half up.
func (a *Aggregator) Commission(revenueCents int64) int64 {
	if revenueCents <= 0 || a.commissionBps <= 0 {
		return 0
	}
	return (revenueCents*a.commissionBps + basisPoints/2) / basisPoints
}

// ComputeTopEntities ranks brands in scope over the lookback window by
// converted revenue, then by records created in the window, then by brand ID.
func (a *Aggregator) ComputeTopEntities(ctx context.Context, scope domain.Scope, k int) ([]RankedBrand, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive", domain.ErrValidation)
	}
	if k > maxTopK {
		k = maxTopK
	}

	since := domain.Stamp(a.now().Add(-a.lookback))

	var leadStats []repository.BrandLeadStat
	var inquiryCounts map[string]int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		leadStats, err = a.store.BrandLeadStats(gctx, scope, since)
		return err
	})
	g.Go(func() (err error) {
		inquiryCounts, err = a.store.BrandInquiryCounts(gctx, scope, since)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("brand stats: %w", err)
	}

	byBrand := make(map[string]*RankedBrand, len(leadStats)+len(inquiryCounts))
	row := func(brandID string) *RankedBrand {
		r, ok := byBrand[brandID]
		if !ok {
			r = &RankedBrand{BrandID: brandID}
			byBrand[brandID] = r
		}
		return r
	}
	for _, stat := range leadStats {
		r := row(stat.BrandID)
		r.RevenueCents = stat.ConvertedValueCents
		r.ConvertedCount = stat.ConvertedCount
		r.LeadCount = stat.CreatedCount
	}
	for brandID, n := range inquiryCounts {
		row(brandID).InquiryCount = n
	}

	ranked := make([]RankedBrand, 0, len(byBrand))
	for _, r := range byBrand {
		if !scope.Match(r.BrandID) {
			continue
		}
		r.RecordCount = r.LeadCount + r.InquiryCount
		r.CommissionCents = a.Commission(r.RevenueCents)
		ranked = append(ranked, *r)
	}

	slices.SortFunc(ranked, func(x, y RankedBrand) int {
		if c := cmp.Compare(y.RevenueCents, x.RevenueCents); c != 0 {
			return c
		}
		if c := cmp.Compare(y.RecordCount, x.RecordCount); c != 0 {
			return c
		}
		return cmp.Compare(x.BrandID, y.BrandID)
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked, nil
}

// EstimatePipelineValue sums explicit values and asks the estimator for the
// rest. Without an estimator, or when it fails, only explicit values count.
func (a *Aggregator) EstimatePipelineValue(ctx context.Context, leads []domain.Lead) PipelineValue {
	var out PipelineValue
	var unvalued []domain.Lead

	for _, l := range leads {
		if l.EstimatedValueCents != nil {
			out.ExplicitCents += *l.EstimatedValueCents
			out.ValuedCount++
			continue
		}
		unvalued = append(unvalued, l)
	}
	out.UnvaluedCount = len(unvalued)
	out.TotalCents = out.ExplicitCents
	out.Source = SourceExplicit

	if len(unvalued) == 0 || a.estimator == nil {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	estimated, err := a.estimator.EstimateLeads(ctx, unvalued)
	if err != nil || estimated < 0 {
		a.metrics.IncrValuationFallback()
		if err != nil {
			a.log.Warn("valuation estimate unavailable, using explicit values",
				slog.Int("unvalued", len(unvalued)),
				slog.String("error", err.Error()))
		}
		out.Source = SourceFallback
		return out
	}

	out.EstimatedCents = estimated
	out.TotalCents += estimated
	out.Source = SourceEstimated
	return out
}

// PipelineValueForScope values the open (non-terminal) leads in scope.
func (a *Aggregator) PipelineValueForScope(ctx context.Context, scope domain.Scope) (PipelineValue, error) {
	open := make([]string, 0, len(domain.LeadStatuses))
	for _, status := range domain.LeadStatuses {
		if !domain.IsTerminalLeadStatus(status) {
			open = append(open, string(status))
		}
	}

	page, err := a.store.ListLeads(ctx, repository.ListParams{Scope: scope, Statuses: open})
	if err != nil {
		return PipelineValue{}, fmt.Errorf("list open leads: %w", err)
	}
	return a.EstimatePipelineValue(ctx, page.Items), nil
}
