package dashboard

import (
	"context"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"

	"golang.org/x/sync/errgroup"
)

// ScopeReader lists records for a scope.
type ScopeReader interface {
	repository.LeadReader
	repository.InquiryReader
}

type storeFetcher struct {
	store ScopeReader
}

// NewStoreFetcher loads every lead and inquiry inside a scope, both lists in parallel.
func NewStoreFetcher(store ScopeReader) livesync.Fetcher {
	return storeFetcher{store: store}
}

func (f storeFetcher) FetchScope(ctx context.Context, scope domain.Scope) ([]domain.Record, error) {
	if scope.Empty() {
		return nil, nil
	}

	var leads repository.Page[domain.Lead]
	var inquiries repository.Page[domain.Inquiry]

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		leads, err = f.store.ListLeads(gctx, repository.ListParams{Scope: scope})
		return err
	})
	g.Go(func() error {
		var err error
		inquiries, err = f.store.ListInquiries(gctx, repository.ListParams{Scope: scope})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Record, 0, len(leads.Items)+len(inquiries.Items))
	for _, l := range leads.Items {
		out = append(out, l)
	}
	for _, q := range inquiries.Items {
		out = append(out, q)
	}
	return out, nil
}
