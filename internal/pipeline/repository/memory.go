package repository

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used for local development
// (STORE_DRIVER=memory) and as the store in tests. Values are cloned on the
// way in and out, so callers never share memory with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	leads        map[uuid.UUID]domain.Lead
	interactions map[uuid.UUID][]domain.LeadInteraction
	inquiries    map[uuid.UUID]domain.Inquiry
	replies      map[uuid.UUID][]domain.Reply
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		leads:        make(map[uuid.UUID]domain.Lead),
		interactions: make(map[uuid.UUID][]domain.LeadInteraction),
		inquiries:    make(map[uuid.UUID]domain.Inquiry),
		replies:      make(map[uuid.UUID][]domain.Reply),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return domain.Lead{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[id]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	return lead.Clone(), nil
}

func (s *MemoryStore) ListLeads(ctx context.Context, params ListParams) (Page[domain.Lead], error) {
	if err := ctx.Err(); err != nil {
		return Page[domain.Lead]{}, err
	}
	s.mu.RLock()
	items := make([]domain.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if matchesLead(lead, params) {
			items = append(items, lead.Clone())
		}
	}
	s.mu.RUnlock()

	col := sortColumn(leadSortColumns, params.SortBy)
	slices.SortFunc(items, func(a, b domain.Lead) int {
		c := compareLeads(a, b, col)
		if descending(params.SortOrder) {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})

	return Page[domain.Lead]{Items: paginate(items, params.Limit, params.Offset), Total: len(items)}, nil
}

func (s *MemoryStore) CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return domain.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.leads[lead.ID]; exists {
		return domain.Lead{}, ErrConflict
	}
	s.leads[lead.ID] = lead.Clone()
	return lead.Clone(), nil
}

func (s *MemoryStore) UpdateLead(ctx context.Context, lead domain.Lead, expectedUpdatedAt time.Time) (domain.Lead, error) {
	if err := ctx.Err(); err != nil {
		return domain.Lead{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.leads[lead.ID]
	if !ok {
		return domain.Lead{}, ErrNotFound
	}
	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.Lead{}, ErrConflict
	}
	// Ownership and creation time are immutable.
	lead.BrandID = current.BrandID
	lead.CreatedAt = current.CreatedAt
	s.leads[lead.ID] = lead.Clone()
	return lead.Clone(), nil
}

func (s *MemoryStore) DeleteLead(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[id]; !ok {
		return ErrNotFound
	}
	delete(s.leads, id)
	delete(s.interactions, id)
	return nil
}

func (s *MemoryStore) AddInteraction(ctx context.Context, interaction domain.LeadInteraction) (domain.LeadInteraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.LeadInteraction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[interaction.LeadID]; !ok {
		return domain.LeadInteraction{}, ErrNotFound
	}
	s.interactions[interaction.LeadID] = append(s.interactions[interaction.LeadID], interaction)
	return interaction, nil
}

func (s *MemoryStore) ListInteractions(ctx context.Context, leadID uuid.UUID) ([]domain.LeadInteraction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.interactions[leadID])
	slices.SortStableFunc(out, func(a, b domain.LeadInteraction) int {
		return a.InteractionDate.Compare(b.InteractionDate)
	})
	if out == nil {
		out = []domain.LeadInteraction{}
	}
	return out, nil
}

func (s *MemoryStore) GetInquiry(ctx context.Context, id uuid.UUID) (domain.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Inquiry{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	inquiry, ok := s.inquiries[id]
	if !ok {
		return domain.Inquiry{}, ErrNotFound
	}
	return inquiry.Clone(), nil
}

func (s *MemoryStore) ListInquiries(ctx context.Context, params ListParams) (Page[domain.Inquiry], error) {
	if err := ctx.Err(); err != nil {
		return Page[domain.Inquiry]{}, err
	}
	s.mu.RLock()
	items := make([]domain.Inquiry, 0, len(s.inquiries))
	for _, inquiry := range s.inquiries {
		if matchesInquiry(inquiry, params) {
			items = append(items, inquiry.Clone())
		}
	}
	s.mu.RUnlock()

	col := sortColumn(inquirySortColumns, params.SortBy)
	slices.SortFunc(items, func(a, b domain.Inquiry) int {
		c := compareInquiries(a, b, col)
		if descending(params.SortOrder) {
			c = -c
		}
		if c == 0 {
			c = strings.Compare(a.ID.String(), b.ID.String())
		}
		return c
	})

	return Page[domain.Inquiry]{Items: paginate(items, params.Limit, params.Offset), Total: len(items)}, nil
}

func (s *MemoryStore) CreateInquiry(ctx context.Context, inquiry domain.Inquiry) (domain.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Inquiry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.inquiries[inquiry.ID]; exists {
		return domain.Inquiry{}, ErrConflict
	}
	s.inquiries[inquiry.ID] = inquiry.Clone()
	return inquiry.Clone(), nil
}

func (s *MemoryStore) UpdateInquiry(ctx context.Context, inquiry domain.Inquiry, expectedUpdatedAt time.Time) (domain.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Inquiry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateInquiryLocked(inquiry, expectedUpdatedAt)
}

func (s *MemoryStore) updateInquiryLocked(inquiry domain.Inquiry, expectedUpdatedAt time.Time) (domain.Inquiry, error) {
	current, ok := s.inquiries[inquiry.ID]
	if !ok {
		return domain.Inquiry{}, ErrNotFound
	}
	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.Inquiry{}, ErrConflict
	}
	inquiry.BrandID = current.BrandID
	inquiry.CreatedAt = current.CreatedAt
	inquiry.ReplyCount = current.ReplyCount
	s.inquiries[inquiry.ID] = inquiry.Clone()
	return inquiry.Clone(), nil
}

func (s *MemoryStore) DeleteInquiry(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.inquiries[id]; !ok {
		return ErrNotFound
	}
	delete(s.inquiries, id)
	delete(s.replies, id)
	return nil
}

func (s *MemoryStore) AddReply(ctx context.Context, reply domain.Reply, inquiry domain.Inquiry, expectedUpdatedAt time.Time) (domain.Reply, domain.Inquiry, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reply{}, domain.Inquiry{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.inquiries[reply.InquiryID]
	if !ok {
		return domain.Reply{}, domain.Inquiry{}, ErrNotFound
	}

	if reply.IsInternalNote {
		s.replies[reply.InquiryID] = append(s.replies[reply.InquiryID], reply)
		return reply, current.Clone(), nil
	}

	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return domain.Reply{}, domain.Inquiry{}, ErrConflict
	}
	inquiry.ReplyCount = current.ReplyCount + 1
	inquiry.BrandID = current.BrandID
	inquiry.CreatedAt = current.CreatedAt
	s.inquiries[inquiry.ID] = inquiry.Clone()
	s.replies[reply.InquiryID] = append(s.replies[reply.InquiryID], reply)
	return reply, inquiry.Clone(), nil
}

func (s *MemoryStore) ListReplies(ctx context.Context, inquiryID uuid.UUID) ([]domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := slices.Clone(s.replies[inquiryID])
	if out == nil {
		out = []domain.Reply{}
	}
	return out, nil
}

func (s *MemoryStore) CountLeads(ctx context.Context, params CountParams) (LeadCounts, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := LeadCounts{}
	for _, lead := range s.leads {
		if !params.Scope.Match(lead.BrandID) || !createdSince(lead.CreatedAt, params.CreatedFrom) {
			continue
		}
		counts[lead.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CountInquiries(ctx context.Context, params CountParams) (InquiryCounts, error) {
	if err := ctx.Err(); err != nil {
		return InquiryCounts{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := InquiryCounts{ByStatus: map[domain.InquiryStatus]int{}}
	for _, inquiry := range s.inquiries {
		if !params.Scope.Match(inquiry.BrandID) || !createdSince(inquiry.CreatedAt, params.CreatedFrom) {
			continue
		}
		counts.ByStatus[inquiry.Status]++
		if inquiry.ReplyCount > 0 {
			counts.Answered++
		}
	}
	return counts, nil
}

func (s *MemoryStore) BrandLeadStats(ctx context.Context, scope domain.Scope, since time.Time) ([]BrandLeadStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	byBrand := map[string]*BrandLeadStat{}
	for _, lead := range s.leads {
		if !scope.Match(lead.BrandID) {
			continue
		}
		created := !lead.CreatedAt.Before(since)
		converted := lead.Status == domain.LeadStatusConverted && lead.ConvertedAt != nil && !lead.ConvertedAt.Before(since)
		if !created && !converted {
			continue
		}
		stat, ok := byBrand[lead.BrandID]
		if !ok {
			stat = &BrandLeadStat{BrandID: lead.BrandID}
			byBrand[lead.BrandID] = stat
		}
		if created {
			stat.CreatedCount++
		}
		if converted {
			stat.ConvertedCount++
			if lead.EstimatedValueCents != nil {
				stat.ConvertedValueCents += *lead.EstimatedValueCents
			}
		}
	}

	out := make([]BrandLeadStat, 0, len(byBrand))
	for _, stat := range byBrand {
		out = append(out, *stat)
	}
	slices.SortFunc(out, func(a, b BrandLeadStat) int { return strings.Compare(a.BrandID, b.BrandID) })
	return out, nil
}

func (s *MemoryStore) BrandInquiryCounts(ctx context.Context, scope domain.Scope, since time.Time) (map[string]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := map[string]int{}
	for _, inquiry := range s.inquiries {
		if scope.Match(inquiry.BrandID) && !inquiry.CreatedAt.Before(since) {
			counts[inquiry.BrandID]++
		}
	}
	return counts, nil
}

func createdSince(createdAt time.Time, from *time.Time) bool {
	return from == nil || !createdAt.Before(*from)
}

func matchesCommon(brandID, status, priority string, createdAt time.Time, params ListParams, haystack ...string) bool {
	if !params.Scope.Match(brandID) {
		return false
	}
	if len(params.Statuses) > 0 && !slices.Contains(params.Statuses, status) {
		return false
	}
	if params.Priority != "" && params.Priority != priority {
		return false
	}
	if params.CreatedFrom != nil && createdAt.Before(*params.CreatedFrom) {
		return false
	}
	if params.CreatedTo != nil && !createdAt.Before(*params.CreatedTo) {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(params.Search)); q != "" {
		for _, h := range haystack {
			if strings.Contains(strings.ToLower(h), q) {
				return true
			}
		}
		return false
	}
	return true
}

func matchesLead(l domain.Lead, params ListParams) bool {
	phone := ""
	if l.CustomerPhone != nil {
		phone = *l.CustomerPhone
	}
	return matchesCommon(l.BrandID, string(l.Status), string(l.Priority), l.CreatedAt, params,
		l.CustomerName, l.CustomerEmail, phone)
}

func matchesInquiry(q domain.Inquiry, params ListParams) bool {
	return matchesCommon(q.BrandID, string(q.Status), string(q.Priority), q.CreatedAt, params,
		q.CustomerName, q.CustomerEmail, q.Subject)
}

func compareLeads(a, b domain.Lead, col string) int {
	switch col {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "customer_name":
		return strings.Compare(a.CustomerName, b.CustomerName)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	case "estimated_value_cents":
		return cmp.Compare(valueOrZero(a.EstimatedValueCents), valueOrZero(b.EstimatedValueCents))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func compareInquiries(a, b domain.Inquiry, col string) int {
	switch col {
	case "updated_at":
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case "customer_name":
		return strings.Compare(a.CustomerName, b.CustomerName)
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "priority":
		return strings.Compare(string(a.Priority), string(b.Priority))
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func valueOrZero(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
