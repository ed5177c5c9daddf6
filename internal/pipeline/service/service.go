// Package service implements the read and create side of the lead and
// inquiry pipeline: intake, manual creation, scoped reads and child records.
// Lifecycle mutations go through a surface's coordinator instead.
package service

import (
	"context"
	"errors"
	"time"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/coordinator"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/errmap"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/platform/logger"

	"github.com/google/uuid"
)

const maxPageSize = 100

// Store is the subset of the entity store the service reads and creates through.
type Store interface {
	repository.LeadReader
	repository.InquiryReader
	repository.InteractionStore
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	CreateInquiry(ctx context.Context, inquiry domain.Inquiry) (domain.Inquiry, error)
	ListReplies(ctx context.Context, inquiryID uuid.UUID) ([]domain.Reply, error)
}

// Deps are the collaborators of a Service. Hub, Bus, Log and Now are optional.
type Deps struct {
	Store  Store
	Policy coordinator.Policy
	Hub    coordinator.Publisher
	Bus    events.Bus
	Log    *logger.Logger
	Now    func() time.Time
}

// Service handles everything outside the optimistic mutation path.
type Service struct {
	store  Store
	policy coordinator.Policy
	hub    coordinator.Publisher
	bus    events.Bus
	log    *logger.Logger
	now    func() time.Time
}

// New creates a service.
func New(deps Deps) *Service {
	s := &Service{
		store:  deps.Store,
		policy: deps.Policy,
		hub:    deps.Hub,
		bus:    deps.Bus,
		log:    deps.Log,
		now:    deps.Now,
	}
	if s.log == nil {
		s.log = logger.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// ListQuery is a caller-side list request. The visibility filter is added by the service.
type ListQuery struct {
	Statuses    []string
	Priority    string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortOrder   string
	Page        int
	PageSize    int
}

func (q ListQuery) params(scope domain.Scope) repository.ListParams {
	size := q.PageSize
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	return repository.ListParams{
		Scope:       scope,
		Statuses:    q.Statuses,
		Priority:    q.Priority,
		Search:      q.Search,
		CreatedFrom: q.CreatedFrom,
		CreatedTo:   q.CreatedTo,
		SortBy:      q.SortBy,
		SortOrder:   q.SortOrder,
		Limit:       size,
		Offset:      (page - 1) * size,
	}
}

// =============================================================================
// Leads
// =============================================================================

// IntakeLead opens a lead from a public contact form. No caller is involved.
func (s *Service) IntakeLead(ctx context.Context, in domain.NewLeadInput) (domain.Lead, error) {
	lead, err := domain.NewLead(in, s.now())
	if err != nil {
		return domain.Lead{}, errmap.Op("intake_lead", err)
	}
	return s.saveLead(ctx, lead, "")
}

// CreateLead opens a lead manually on behalf of caller.
func (s *Service) CreateLead(ctx context.Context, caller domain.Identity, in domain.NewLeadInput) (domain.Lead, error) {
	lead, err := domain.NewLead(in, s.now())
	if err != nil {
		return domain.Lead{}, errmap.Op("create_lead", err)
	}
	if err := s.policy.Authorize(caller, access.OpCreate, lead.BrandID); err != nil {
		// The caller chose the brand, so there is nothing to hide.
		if errors.Is(err, access.ErrNotVisible) {
			err = access.ErrForbidden
		}
		return domain.Lead{}, errmap.Op("create_lead", err)
	}
	return s.saveLead(ctx, lead, caller.UserID)
}

func (s *Service) saveLead(ctx context.Context, lead domain.Lead, actorID string) (domain.Lead, error) {
	created, err := s.store.CreateLead(ctx, lead)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("create_lead", err)
		return domain.Lead{}, errmap.Op("create_lead", err)
	}

	s.publish(livesync.Updated(created, livesync.OriginMutation))
	if s.bus != nil {
		s.bus.Publish(ctx, events.LeadCreated{
			BaseEvent:     events.BaseEventAt(created.CreatedAt),
			LeadID:        created.ID,
			BrandID:       created.BrandID,
			Source:        string(created.Source),
			CustomerName:  created.CustomerName,
			CustomerEmail: created.CustomerEmail,
		})
	}
	s.log.WithContext(ctx).Info("lead created", "leadId", created.ID, "brandId", created.BrandID, "actorId", actorID)
	return created, nil
}

// GetLead returns a lead the caller may see. Leads outside the caller's
// scope are reported as not found.
func (s *Service) GetLead(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Lead, error) {
	lead, err := s.store.GetLead(ctx, id)
	if err != nil {
		return domain.Lead{}, errmap.Op("get_lead", err)
	}
	if err := s.policy.Authorize(caller, access.OpRead, lead.BrandID); err != nil {
		return domain.Lead{}, errmap.Op("get_lead", hideForbidden(err))
	}
	return lead, nil
}

// ListLeads lists the caller's visible leads. Callers without a scope get an empty page.
func (s *Service) ListLeads(ctx context.Context, caller domain.Identity, q ListQuery) (repository.Page[domain.Lead], error) {
	scope := s.policy.VisibilityFilter(caller)
	if scope.Empty() {
		return repository.Page[domain.Lead]{Items: []domain.Lead{}}, nil
	}
	page, err := s.store.ListLeads(ctx, q.params(scope))
	if err != nil {
		return repository.Page[domain.Lead]{}, errmap.Op("list_leads", err)
	}
	return page, nil
}

// AddInteraction appends to a visible lead's interaction log.
func (s *Service) AddInteraction(ctx context.Context, caller domain.Identity, leadID uuid.UUID, in domain.NewInteractionInput) (domain.LeadInteraction, error) {
	lead, err := s.store.GetLead(ctx, leadID)
	if err != nil {
		return domain.LeadInteraction{}, errmap.Op("add_interaction", err)
	}
	if err := s.policy.Authorize(caller, access.OpUpdate, lead.BrandID); err != nil {
		return domain.LeadInteraction{}, errmap.Op("add_interaction", hideForbidden(err))
	}

	interaction, err := domain.NewInteraction(lead.ID, in, s.now())
	if err != nil {
		return domain.LeadInteraction{}, errmap.Op("add_interaction", err)
	}
	saved, err := s.store.AddInteraction(ctx, interaction)
	if err != nil {
		return domain.LeadInteraction{}, errmap.Op("add_interaction", err)
	}
	return saved, nil
}

// ListInteractions returns a visible lead's interactions, oldest first.
func (s *Service) ListInteractions(ctx context.Context, caller domain.Identity, leadID uuid.UUID) ([]domain.LeadInteraction, error) {
	if _, err := s.GetLead(ctx, caller, leadID); err != nil {
		return nil, err
	}
	items, err := s.store.ListInteractions(ctx, leadID)
	if err != nil {
		return nil, errmap.Op("list_interactions", err)
	}
	return items, nil
}

// =============================================================================
// Inquiries
// =============================================================================

// IntakeInquiry stores an inbound contact form message as an unread inquiry.
func (s *Service) IntakeInquiry(ctx context.Context, in domain.NewInquiryInput) (domain.Inquiry, error) {
	inquiry, err := domain.NewInquiry(in, s.now())
	if err != nil {
		return domain.Inquiry{}, errmap.Op("intake_inquiry", err)
	}

	created, err := s.store.CreateInquiry(ctx, inquiry)
	if err != nil {
		s.log.WithContext(ctx).DatabaseError("create_inquiry", err)
		return domain.Inquiry{}, errmap.Op("intake_inquiry", err)
	}

	s.publish(livesync.Updated(created, livesync.OriginMutation))
	if s.bus != nil {
		s.bus.Publish(ctx, events.InquiryReceived{
			BaseEvent:    events.BaseEventAt(created.CreatedAt),
			InquiryID:    created.ID,
			BrandID:      created.BrandID,
			Subject:      created.Subject,
			CustomerName: created.CustomerName,
		})
	}
	s.log.WithContext(ctx).Info("inquiry received", "inquiryId", created.ID, "brandId", created.BrandID)
	return created, nil
}

// GetInquiry returns an inquiry the caller may see.
func (s *Service) GetInquiry(ctx context.Context, caller domain.Identity, id uuid.UUID) (domain.Inquiry, error) {
	inquiry, err := s.store.GetInquiry(ctx, id)
	if err != nil {
		return domain.Inquiry{}, errmap.Op("get_inquiry", err)
	}
	if err := s.policy.Authorize(caller, access.OpRead, inquiry.BrandID); err != nil {
		return domain.Inquiry{}, errmap.Op("get_inquiry", hideForbidden(err))
	}
	return inquiry, nil
}

// ListInquiries lists the caller's visible inquiries.
func (s *Service) ListInquiries(ctx context.Context, caller domain.Identity, q ListQuery) (repository.Page[domain.Inquiry], error) {
	scope := s.policy.VisibilityFilter(caller)
	if scope.Empty() {
		return repository.Page[domain.Inquiry]{Items: []domain.Inquiry{}}, nil
	}
	page, err := s.store.ListInquiries(ctx, q.params(scope))
	if err != nil {
		return repository.Page[domain.Inquiry]{}, errmap.Op("list_inquiries", err)
	}
	return page, nil
}

// ListReplies returns a visible inquiry's thread, internal notes included.
func (s *Service) ListReplies(ctx context.Context, caller domain.Identity, inquiryID uuid.UUID) ([]domain.Reply, error) {
	if _, err := s.GetInquiry(ctx, caller, inquiryID); err != nil {
		return nil, err
	}
	replies, err := s.store.ListReplies(ctx, inquiryID)
	if err != nil {
		return nil, errmap.Op("list_replies", err)
	}
	return replies, nil
}

func (s *Service) publish(ev livesync.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}

// hideForbidden turns a role denial on a single read into a visibility
// denial, so a caller cannot discover records it may not see.
func hideForbidden(err error) error {
	if errors.Is(err, access.ErrForbidden) {
		return access.ErrNotVisible
	}
	return err
}
