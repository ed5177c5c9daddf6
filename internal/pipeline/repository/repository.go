// Package repository persists leads, inquiries and their child records.
// It owns no business rules: callers pass fully formed domain values.
package repository

import (
	"context"
	"errors"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record has the requested ID.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the stored version differs from the expected
	// one, or when a record with the same ID already exists.
	ErrConflict = errors.New("record modified concurrently")
)

// ListParams filters, sorts and paginates a list. Limit <= 0 returns every match.
type ListParams struct {
	Scope       domain.Scope
	Statuses    []string
	Priority    string
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SortBy      string
	SortOrder   string
	Limit       int
	Offset      int
}

// Page is one page of a filtered list.
type Page[T any] struct {
	Items []T
	Total int
}

// CountParams restricts an aggregate count.
type CountParams struct {
	Scope       domain.Scope
	CreatedFrom *time.Time
}

// LeadCounts is the number of leads per status.
type LeadCounts map[domain.LeadStatus]int

// InquiryCounts is the number of inquiries per status, plus how many of them
// received at least one customer-facing reply.
type InquiryCounts struct {
	ByStatus map[domain.InquiryStatus]int
	Answered int
}

// BrandLeadStat summarizes one brand's leads over a window.
type BrandLeadStat struct {
	BrandID             string
	ConvertedValueCents int64
	ConvertedCount      int
	CreatedCount        int
}

// =====================================
// Segregated Interfaces (Interface Segregation Principle)
// =====================================

// LeadReader provides read-only access to leads.
type LeadReader interface {
	GetLead(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	ListLeads(ctx context.Context, params ListParams) (Page[domain.Lead], error)
}

// LeadWriter persists lead changes. UpdateLead succeeds only while the stored
// updated_at equals expectedUpdatedAt.
type LeadWriter interface {
	CreateLead(ctx context.Context, lead domain.Lead) (domain.Lead, error)
	UpdateLead(ctx context.Context, lead domain.Lead, expectedUpdatedAt time.Time) (domain.Lead, error)
	DeleteLead(ctx context.Context, id uuid.UUID) error
}

// InteractionStore manages the append-only interaction log of a lead.
type InteractionStore interface {
	AddInteraction(ctx context.Context, interaction domain.LeadInteraction) (domain.LeadInteraction, error)
	ListInteractions(ctx context.Context, leadID uuid.UUID) ([]domain.LeadInteraction, error)
}

// InquiryReader provides read-only access to inquiries.
type InquiryReader interface {
	GetInquiry(ctx context.Context, id uuid.UUID) (domain.Inquiry, error)
	ListInquiries(ctx context.Context, params ListParams) (Page[domain.Inquiry], error)
}

// InquiryWriter persists inquiry changes with the same version check as LeadWriter.
type InquiryWriter interface {
	CreateInquiry(ctx context.Context, inquiry domain.Inquiry) (domain.Inquiry, error)
	UpdateInquiry(ctx context.Context, inquiry domain.Inquiry, expectedUpdatedAt time.Time) (domain.Inquiry, error)
	DeleteInquiry(ctx context.Context, id uuid.UUID) error
}

// ReplyStore manages inquiry replies. AddReply stores the reply and the
// resulting inquiry atomically.
type ReplyStore interface {
	AddReply(ctx context.Context, reply domain.Reply, inquiry domain.Inquiry, expectedUpdatedAt time.Time) (domain.Reply, domain.Inquiry, error)
	ListReplies(ctx context.Context, inquiryID uuid.UUID) ([]domain.Reply, error)
}

// AnalyticsReader provides the aggregates behind funnel and ranking reports.
type AnalyticsReader interface {
	CountLeads(ctx context.Context, params CountParams) (LeadCounts, error)
	CountInquiries(ctx context.Context, params CountParams) (InquiryCounts, error)
	BrandLeadStats(ctx context.Context, scope domain.Scope, since time.Time) ([]BrandLeadStat, error)
	BrandInquiryCounts(ctx context.Context, scope domain.Scope, since time.Time) (map[string]int, error)
}

// Store is the complete entity store.
type Store interface {
	LeadReader
	LeadWriter
	InteractionStore
	InquiryReader
	InquiryWriter
	ReplyStore
	AnalyticsReader
}

var leadSortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"customerName": "customer_name",
	"status":       "status",
	"priority":     "priority",
	"value":        "estimated_value_cents",
}

var inquirySortColumns = map[string]string{
	"createdAt":    "created_at",
	"updatedAt":    "updated_at",
	"customerName": "customer_name",
	"status":       "status",
	"priority":     "priority",
}

func sortColumn(columns map[string]string, sortBy string) string {
	if col, ok := columns[sortBy]; ok {
		return col
	}
	return "created_at"
}

func descending(order string) bool {
	return order != "asc"
}
