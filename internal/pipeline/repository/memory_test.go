package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

var base = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func seedLead(t *testing.T, s *MemoryStore, brand, name string, offset time.Duration) domain.Lead {
	t.Helper()
	l, err := domain.NewLead(domain.NewLeadInput{BrandID: brand, CustomerName: name, CustomerEmail: strings.ToLower(name) + "@shop.test"}, base.Add(offset))
	if err != nil {
		t.Fatalf("new lead: %v", err)
	}
	if _, err := s.CreateLead(context.Background(), l); err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return l
}

func TestListLeadsHonoursScope(t *testing.T) {
	s := NewMemoryStore()
	seedLead(t, s, "brand-a", "Ann", 0)
	seedLead(t, s, "brand-b", "Bea", time.Minute)
	seedLead(t, s, "brand-a", "Cid", 2*time.Minute)

	page, err := s.ListLeads(context.Background(), ListParams{Scope: domain.Brands("brand-a")})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 brand-a leads, got %d", page.Total)
	}
	for _, l := range page.Items {
		if l.BrandID != "brand-a" {
			t.Fatalf("leaked lead of %s", l.BrandID)
		}
	}
	if page.Items[0].CustomerName != "Cid" {
		t.Fatalf("expected newest first, got %s", page.Items[0].CustomerName)
	}

	empty, _ := s.ListLeads(context.Background(), ListParams{Scope: domain.Scope{}})
	if empty.Total != 0 {
		t.Fatalf("empty scope must match nothing, got %d", empty.Total)
	}
}

func TestListLeadsSearchSortAndPaginate(t *testing.T) {
	s := NewMemoryStore()
	seedLead(t, s, "b", "Zed", 0)
	seedLead(t, s, "b", "Amy", time.Minute)
	seedLead(t, s, "b", "Max", 2*time.Minute)

	page, _ := s.ListLeads(context.Background(), ListParams{
		Scope: domain.AllBrands(), SortBy: "customerName", SortOrder: "asc", Limit: 2, Offset: 1,
	})
	if page.Total != 3 || len(page.Items) != 2 || page.Items[0].CustomerName != "Max" {
		t.Fatalf("unexpected page %+v", page)
	}

	found, _ := s.ListLeads(context.Background(), ListParams{Scope: domain.AllBrands(), Search: "am"})
	if found.Total != 1 || found.Items[0].CustomerName != "Amy" {
		t.Fatalf("unexpected search result %+v", found)
	}

	byEmail, _ := s.ListLeads(context.Background(), ListParams{Scope: domain.AllBrands(), Search: "ZED@SHOP"})
	if byEmail.Total != 1 || byEmail.Items[0].CustomerName != "Zed" {
		t.Fatalf("expected case-insensitive email search, got %+v", byEmail)
	}
}

func TestUpdateLeadChecksVersion(t *testing.T) {
	s := NewMemoryStore()
	l := seedLead(t, s, "b", "Ann", 0)
	ctx := context.Background()

	next, _ := domain.TransitionLead(l, domain.LeadStatusContacted, base.Add(time.Hour))
	stored, err := s.UpdateLead(ctx, next, l.UpdatedAt)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if stored.Status != domain.LeadStatusContacted {
		t.Fatalf("expected contacted, got %s", stored.Status)
	}

	stale, _ := domain.TransitionLead(l, domain.LeadStatusLost, base.Add(2*time.Hour))
	if _, err := s.UpdateLead(ctx, stale, l.UpdatedAt); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for stale version, got %v", err)
	}

	missing := next
	missing.ID = uuid.New()
	if _, err := s.UpdateLead(ctx, missing, next.UpdatedAt); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReturnedValuesAreCopies(t *testing.T) {
	s := NewMemoryStore()
	l := seedLead(t, s, "b", "Ann", 0)
	ctx := context.Background()

	got, _ := s.GetLead(ctx, l.ID)
	got.CustomerName = "tampered"
	again, _ := s.GetLead(ctx, l.ID)
	if again.CustomerName != "Ann" {
		t.Fatal("store must not share memory with callers")
	}
}

func TestDeleteLeadCascadesInteractions(t *testing.T) {
	s := NewMemoryStore()
	l := seedLead(t, s, "b", "Ann", 0)
	ctx := context.Background()

	in, _ := domain.NewInteraction(l.ID, domain.NewInteractionInput{InteractionType: "call", Description: "intro"}, base)
	if _, err := s.AddInteraction(ctx, in); err != nil {
		t.Fatalf("add interaction: %v", err)
	}
	if err := s.DeleteLead(ctx, l.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	list, _ := s.ListInteractions(ctx, l.ID)
	if len(list) != 0 {
		t.Fatalf("expected cascade, got %d interactions", len(list))
	}
	if _, err := s.AddInteraction(ctx, in); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on deleted parent, got %v", err)
	}
}

func TestAddReplyUpdatesInquiryAtomically(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	q, _ := domain.NewInquiry(domain.NewInquiryInput{
		BrandID: "b", CustomerName: "Bo", CustomerEmail: "bo@example.com", Subject: "s", Message: "m",
	}, base)
	_, _ = s.CreateInquiry(ctx, q)

	reply, _ := domain.NewReply(q.ID, "admin", "hi", false, base.Add(time.Minute))
	next := domain.ApplyReply(q, reply, base.Add(time.Minute))
	_, stored, err := s.AddReply(ctx, reply, next, q.UpdatedAt)
	if err != nil {
		t.Fatalf("add reply: %v", err)
	}
	if stored.ReplyCount != 1 || stored.Status != domain.InquiryStatusReplied {
		t.Fatalf("unexpected inquiry %+v", stored)
	}

	note, _ := domain.NewReply(q.ID, "admin", "note", true, base.Add(2*time.Minute))
	_, afterNote, err := s.AddReply(ctx, note, stored, time.Time{})
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if afterNote.ReplyCount != 1 || !afterNote.UpdatedAt.Equal(stored.UpdatedAt) {
		t.Fatalf("internal note must not touch the inquiry, got %+v", afterNote)
	}

	replies, _ := s.ListReplies(ctx, q.ID)
	if len(replies) != 2 {
		t.Fatalf("expected 2 replies, got %d", len(replies))
	}

	counts, _ := s.CountInquiries(ctx, CountParams{Scope: domain.AllBrands()})
	if counts.Answered != 1 || counts.ByStatus[domain.InquiryStatusReplied] != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

func TestBrandLeadStatsWindow(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	old := seedLead(t, s, "b1", "Old", -48*time.Hour)
	value := int64(5000)
	old.EstimatedValueCents = &value
	converted, _ := domain.TransitionLead(old, domain.LeadStatusConverted, base)
	if _, err := s.UpdateLead(ctx, converted, old.UpdatedAt); err != nil {
		t.Fatalf("update: %v", err)
	}
	seedLead(t, s, "b2", "New", time.Hour)
	seedLead(t, s, "b3", "Ancient", -72*time.Hour)

	stats, err := s.BrandLeadStats(ctx, domain.AllBrands(), base.Add(-time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected b1 and b2 only, got %+v", stats)
	}
	if stats[0].BrandID != "b1" || stats[0].ConvertedValueCents != 5000 || stats[0].CreatedCount != 0 {
		t.Fatalf("unexpected b1 stat %+v", stats[0])
	}
	if stats[1].BrandID != "b2" || stats[1].CreatedCount != 1 {
		t.Fatalf("unexpected b2 stat %+v", stats[1])
	}
}
