package transport

import (
	"strings"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"
)

func ToLeadResponse(l domain.Lead) LeadResponse {
	return LeadResponse{
		ID:                  l.ID,
		BrandID:             l.BrandID,
		CustomerName:        l.CustomerName,
		CustomerEmail:       l.CustomerEmail,
		CustomerPhone:       l.CustomerPhone,
		Source:              l.Source,
		Status:              l.Status,
		Priority:            l.Priority,
		EstimatedValueCents: l.EstimatedValueCents,
		Notes:               l.Notes,
		CreatedAt:           l.CreatedAt,
		UpdatedAt:           l.UpdatedAt,
		ContactedAt:         l.ContactedAt,
		QualifiedAt:         l.QualifiedAt,
		ConvertedAt:         l.ConvertedAt,
		Terminal:            domain.IsTerminalLeadStatus(l.Status),
	}
}

func ToInquiryResponse(q domain.Inquiry) InquiryResponse {
	return InquiryResponse{
		ID:            q.ID,
		BrandID:       q.BrandID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		CustomerPhone: q.CustomerPhone,
		Subject:       q.Subject,
		Message:       q.Message,
		InquiryType:   q.InquiryType,
		Status:        q.Status,
		Priority:      q.Priority,
		Source:        q.Source,
		ReplyCount:    q.ReplyCount,
		CreatedAt:     q.CreatedAt,
		UpdatedAt:     q.UpdatedAt,
		ReadAt:        q.ReadAt,
		RepliedAt:     q.RepliedAt,
	}
}

func ToInteractionResponse(i domain.LeadInteraction) InteractionResponse {
	return InteractionResponse{
		ID:              i.ID,
		LeadID:          i.LeadID,
		InteractionType: i.InteractionType,
		InteractionDate: i.InteractionDate,
		Subject:         i.Subject,
		Description:     i.Description,
		Outcome:         i.Outcome,
		NextAction:      i.NextAction,
		CreatedAt:       i.CreatedAt,
	}
}

func ToReplyResponse(r domain.Reply) ReplyResponse {
	return ReplyResponse{
		ID:             r.ID,
		InquiryID:      r.InquiryID,
		AdminID:        r.AdminID,
		Message:        r.Message,
		IsInternalNote: r.IsInternalNote,
		CreatedAt:      r.CreatedAt,
	}
}

// ToRecordResponse renders a lead or inquiry; other records render as nil.
func ToRecordResponse(rec domain.Record) any {
	switch r := rec.(type) {
	case domain.Lead:
		return ToLeadResponse(r)
	case domain.Inquiry:
		return ToInquiryResponse(r)
	default:
		return nil
	}
}

func ToSyncEvent(ev livesync.Event) SyncEvent {
	out := SyncEvent{
		Type:      string(ev.Type),
		Entity:    string(ev.Ref.Type),
		ID:        ev.Ref.ID,
		BrandID:   ev.BrandID,
		UpdatedAt: ev.UpdatedAt,
		Origin:    string(ev.Origin),
	}
	if ev.Record != nil {
		out.Record = ToRecordResponse(ev.Record)
	}
	return out
}

func ToPage[S, T any](p repository.Page[S], page, pageSize int, mapFn func(S) T) PageResponse[T] {
	items := make([]T, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, mapFn(item))
	}
	return PageResponse[T]{Items: items, Total: p.Total, Page: page, PageSize: pageSize}
}

func MapSlice[S, T any](in []S, mapFn func(S) T) []T {
	out := make([]T, 0, len(in))
	for _, item := range in {
		out = append(out, mapFn(item))
	}
	return out
}

// Statuses splits a comma separated status filter.
func (q ListQuery) Statuses() []string {
	if strings.TrimSpace(q.Status) == "" {
		return nil
	}
	parts := strings.Split(q.Status, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
