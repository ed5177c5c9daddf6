package coordinator

import (
	"context"

	"marketplace_backend/internal/events"
	"marketplace_backend/internal/pipeline/domain"
)

// emitChange publishes domain events for a persisted change. Handlers run
// asynchronously; their failures never affect the mutation.
func (c *Coordinator) emitChange(ctx context.Context, caller domain.Identity, before, after domain.Record) {
	if c.bus == nil {
		return
	}

	switch next := after.(type) {
	case domain.Lead:
		prev, _ := before.(domain.Lead)
		if prev.Status == next.Status {
			return
		}
		c.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent: events.BaseEventAt(next.UpdatedAt),
			LeadID:    next.ID,
			BrandID:   next.BrandID,
			ActorID:   caller.UserID,
			OldStatus: string(prev.Status),
			NewStatus: string(next.Status),
		})
		if domain.IsTerminalLeadStatus(next.Status) {
			c.bus.Publish(ctx, events.LeadTerminalReached{
				BaseEvent:           events.BaseEventAt(next.UpdatedAt),
				LeadID:              next.ID,
				BrandID:             next.BrandID,
				Status:              string(next.Status),
				CustomerName:        next.CustomerName,
				CustomerEmail:       next.CustomerEmail,
				EstimatedValueCents: next.EstimatedValueCents,
				ReachedAt:           next.UpdatedAt,
			})
		}
	case domain.Inquiry:
		prev, _ := before.(domain.Inquiry)
		if prev.Status == next.Status {
			return
		}
		c.bus.Publish(ctx, events.InquiryStatusChanged{
			BaseEvent: events.BaseEventAt(next.UpdatedAt),
			InquiryID: next.ID,
			BrandID:   next.BrandID,
			ActorID:   caller.UserID,
			OldStatus: string(prev.Status),
			NewStatus: string(next.Status),
		})
	}
}

func (c *Coordinator) emitReply(ctx context.Context, q domain.Inquiry, r domain.Reply) {
	if c.bus == nil {
		return
	}
	c.bus.Publish(ctx, events.InquiryReplyPosted{
		BaseEvent:     events.BaseEventAt(q.UpdatedAt),
		InquiryID:     q.ID,
		ReplyID:       r.ID,
		BrandID:       q.BrandID,
		AdminID:       r.AdminID,
		CustomerName:  q.CustomerName,
		CustomerEmail: q.CustomerEmail,
		Subject:       q.Subject,
		Message:       r.Message,
	})
}

func (c *Coordinator) emitDeleted(ctx context.Context, caller domain.Identity, rec domain.Record) {
	if c.bus == nil {
		return
	}
	switch prev := rec.(type) {
	case domain.Lead:
		c.bus.Publish(ctx, events.LeadDeleted{
			BaseEvent: events.NewBaseEvent(),
			LeadID:    prev.ID,
			BrandID:   prev.BrandID,
			ActorID:   caller.UserID,
		})
	case domain.Inquiry:
		c.bus.Publish(ctx, events.InquiryDeleted{
			BaseEvent: events.NewBaseEvent(),
			InquiryID: prev.ID,
			BrandID:   prev.BrandID,
			ActorID:   caller.UserID,
		})
	}
}
