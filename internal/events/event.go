// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"marketplace_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var (
	NewBaseEvent = events.NewBaseEvent
	BaseEventAt  = events.BaseEventAt
)

// =============================================================================
// Lead Domain Events
// =============================================================================

// LeadCreated is published when a lead enters the pipeline.
type LeadCreated struct {
	BaseEvent
	LeadID        uuid.UUID `json:"leadId"`
	BrandID       string    `json:"brandId"`
	Source        string    `json:"source"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
}

func (e LeadCreated) EventName() string { return "pipeline.lead.created" }

// LeadStatusChanged is published after a lead status change is persisted.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	BrandID   string    `json:"brandId"`
	ActorID   string    `json:"actorId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "pipeline.lead.status_changed" }

// LeadTerminalReached is published when a lead moves into converted, lost or closed.
type LeadTerminalReached struct {
	BaseEvent
	LeadID              uuid.UUID `json:"leadId"`
	BrandID             string    `json:"brandId"`
	Status              string    `json:"status"`
	CustomerName        string    `json:"customerName"`
	CustomerEmail       string    `json:"customerEmail"`
	EstimatedValueCents *int64    `json:"estimatedValueCents,omitempty"`
	ReachedAt           time.Time `json:"reachedAt"`
}

func (e LeadTerminalReached) EventName() string { return "pipeline.lead.terminal_reached" }

// LeadDeleted is published after a lead and its interactions are removed.
type LeadDeleted struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	BrandID string    `json:"brandId"`
	ActorID string    `json:"actorId"`
}

func (e LeadDeleted) EventName() string { return "pipeline.lead.deleted" }

// =============================================================================
// Inquiry Domain Events
// =============================================================================

// InquiryReceived is published when a contact form inquiry arrives.
type InquiryReceived struct {
	BaseEvent
	InquiryID    uuid.UUID `json:"inquiryId"`
	BrandID      string    `json:"brandId"`
	Subject      string    `json:"subject"`
	CustomerName string    `json:"customerName"`
}

func (e InquiryReceived) EventName() string { return "pipeline.inquiry.received" }

// InquiryStatusChanged is published after an inquiry status change is persisted.
type InquiryStatusChanged struct {
	BaseEvent
	InquiryID uuid.UUID `json:"inquiryId"`
	BrandID   string    `json:"brandId"`
	ActorID   string    `json:"actorId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e InquiryStatusChanged) EventName() string { return "pipeline.inquiry.status_changed" }

// InquiryReplyPosted is published for every customer-facing reply. Internal
// notes do not produce this event.
type InquiryReplyPosted struct {
	BaseEvent
	InquiryID     uuid.UUID `json:"inquiryId"`
	ReplyID       uuid.UUID `json:"replyId"`
	BrandID       string    `json:"brandId"`
	AdminID       string    `json:"adminId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	Subject       string    `json:"subject"`
	Message       string    `json:"message"`
}

func (e InquiryReplyPosted) EventName() string { return "pipeline.inquiry.reply_posted" }

// InquiryDeleted is published after an inquiry and its replies are removed.
type InquiryDeleted struct {
	BaseEvent
	InquiryID uuid.UUID `json:"inquiryId"`
	BrandID   string    `json:"brandId"`
	ActorID   string    `json:"actorId"`
}

func (e InquiryDeleted) EventName() string { return "pipeline.inquiry.deleted" }
