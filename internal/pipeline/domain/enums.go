// Package domain holds the lead and inquiry lifecycle model.
// Everything here is pure: no I/O, no clocks, no goroutines.
package domain

import "strings"

// EntityType names one of the two managed collections.
type EntityType string

const (
	EntityLead    EntityType = "lead"
	EntityInquiry EntityType = "inquiry"
)

// LeadStatus is the sales funnel stage of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusLost      LeadStatus = "lost"
	LeadStatusClosed    LeadStatus = "closed"
)

// LeadStatuses lists every lead status in funnel order.
var LeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusConverted,
	LeadStatusLost,
	LeadStatusClosed,
}

// InquiryStatus is the handling stage of an inquiry.
type InquiryStatus string

const (
	InquiryStatusUnread  InquiryStatus = "unread"
	InquiryStatusRead    InquiryStatus = "read"
	InquiryStatusReplied InquiryStatus = "replied"
	InquiryStatusClosed  InquiryStatus = "closed"
)

// InquiryStatuses lists every inquiry status in handling order.
var InquiryStatuses = []InquiryStatus{
	InquiryStatusUnread,
	InquiryStatusRead,
	InquiryStatusReplied,
	InquiryStatusClosed,
}

// Priority applies to both leads and inquiries.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// LeadSource is where a lead came from.
type LeadSource string

const (
	SourceContactForm LeadSource = "contact_form"
	SourceSocialMedia LeadSource = "social_media"
	SourceReferral    LeadSource = "referral"
	SourceWebsite     LeadSource = "website"
	SourcePhone       LeadSource = "phone"
	SourceEmail       LeadSource = "email"
	SourceEvent       LeadSource = "event"
)

// InquiryType classifies what the customer asks about.
type InquiryType string

const (
	InquiryTypeGeneral         InquiryType = "general"
	InquiryTypeCustomOrder     InquiryType = "custom_order"
	InquiryTypeProductQuestion InquiryType = "product_question"
	InquiryTypeCollaboration   InquiryType = "collaboration"
	InquiryTypeWholesale       InquiryType = "wholesale"
)

// InteractionType classifies a lead interaction log entry.
type InteractionType string

const (
	InteractionEmail    InteractionType = "email"
	InteractionCall     InteractionType = "call"
	InteractionMeeting  InteractionType = "meeting"
	InteractionProposal InteractionType = "proposal"
	InteractionFollowUp InteractionType = "follow_up"
)

var (
	leadStatusSet = map[LeadStatus]struct{}{
		LeadStatusNew: {}, LeadStatusContacted: {}, LeadStatusQualified: {},
		LeadStatusConverted: {}, LeadStatusLost: {}, LeadStatusClosed: {},
	}
	inquiryStatusSet = map[InquiryStatus]struct{}{
		InquiryStatusUnread: {}, InquiryStatusRead: {}, InquiryStatusReplied: {}, InquiryStatusClosed: {},
	}
	prioritySet = map[Priority]struct{}{
		PriorityLow: {}, PriorityNormal: {}, PriorityHigh: {}, PriorityUrgent: {},
	}
	leadSourceSet = map[LeadSource]struct{}{
		SourceContactForm: {}, SourceSocialMedia: {}, SourceReferral: {}, SourceWebsite: {},
		SourcePhone: {}, SourceEmail: {}, SourceEvent: {},
	}
	inquiryTypeSet = map[InquiryType]struct{}{
		InquiryTypeGeneral: {}, InquiryTypeCustomOrder: {}, InquiryTypeProductQuestion: {},
		InquiryTypeCollaboration: {}, InquiryTypeWholesale: {},
	}
	interactionTypeSet = map[InteractionType]struct{}{
		InteractionEmail: {}, InteractionCall: {}, InteractionMeeting: {},
		InteractionProposal: {}, InteractionFollowUp: {},
	}
)

func normalizeEnum(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseLeadStatus reports whether raw names a lead status.
func ParseLeadStatus(raw string) (LeadStatus, bool) {
	s := LeadStatus(normalizeEnum(raw))
	_, ok := leadStatusSet[s]
	return s, ok
}

// ParseInquiryStatus reports whether raw names an inquiry status.
func ParseInquiryStatus(raw string) (InquiryStatus, bool) {
	s := InquiryStatus(normalizeEnum(raw))
	_, ok := inquiryStatusSet[s]
	return s, ok
}

// ParsePriority accepts the four priorities and "medium" as an alias of normal.
func ParsePriority(raw string) (Priority, bool) {
	p := Priority(normalizeEnum(raw))
	if p == "medium" {
		return PriorityNormal, true
	}
	_, ok := prioritySet[p]
	return p, ok
}

// ParseLeadSource reports whether raw names a lead source.
func ParseLeadSource(raw string) (LeadSource, bool) {
	s := LeadSource(normalizeEnum(raw))
	_, ok := leadSourceSet[s]
	return s, ok
}

// ParseInquiryType reports whether raw names an inquiry type.
func ParseInquiryType(raw string) (InquiryType, bool) {
	t := InquiryType(normalizeEnum(raw))
	_, ok := inquiryTypeSet[t]
	return t, ok
}

// ParseInteractionType reports whether raw names an interaction type.
func ParseInteractionType(raw string) (InteractionType, bool) {
	t := InteractionType(normalizeEnum(raw))
	_, ok := interactionTypeSet[t]
	return t, ok
}

// IsTerminalLeadStatus reports whether s ends the funnel.
func IsTerminalLeadStatus(s LeadStatus) bool {
	return s == LeadStatusConverted || s == LeadStatusLost || s == LeadStatusClosed
}

// IsTerminalInquiryStatus reports whether s ends the thread.
func IsTerminalInquiryStatus(s InquiryStatus) bool {
	return s == InquiryStatusClosed
}
