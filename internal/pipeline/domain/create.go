package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"marketplace_backend/platform/phone"
	"marketplace_backend/platform/sanitize"

	"github.com/google/uuid"
)

// NewLeadInput carries the fields needed to open a lead.
type NewLeadInput struct {
	BrandID             string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       *string
	Source              string
	Priority            string
	EstimatedValueCents *int64
	Notes               *string
}

// NewInquiryInput carries the fields of an inbound customer message.
type NewInquiryInput struct {
	BrandID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	Subject       string
	Message       string
	InquiryType   string
	Priority      string
	Source        string
}

// NewInteractionInput carries one lead interaction log entry.
type NewInteractionInput struct {
	InteractionType string
	InteractionDate *time.Time
	Subject         *string
	Description     string
	Outcome         *string
	NextAction      *string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return invalid("%s is required", name)
	}
	return nil
}

func normalizeEmail(raw string) (string, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return "", invalid("customer_email is required")
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed {
		return "", invalid("customer_email is not a valid address")
	}
	return trimmed, nil
}

func parsePriorityOrDefault(raw string) (Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return PriorityNormal, nil
	}
	p, ok := ParsePriority(raw)
	if !ok {
		return "", invalid("priority %q is not supported", raw)
	}
	return p, nil
}

// NewLead validates in and opens a lead in status new.
func NewLead(in NewLeadInput, now time.Time) (Lead, error) {
	if err := required("brand_id", in.BrandID); err != nil {
		return Lead{}, err
	}
	name := sanitize.Line(in.CustomerName)
	if err := required("customer_name", name); err != nil {
		return Lead{}, err
	}
	email, err := normalizeEmail(in.CustomerEmail)
	if err != nil {
		return Lead{}, err
	}

	source := SourceContactForm
	if strings.TrimSpace(in.Source) != "" {
		s, ok := ParseLeadSource(in.Source)
		if !ok {
			return Lead{}, invalid("source %q is not supported", in.Source)
		}
		source = s
	}

	priority, err := parsePriorityOrDefault(in.Priority)
	if err != nil {
		return Lead{}, err
	}

	if in.EstimatedValueCents != nil && *in.EstimatedValueCents < 0 {
		return Lead{}, invalid("estimated_value_cents must not be negative")
	}

	at := Stamp(now)
	return Lead{
		ID:                  uuid.New(),
		BrandID:             strings.TrimSpace(in.BrandID),
		CustomerName:        name,
		CustomerEmail:       email,
		CustomerPhone:       phone.NormalizePtr(in.CustomerPhone),
		Source:              source,
		Status:              LeadStatusNew,
		Priority:            priority,
		EstimatedValueCents: cloneInt64(in.EstimatedValueCents),
		Notes:               sanitize.TextPtr(in.Notes),
		CreatedAt:           at,
		UpdatedAt:           at,
	}, nil
}

// NewInquiry validates in and opens an inquiry in status unread.
func NewInquiry(in NewInquiryInput, now time.Time) (Inquiry, error) {
	if err := required("brand_id", in.BrandID); err != nil {
		return Inquiry{}, err
	}
	name := sanitize.Line(in.CustomerName)
	if err := required("customer_name", name); err != nil {
		return Inquiry{}, err
	}
	email, err := normalizeEmail(in.CustomerEmail)
	if err != nil {
		return Inquiry{}, err
	}
	subject := sanitize.Line(in.Subject)
	if err := required("subject", subject); err != nil {
		return Inquiry{}, err
	}
	message := sanitize.Text(in.Message)
	if err := required("message", message); err != nil {
		return Inquiry{}, err
	}

	inquiryType := InquiryTypeGeneral
	if strings.TrimSpace(in.InquiryType) != "" {
		t, ok := ParseInquiryType(in.InquiryType)
		if !ok {
			return Inquiry{}, invalid("inquiry_type %q is not supported", in.InquiryType)
		}
		inquiryType = t
	}

	priority, err := parsePriorityOrDefault(in.Priority)
	if err != nil {
		return Inquiry{}, err
	}

	source := normalizeEnum(in.Source)
	if source == "" {
		source = string(SourceContactForm)
	}

	at := Stamp(now)
	return Inquiry{
		ID:            uuid.New(),
		BrandID:       strings.TrimSpace(in.BrandID),
		CustomerName:  name,
		CustomerEmail: email,
		CustomerPhone: phone.NormalizePtr(in.CustomerPhone),
		Subject:       subject,
		Message:       message,
		InquiryType:   inquiryType,
		Status:        InquiryStatusUnread,
		Priority:      priority,
		Source:        source,
		CreatedAt:     at,
		UpdatedAt:     at,
	}, nil
}

// NewReply validates a reply authored by adminID.
func NewReply(inquiryID uuid.UUID, adminID, message string, internal bool, now time.Time) (Reply, error) {
	body := sanitize.Text(message)
	if err := required("message", body); err != nil {
		return Reply{}, err
	}
	if err := required("admin_id", adminID); err != nil {
		return Reply{}, err
	}
	return Reply{
		ID:             uuid.New(),
		InquiryID:      inquiryID,
		AdminID:        adminID,
		Message:        body,
		IsInternalNote: internal,
		CreatedAt:      Stamp(now),
	}, nil
}

// NewInteraction validates a log entry for leadID. A missing date means now.
func NewInteraction(leadID uuid.UUID, in NewInteractionInput, now time.Time) (LeadInteraction, error) {
	kind, ok := ParseInteractionType(in.InteractionType)
	if !ok {
		return LeadInteraction{}, invalid("interaction_type %q is not supported", in.InteractionType)
	}
	description := sanitize.Text(in.Description)
	if err := required("description", description); err != nil {
		return LeadInteraction{}, err
	}

	at := Stamp(now)
	date := at
	if in.InteractionDate != nil {
		date = Stamp(*in.InteractionDate)
	}

	return LeadInteraction{
		ID:              uuid.New(),
		LeadID:          leadID,
		InteractionType: kind,
		InteractionDate: date,
		Subject:         sanitize.TextPtr(in.Subject),
		Description:     description,
		Outcome:         sanitize.TextPtr(in.Outcome),
		NextAction:      sanitize.TextPtr(in.NextAction),
		CreatedAt:       at,
	}, nil
}
