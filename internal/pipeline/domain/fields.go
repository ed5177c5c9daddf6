package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"marketplace_backend/platform/phone"
	"marketplace_backend/platform/sanitize"
)

// Editable lead fields.
const (
	FieldPriority            = "priority"
	FieldEstimatedValueCents = "estimated_value_cents"
	FieldNotes               = "notes"
	FieldCustomerName        = "customer_name"
	FieldCustomerEmail       = "customer_email"
	FieldCustomerPhone       = "customer_phone"
	FieldSource              = "source"
	FieldInquiryType         = "inquiry_type"
)

// ApplyLeadField sets one editable lead field. value may be nil to clear an
// optional field, a string, or an integer (json.Number, int64, int or an
// integral float64) for estimated_value_cents.
func ApplyLeadField(l Lead, field string, value any, now time.Time) (Lead, error) {
	out := l.Clone()

	switch field {
	case FieldPriority:
		p, err := priorityValue(value)
		if err != nil {
			return l, err
		}
		out.Priority = p
	case FieldEstimatedValueCents:
		cents, err := optionalCents(value)
		if err != nil {
			return l, err
		}
		out.EstimatedValueCents = cents
	case FieldNotes:
		s, err := optionalString(field, value)
		if err != nil {
			return l, err
		}
		out.Notes = sanitize.TextPtr(s)
	case FieldCustomerName:
		s, err := requiredString(field, value)
		if err != nil {
			return l, err
		}
		name := sanitize.Line(s)
		if err := required(field, name); err != nil {
			return l, err
		}
		out.CustomerName = name
	case FieldCustomerEmail:
		s, err := requiredString(field, value)
		if err != nil {
			return l, err
		}
		email, err := normalizeEmail(s)
		if err != nil {
			return l, err
		}
		out.CustomerEmail = email
	case FieldCustomerPhone:
		s, err := optionalString(field, value)
		if err != nil {
			return l, err
		}
		out.CustomerPhone = phone.NormalizePtr(s)
	case FieldSource:
		s, err := requiredString(field, value)
		if err != nil {
			return l, err
		}
		src, ok := ParseLeadSource(s)
		if !ok {
			return l, invalid("source %q is not supported", s)
		}
		out.Source = src
	default:
		return l, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	out.UpdatedAt = nextUpdatedAt(l.UpdatedAt, now)
	return out, nil
}

// ApplyInquiryField sets one editable inquiry field.
func ApplyInquiryField(q Inquiry, field string, value any, now time.Time) (Inquiry, error) {
	out := q.Clone()

	switch field {
	case FieldPriority:
		p, err := priorityValue(value)
		if err != nil {
			return q, err
		}
		out.Priority = p
	case FieldInquiryType:
		s, err := requiredString(field, value)
		if err != nil {
			return q, err
		}
		t, ok := ParseInquiryType(s)
		if !ok {
			return q, invalid("inquiry_type %q is not supported", s)
		}
		out.InquiryType = t
	case FieldCustomerPhone:
		s, err := optionalString(field, value)
		if err != nil {
			return q, err
		}
		out.CustomerPhone = phone.NormalizePtr(s)
	default:
		return q, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}

	out.UpdatedAt = nextUpdatedAt(q.UpdatedAt, now)
	return out, nil
}

func priorityValue(value any) (Priority, error) {
	s, err := requiredString(FieldPriority, value)
	if err != nil {
		return "", err
	}
	p, ok := ParsePriority(s)
	if !ok {
		return "", invalid("priority %q is not supported", s)
	}
	return p, nil
}

func requiredString(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", invalid("%s must be a string", field)
	}
	return s, nil
}

func optionalString(field string, value any) (*string, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, invalid("%s must be a string or null", field)
	}
	return &s, nil
}

func optionalCents(value any) (*int64, error) {
	var cents int64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int64:
		cents = v
	case int:
		cents = int64(v)
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt64/2 {
			return nil, invalid("estimated_value_cents must be a whole number of cents")
		}
		cents = int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil, invalid("estimated_value_cents must be a whole number of cents")
		}
		cents = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, invalid("estimated_value_cents must be a whole number of cents")
		}
		cents = n
	default:
		return nil, invalid("estimated_value_cents must be a number or null")
	}
	if cents < 0 {
		return nil, invalid("estimated_value_cents must not be negative")
	}
	return &cents, nil
}
