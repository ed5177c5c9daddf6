// Package transport holds the JSON shapes of the pipeline HTTP API.
package transport

import (
	"time"

	"marketplace_backend/internal/pipeline/domain"

	"github.com/google/uuid"
)

// Request DTOs

type CreateLeadRequest struct {
	BrandID             string  `json:"brandId" validate:"required,max=100"`
	CustomerName        string  `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail       string  `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone       *string `json:"customerPhone,omitempty" validate:"omitempty,min=5,max=32"`
	Source              string  `json:"source,omitempty" validate:"omitempty,oneof=contact_form social_media referral website phone email event"`
	Priority            string  `json:"priority,omitempty" validate:"omitempty,oneof=low normal medium high urgent"`
	EstimatedValueCents *int64  `json:"estimatedValueCents,omitempty" validate:"omitempty,min=0"`
	Notes               *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

// PublicLeadRequest is the contact form variant. The brand comes from the path.
type PublicLeadRequest struct {
	CustomerName  string  `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string  `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone *string `json:"customerPhone,omitempty" validate:"omitempty,min=5,max=32"`
	Source        string  `json:"source,omitempty" validate:"omitempty,oneof=contact_form social_media referral website phone email event"`
	Notes         *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}

type PublicInquiryRequest struct {
	CustomerName  string  `json:"customerName" validate:"required,min=1,max=200"`
	CustomerEmail string  `json:"customerEmail" validate:"required,email,max=254"`
	CustomerPhone *string `json:"customerPhone,omitempty" validate:"omitempty,min=5,max=32"`
	Subject       string  `json:"subject" validate:"required,min=1,max=300"`
	Message       string  `json:"message" validate:"required,min=1,max=10000"`
	InquiryType   string  `json:"inquiryType,omitempty" validate:"omitempty,oneof=general custom_order product_question collaboration wholesale"`
	Source        string  `json:"source,omitempty" validate:"omitempty,max=50"`
}

// UpdateStatusRequest leaves enum checking to the lifecycle so an unknown
// target surfaces as an invalid transition, not a validation failure.
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required,max=50"`
}

// UpdateFieldRequest sets one editable field. A null value clears optional fields.
type UpdateFieldRequest struct {
	Field string `json:"field" validate:"required,max=50"`
	Value any    `json:"value"`
}

type CreateInteractionRequest struct {
	InteractionType string     `json:"interactionType" validate:"required,oneof=email call meeting proposal follow_up"`
	InteractionDate *time.Time `json:"interactionDate,omitempty"`
	Subject         *string    `json:"subject,omitempty" validate:"omitempty,max=300"`
	Description     string     `json:"description" validate:"required,min=1,max=10000"`
	Outcome         *string    `json:"outcome,omitempty" validate:"omitempty,max=2000"`
	NextAction      *string    `json:"nextAction,omitempty" validate:"omitempty,max=2000"`
}

type CreateReplyRequest struct {
	Message        string `json:"message" validate:"required,min=1,max=10000"`
	IsInternalNote bool   `json:"isInternalNote"`
}

// ListQuery is bound from the query string of list endpoints.
type ListQuery struct {
	Status    string     `form:"status" validate:"omitempty,max=200"`
	Priority  string     `form:"priority" validate:"omitempty,oneof=low normal high urgent"`
	Search    string     `form:"search" validate:"omitempty,max=100"`
	From      *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To        *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	SortBy    string     `form:"sortBy" validate:"omitempty,oneof=createdAt updatedAt customerName status priority value"`
	SortOrder string     `form:"sortOrder" validate:"omitempty,oneof=asc desc"`
	Page      int        `form:"page" validate:"omitempty,min=1"`
	PageSize  int        `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

type TopBrandsQuery struct {
	K int `form:"k" validate:"omitempty,min=1,max=100"`
}

// Response DTOs

type LeadResponse struct {
	ID                  uuid.UUID         `json:"id"`
	BrandID             string            `json:"brandId"`
	CustomerName        string            `json:"customerName"`
	CustomerEmail       string            `json:"customerEmail"`
	CustomerPhone       *string           `json:"customerPhone,omitempty"`
	Source              domain.LeadSource `json:"source"`
	Status              domain.LeadStatus `json:"status"`
	Priority            domain.Priority   `json:"priority"`
	EstimatedValueCents *int64            `json:"estimatedValueCents,omitempty"`
	Notes               *string           `json:"notes,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
	UpdatedAt           time.Time         `json:"updatedAt"`
	ContactedAt         *time.Time        `json:"contactedAt,omitempty"`
	QualifiedAt         *time.Time        `json:"qualifiedAt,omitempty"`
	ConvertedAt         *time.Time        `json:"convertedAt,omitempty"`
	Terminal            bool              `json:"terminal"`
}

type InquiryResponse struct {
	ID            uuid.UUID            `json:"id"`
	BrandID       string               `json:"brandId"`
	CustomerName  string               `json:"customerName"`
	CustomerEmail string               `json:"customerEmail"`
	CustomerPhone *string              `json:"customerPhone,omitempty"`
	Subject       string               `json:"subject"`
	Message       string               `json:"message"`
	InquiryType   domain.InquiryType   `json:"inquiryType"`
	Status        domain.InquiryStatus `json:"status"`
	Priority      domain.Priority      `json:"priority"`
	Source        string               `json:"source"`
	ReplyCount    int                  `json:"replyCount"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
	ReadAt        *time.Time           `json:"readAt,omitempty"`
	RepliedAt     *time.Time           `json:"repliedAt,omitempty"`
}

type InteractionResponse struct {
	ID              uuid.UUID              `json:"id"`
	LeadID          uuid.UUID              `json:"leadId"`
	InteractionType domain.InteractionType `json:"interactionType"`
	InteractionDate time.Time              `json:"interactionDate"`
	Subject         *string                `json:"subject,omitempty"`
	Description     string                 `json:"description"`
	Outcome         *string                `json:"outcome,omitempty"`
	NextAction      *string                `json:"nextAction,omitempty"`
	CreatedAt       time.Time              `json:"createdAt"`
}

type ReplyResponse struct {
	ID             uuid.UUID `json:"id"`
	InquiryID      uuid.UUID `json:"inquiryId"`
	AdminID        string    `json:"adminId"`
	Message        string    `json:"message"`
	IsInternalNote bool      `json:"isInternalNote"`
	CreatedAt      time.Time `json:"createdAt"`
}

// PostReplyResponse carries the new reply and the inquiry it moved.
type PostReplyResponse struct {
	Reply   ReplyResponse   `json:"reply"`
	Inquiry InquiryResponse `json:"inquiry"`
}

type PageResponse[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}

// SyncEvent is one server-sent change notification.
type SyncEvent struct {
	Type      string    `json:"type"`
	Entity    string    `json:"entity"`
	ID        uuid.UUID `json:"id"`
	BrandID   string    `json:"brandId"`
	UpdatedAt time.Time `json:"updatedAt"`
	Origin    string    `json:"origin"`
	Record    any       `json:"record,omitempty"`
}
