package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is the caller's platform role.
type Role string

const (
	RoleUser       Role = "user"
	RoleBrandAdmin Role = "brand_admin"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// ParseRole maps unknown roles to RoleUser, which can do nothing.
func ParseRole(raw string) Role {
	switch r := Role(normalizeEnum(raw)); r {
	case RoleBrandAdmin, RoleAdmin, RoleSuperAdmin:
		return r
	default:
		return RoleUser
	}
}

// Identity is the caller as resolved by the session provider.
type Identity struct {
	UserID        string   `json:"userId"`
	Email         string   `json:"email"`
	Role          Role     `json:"role"`
	OwnedBrandIDs []string `json:"ownedBrandIds"`
}

// DenyAll is the identity used when the caller cannot be resolved.
func DenyAll(userID string) Identity {
	return Identity{UserID: userID, Role: RoleUser}
}

// Ref identifies one lead or inquiry.
type Ref struct {
	Type EntityType
	ID   uuid.UUID
}

// LeadRef builds a lead reference.
func LeadRef(id uuid.UUID) Ref { return Ref{Type: EntityLead, ID: id} }

// InquiryRef builds an inquiry reference.
func InquiryRef(id uuid.UUID) Ref { return Ref{Type: EntityInquiry, ID: id} }

func (r Ref) String() string { return string(r.Type) + ":" + r.ID.String() }

// Record is a lead or an inquiry as seen by the coordinator and the sync layer.
type Record interface {
	Ref() Ref
	Brand() string
	Version() time.Time
	CloneRecord() Record
}

// Lead is a prospective-customer contact attributed to one brand.
type Lead struct {
	ID                  uuid.UUID
	BrandID             string
	CustomerName        string
	CustomerEmail       string
	CustomerPhone       *string
	Source              LeadSource
	Status              LeadStatus
	Priority            Priority
	EstimatedValueCents *int64
	Notes               *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
	ContactedAt         *time.Time
	QualifiedAt         *time.Time
	ConvertedAt         *time.Time
}

func (l Lead) Ref() Ref            { return LeadRef(l.ID) }
func (l Lead) Brand() string       { return l.BrandID }
func (l Lead) Version() time.Time  { return l.UpdatedAt }
func (l Lead) CloneRecord() Record { return l.Clone() }

// Clone returns a deep copy; no pointer is shared with l.
func (l Lead) Clone() Lead {
	out := l
	out.CustomerPhone = cloneString(l.CustomerPhone)
	out.EstimatedValueCents = cloneInt64(l.EstimatedValueCents)
	out.Notes = cloneString(l.Notes)
	out.ContactedAt = cloneTime(l.ContactedAt)
	out.QualifiedAt = cloneTime(l.QualifiedAt)
	out.ConvertedAt = cloneTime(l.ConvertedAt)
	return out
}

// LeadInteraction is an append-only contact log entry owned by a lead.
type LeadInteraction struct {
	ID              uuid.UUID
	LeadID          uuid.UUID
	InteractionType InteractionType
	InteractionDate time.Time
	Subject         *string
	Description     string
	Outcome         *string
	NextAction      *string
	CreatedAt       time.Time
}

// Inquiry is a customer message addressed to a brand.
type Inquiry struct {
	ID            uuid.UUID
	BrandID       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone *string
	Subject       string
	Message       string
	InquiryType   InquiryType
	Status        InquiryStatus
	Priority      Priority
	Source        string
	ReplyCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	ReadAt        *time.Time
	RepliedAt     *time.Time
}

func (q Inquiry) Ref() Ref            { return InquiryRef(q.ID) }
func (q Inquiry) Brand() string       { return q.BrandID }
func (q Inquiry) Version() time.Time  { return q.UpdatedAt }
func (q Inquiry) CloneRecord() Record { return q.Clone() }

// Clone returns a deep copy; no pointer is shared with q.
func (q Inquiry) Clone() Inquiry {
	out := q
	out.CustomerPhone = cloneString(q.CustomerPhone)
	out.ReadAt = cloneTime(q.ReadAt)
	out.RepliedAt = cloneTime(q.RepliedAt)
	return out
}

// Reply is an admin message on an inquiry. Internal notes are never shown
// to the customer and never move the inquiry.
type Reply struct {
	ID             uuid.UUID
	InquiryID      uuid.UUID
	AdminID        string
	Message        string
	IsInternalNote bool
	CreatedAt      time.Time
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneInt64(n *int64) *int64 {
	if n == nil {
		return nil
	}
	v := *n
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
