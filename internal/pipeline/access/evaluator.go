package access

import (
	"errors"

	"marketplace_backend/internal/pipeline/domain"
)

// Operation is an action requested on a lead or inquiry.
type Operation string

const (
	OpRead   Operation = "read"
	OpList   Operation = "list"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpReply  Operation = "reply"
)

var (
	// ErrForbidden means the caller's role never allows the operation.
	ErrForbidden = errors.New("operation not permitted")
	// ErrNotVisible means the record lies outside the caller's scope. Callers
	// must report it exactly like a missing record.
	ErrNotVisible = errors.New("record not visible")
)

// Evaluator applies the role rules.
type Evaluator struct {
	admins AdminScopes
}

// NewEvaluator creates an evaluator using admins for the admin role.
func NewEvaluator(admins AdminScopes) *Evaluator {
	return &Evaluator{admins: admins}
}

// VisibilityFilter returns the brands id may see. Unknown roles see nothing.
func (e *Evaluator) VisibilityFilter(id domain.Identity) Scope {
	switch id.Role {
	case domain.RoleSuperAdmin:
		return AllBrands()
	case domain.RoleBrandAdmin:
		return Brands(id.OwnedBrandIDs...)
	case domain.RoleAdmin:
		return e.admins.For(id.UserID, id.Email)
	default:
		return Scope{}
	}
}

// Authorize decides whether id may perform op on a record owned by brandID.
// For OpList brandID is ignored; the scope from VisibilityFilter applies.
func (e *Evaluator) Authorize(id domain.Identity, op Operation, brandID string) error {
	switch id.Role {
	case domain.RoleSuperAdmin, domain.RoleAdmin, domain.RoleBrandAdmin:
	default:
		return ErrForbidden
	}

	if op == OpList {
		return nil
	}

	if !e.VisibilityFilter(id).Match(brandID) {
		return ErrNotVisible
	}

	if op == OpDelete && id.Role == domain.RoleBrandAdmin {
		return ErrForbidden
	}

	return nil
}
