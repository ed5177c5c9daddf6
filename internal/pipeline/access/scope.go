// Package access decides who may see and change which leads and inquiries.
// It is pure: identities and admin scopes are passed in, nothing is looked up.
package access

import "marketplace_backend/internal/pipeline/domain"

// Scope is a visibility filter over brand IDs. The zero value matches nothing.
type Scope = domain.Scope

// AllBrands is the unrestricted scope.
func AllBrands() Scope { return domain.AllBrands() }

// Brands builds a scope over ids.
func Brands(ids ...string) Scope { return domain.Brands(ids...) }
