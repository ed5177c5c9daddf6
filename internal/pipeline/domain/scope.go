package domain

import (
	"slices"
	"strings"
)

// Scope is a visibility filter over brand IDs. The zero value matches nothing.
type Scope struct {
	All      bool
	BrandIDs []string
}

// AllBrands is the unrestricted scope.
func AllBrands() Scope { return Scope{All: true} }

// Brands builds a scope over ids. Blank and duplicate IDs are dropped.
func Brands(ids ...string) Scope {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return Scope{BrandIDs: slices.Compact(out)}
}

// Match reports whether a record owned by brandID is visible.
func (s Scope) Match(brandID string) bool {
	if s.All {
		return true
	}
	_, found := slices.BinarySearch(s.BrandIDs, brandID)
	return found
}

// Empty reports whether the scope matches nothing.
func (s Scope) Empty() bool {
	return !s.All && len(s.BrandIDs) == 0
}

// Intersect narrows s to brandID. Used when a caller filters a list by brand.
func (s Scope) Intersect(brandID string) Scope {
	if s.Match(brandID) {
		return Brands(brandID)
	}
	return Scope{}
}
