package access

import (
	"errors"
	"testing"

	"marketplace_backend/internal/pipeline/domain"
)

const scopesYAML = `
default:
  brands: [brand-x]
admins:
  Ops@Example.com:
    all: true
  admin-7:
    brands: [brand-a, brand-b]
`

func testEvaluator(t *testing.T) *Evaluator {
	t.Helper()
	scopes, err := ParseAdminScopes([]byte(scopesYAML))
	if err != nil {
		t.Fatalf("parse scopes: %v", err)
	}
	return NewEvaluator(scopes)
}

func TestVisibilityFilter(t *testing.T) {
	e := testEvaluator(t)
	cases := []struct {
		name    string
		id      domain.Identity
		visible []string
		hidden  []string
	}{
		{"super admin", domain.Identity{Role: domain.RoleSuperAdmin}, []string{"brand-a", "anything"}, nil},
		{"brand admin", domain.Identity{Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{"brand-b"}}, []string{"brand-b"}, []string{"brand-a"}},
		{"brand admin without brands", domain.Identity{Role: domain.RoleBrandAdmin}, nil, []string{"brand-a", ""}},
		{"admin by id", domain.Identity{UserID: "admin-7", Role: domain.RoleAdmin}, []string{"brand-a", "brand-b"}, []string{"brand-x"}},
		{"admin by email", domain.Identity{UserID: "u", Email: "ops@example.com", Role: domain.RoleAdmin}, []string{"brand-q"}, nil},
		{"admin default", domain.Identity{UserID: "u9", Role: domain.RoleAdmin}, []string{"brand-x"}, []string{"brand-a"}},
		{"user", domain.Identity{Role: domain.RoleUser, OwnedBrandIDs: []string{"brand-a"}}, nil, []string{"brand-a"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			scope := e.VisibilityFilter(tc.id)
			for _, b := range tc.visible {
				if !scope.Match(b) {
					t.Errorf("expected %s visible", b)
				}
			}
			for _, b := range tc.hidden {
				if scope.Match(b) {
					t.Errorf("expected %s hidden", b)
				}
			}
		})
	}
}

func TestEmptyOwnershipFailsClosed(t *testing.T) {
	e := testEvaluator(t)
	scope := e.VisibilityFilter(domain.Identity{Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{" ", ""}})
	if !scope.Empty() {
		t.Fatalf("expected empty scope, got %+v", scope)
	}
}

func TestAuthorize(t *testing.T) {
	e := testEvaluator(t)
	owner := domain.Identity{UserID: "o", Role: domain.RoleBrandAdmin, OwnedBrandIDs: []string{"brand-a"}}
	admin := domain.Identity{UserID: "admin-7", Role: domain.RoleAdmin}
	root := domain.Identity{UserID: "r", Role: domain.RoleSuperAdmin}
	user := domain.Identity{UserID: "u", Role: domain.RoleUser}

	cases := []struct {
		name  string
		id    domain.Identity
		op    Operation
		brand string
		want  error
	}{
		{"owner updates own", owner, OpUpdate, "brand-a", nil},
		{"owner replies own", owner, OpReply, "brand-a", nil},
		{"owner reads foreign", owner, OpRead, "brand-b", ErrNotVisible},
		{"owner updates foreign", owner, OpUpdate, "brand-b", ErrNotVisible},
		{"owner deletes own", owner, OpDelete, "brand-a", ErrForbidden},
		{"owner deletes foreign", owner, OpDelete, "brand-b", ErrNotVisible},
		{"admin deletes in scope", admin, OpDelete, "brand-b", nil},
		{"admin outside scope", admin, OpUpdate, "brand-x", ErrNotVisible},
		{"super admin anything", root, OpDelete, "brand-z", nil},
		{"user reads", user, OpRead, "brand-a", ErrForbidden},
		{"user lists", user, OpList, "", ErrForbidden},
		{"owner lists", owner, OpList, "", nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := e.Authorize(tc.id, tc.op, tc.brand); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestScopeIntersect(t *testing.T) {
	s := Brands("brand-b", "brand-a", "brand-a")
	if len(s.BrandIDs) != 2 {
		t.Fatalf("expected dedupe, got %v", s.BrandIDs)
	}
	if got := s.Intersect("brand-a"); !got.Match("brand-a") || got.Match("brand-b") {
		t.Fatalf("unexpected intersection %+v", got)
	}
	if got := s.Intersect("brand-z"); !got.Empty() {
		t.Fatalf("expected empty intersection, got %+v", got)
	}
	if got := AllBrands().Intersect("brand-z"); !got.Match("brand-z") || got.All {
		t.Fatalf("expected single-brand scope, got %+v", got)
	}
}

func TestLoadAdminScopesEmptyPath(t *testing.T) {
	scopes, err := LoadAdminScopes("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !scopes.For("anyone", "").Empty() {
		t.Fatal("expected no admin scope without a file")
	}
}
