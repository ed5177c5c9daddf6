package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/cache"
	"marketplace_backend/platform/httpkit"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const expectedRole = "expected role %s, got %s"

type countingStore struct {
	*MemoryRoleStore
	calls atomic.Int32
	err   error
}

func (s *countingStore) LookupRole(ctx context.Context, userID string) (string, bool, error) {
	s.calls.Add(1)
	if s.err != nil {
		return "", false, s.err
	}
	return s.MemoryRoleStore.LookupRole(ctx, userID)
}

func newCountingStore() *countingStore {
	return &countingStore{MemoryRoleStore: NewMemoryRoleStore()}
}

func TestResolveRoles(t *testing.T) {
	store := newCountingStore()
	store.Assign("sa", "super_admin")
	store.Assign("ba", "brand_admin", "brand-b", "brand-a")
	store.Assign("u", "user")
	store.Assign("legacy-with-row", "brand_admin", "brand-a")

	legacy := NewLegacyAdmins([]string{"Ops@Example.com"})
	p := NewProvider(store, nil, legacy, nil, nil)

	cases := []struct {
		name   string
		userID string
		email  string
		role   domain.Role
		brands []string
	}{
		{"super admin", "sa", "", domain.RoleSuperAdmin, nil},
		{"brand admin", "ba", "", domain.RoleBrandAdmin, []string{"brand-a", "brand-b"}},
		{"plain user", "u", "ops@example.com", domain.RoleUser, nil},
		{"legacy fallback", "nobody", "ops@example.com", domain.RoleAdmin, nil},
		{"legacy ignored when a role exists", "legacy-with-row", "ops@example.com", domain.RoleBrandAdmin, []string{"brand-a"}},
		{"unknown user", "ghost", "ghost@example.com", domain.RoleUser, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id := p.Resolve(context.Background(), tc.userID, tc.email)
			if id.Role != tc.role {
				t.Fatalf(expectedRole, tc.role, id.Role)
			}
			if !slices.Equal(id.OwnedBrandIDs, tc.brands) && !(len(id.OwnedBrandIDs) == 0 && len(tc.brands) == 0) {
				t.Fatalf("expected brands %v, got %v", tc.brands, id.OwnedBrandIDs)
			}
		})
	}
}

func TestResolveDeniesOnStoreError(t *testing.T) {
	store := newCountingStore()
	store.err = errors.New("connection refused")
	p := NewProvider(store, cache.NewMemory[domain.Identity](time.Minute), NewLegacyAdmins([]string{"ops@example.com"}), nil, nil)

	id := p.Resolve(context.Background(), "sa", "ops@example.com")
	if id.Role != domain.RoleUser || len(id.OwnedBrandIDs) != 0 {
		t.Fatalf("expected deny-all identity, got %+v", id)
	}

	store.err = nil
	store.Assign("sa", "super_admin")
	if id := p.Resolve(context.Background(), "sa", ""); id.Role != domain.RoleSuperAdmin {
		t.Fatalf("expected failures not to be cached, got %s", id.Role)
	}
}

func TestResolveUsesCacheUntilInvalidated(t *testing.T) {
	store := newCountingStore()
	store.Assign("ba", "brand_admin", "brand-a")
	p := NewProvider(store, cache.NewMemory[domain.Identity](time.Minute), LegacyAdmins{}, nil, nil)

	p.Resolve(context.Background(), "ba", "")
	p.Resolve(context.Background(), "ba", "")
	if n := store.calls.Load(); n != 1 {
		t.Fatalf("expected one store call, got %d", n)
	}

	store.Assign("ba", "brand_admin", "brand-a", "brand-z")
	if err := p.Invalidate(context.Background(), "ba"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	id := p.Resolve(context.Background(), "ba", "")
	if len(id.OwnedBrandIDs) != 2 {
		t.Fatalf("expected refreshed brands, got %v", id.OwnedBrandIDs)
	}
}

func TestResolveWithRedisCache(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newCountingStore()
	store.Assign("ba", "brand_admin", "brand-a")
	identities := cache.NewRedis[domain.Identity](client, "identity:", time.Minute)

	first := NewProvider(store, identities, LegacyAdmins{}, nil, nil)
	second := NewProvider(store, identities, LegacyAdmins{}, nil, nil)

	first.Resolve(context.Background(), "ba", "")
	id := second.Resolve(context.Background(), "ba", "")
	if id.Role != domain.RoleBrandAdmin || len(id.OwnedBrandIDs) != 1 {
		t.Fatalf("expected cached brand admin, got %+v", id)
	}
	if n := store.calls.Load(); n != 1 {
		t.Fatalf("expected the shared cache to serve the second provider, got %d calls", n)
	}
	if !srv.Exists("identity:ba") {
		t.Fatalf("expected identity stored under prefixed key")
	}
}

func TestResolveBlankUser(t *testing.T) {
	p := NewProvider(newCountingStore(), nil, LegacyAdmins{}, nil, nil)
	if id := p.Resolve(context.Background(), "", "x@example.com"); id.Role != domain.RoleUser {
		t.Fatalf(expectedRole, domain.RoleUser, id.Role)
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := NewMemoryRoleStore()
	store.Assign("sa", "super_admin")
	p := NewProvider(store, nil, LegacyAdmins{}, nil, nil)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set(httpkit.ContextUserIDKey, c.GetHeader("X-Test-User"))
		}
		c.Next()
	})
	r.Use(Middleware(p))
	r.GET("/whoami", func(c *gin.Context) {
		c.String(http.StatusOK, string(FromContext(c).Role))
	})

	cases := []struct {
		user string
		want string
	}{
		{"sa", "super_admin"},
		{"", "user"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if tc.user != "" {
			req.Header.Set("X-Test-User", tc.user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Body.String() != tc.want {
			t.Fatalf("user %q: expected %s, got %s", tc.user, tc.want, w.Body.String())
		}
	}
}
