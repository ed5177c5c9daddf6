package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/session"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret     = "router-test-secret"
	expectedStatus = "expected status %d, got %d"
)

type stubModule struct {
	seen domain.Identity
}

func (m *stubModule) Name() string { return "stub" }

func (m *stubModule) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Public.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	ctx.Protected.GET("/whoami", func(c *gin.Context) {
		m.seen = session.FromContext(c)
		c.Status(http.StatusNoContent)
	})
}

type failingHealth struct{}

func (failingHealth) Ping(context.Context) error { return errors.New("db down") }

func newEngine(t *testing.T, health apphttp.HealthChecker) (*gin.Engine, *stubModule) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	roles := session.NewMemoryRoleStore()
	roles.Assign("user-1", string(domain.RoleSuperAdmin))

	stub := &stubModule{}
	engine := New(&apphttp.App{
		Config:   &config.Config{JWTAccessSecret: testSecret, CORSOrigins: []string{"http://localhost:4200"}},
		Logger:   logger.Discard(),
		Health:   health,
		Sessions: session.NewProvider(roles, nil, session.NewLegacyAdmins(nil), nil, nil),
		Metrics:  metrics.New(),
		Modules:  []apphttp.Module{stub},
	})
	return engine, stub
}

func accessToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   userID,
		"email": userID + "@example.com",
		"type":  "access",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func serve(engine *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		health apphttp.HealthChecker
		status int
	}{
		{name: "no checker", status: http.StatusOK},
		{name: "failing store", health: failingHealth{}, status: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _ := newEngine(t, tt.health)
			w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if w.Code != tt.status {
				t.Fatalf(expectedStatus, tt.status, w.Code)
			}
		})
	}
}

func TestPublicRoutesSkipAuth(t *testing.T) {
	engine, _ := newEngine(t, nil)
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/public/ping", nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf(expectedStatus, http.StatusNoContent, w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("expected security headers on every response")
	}
}

func TestProtectedRoutesResolveIdentity(t *testing.T) {
	engine, stub := newEngine(t, nil)

	if w := serve(engine, httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)); w.Code != http.StatusUnauthorized {
		t.Fatalf(expectedStatus, http.StatusUnauthorized, w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken(t, "user-1"))
	if w := serve(engine, req); w.Code != http.StatusNoContent {
		t.Fatalf(expectedStatus, http.StatusNoContent, w.Code)
	}
	if stub.seen.Role != domain.RoleSuperAdmin {
		t.Fatalf("expected super_admin identity, got %+v", stub.seen)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	engine, _ := newEngine(t, nil)
	w := serve(engine, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf(expectedStatus, http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "pipeline_") {
		t.Fatal("expected pipeline metrics to be registered")
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine, _ := newEngine(t, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/public/ping", nil)
	req.Header.Set("Origin", "http://localhost:4200")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	w := serve(engine, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:4200" {
		t.Fatalf("expected origin to be allowed, got %q", got)
	}
}
