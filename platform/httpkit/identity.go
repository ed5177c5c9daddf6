// Package httpkit provides HTTP utilities including principal abstraction.
package httpkit

import (
	"net/http"

	"marketplace_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// Principal is the authenticated caller as proven by the access token.
// Roles and brand ownership are resolved later by the session layer.
type Principal interface {
	// UserID returns the token subject.
	UserID() string
	// Email returns the email claim, or "" when absent.
	Email() string
	// IsAuthenticated returns true if a valid token was presented.
	IsAuthenticated() bool
}

type principal struct {
	userID        string
	email         string
	authenticated bool
}

func (p *principal) UserID() string        { return p.userID }
func (p *principal) Email() string         { return p.email }
func (p *principal) IsAuthenticated() bool { return p.authenticated }

// GetPrincipal extracts the Principal from a Gin context.
// Returns an unauthenticated principal if user info is not present.
func GetPrincipal(c *gin.Context) Principal {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &principal{}
	}

	uid, ok := userID.(string)
	if !ok || uid == "" {
		return &principal{}
	}

	email := c.GetString(ContextEmailKey)

	return &principal{userID: uid, email: email, authenticated: true}
}

// MustGetPrincipal extracts the Principal from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetPrincipal(c *gin.Context) Principal {
	p := GetPrincipal(c)
	if !p.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: apperr.KindUnauthorized.String()})
		return nil
	}
	return p
}
