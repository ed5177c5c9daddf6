package session

import (
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

// ContextIdentityKey is the gin key holding the resolved domain.Identity.
const ContextIdentityKey = "identity"

// Middleware resolves the authenticated principal into an identity. It must
// run after httpkit.AuthRequired.
func Middleware(p *Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal := httpkit.GetPrincipal(c)
		if !principal.IsAuthenticated() {
			c.Set(ContextIdentityKey, domain.DenyAll(""))
			c.Next()
			return
		}
		c.Set(ContextIdentityKey, p.Resolve(c.Request.Context(), principal.UserID(), principal.Email()))
		c.Next()
	}
}

// FromContext returns the identity set by Middleware. Missing identities are deny-all.
func FromContext(c *gin.Context) domain.Identity {
	if v, ok := c.Get(ContextIdentityKey); ok {
		if id, ok := v.(domain.Identity); ok {
			return id
		}
	}
	return domain.DenyAll(httpkit.GetPrincipal(c).UserID())
}
