// Package session resolves the authenticated caller into a domain identity:
// role and owned brands from the role store, cached, with an isolated legacy
// email fallback. Any lookup failure yields a deny-all identity.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/platform/cache"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"

	"golang.org/x/sync/singleflight"
)

// Lookup results recorded in metrics.
const (
	resultHit    = "hit"
	resultMiss   = "miss"
	resultLegacy = "legacy"
	resultError  = "error"
)

// Provider resolves identities.
type Provider struct {
	store   RoleStore
	cache   cache.Cache[domain.Identity]
	legacy  LegacyAdmins
	metrics *metrics.Metrics
	log     *logger.Logger
	group   singleflight.Group
}

// NewProvider creates a provider. cache, m and log may be nil.
func NewProvider(store RoleStore, c cache.Cache[domain.Identity], legacy LegacyAdmins, m *metrics.Metrics, log *logger.Logger) *Provider {
	if log == nil {
		log = logger.Discard()
	}
	return &Provider{store: store, cache: c, legacy: legacy, metrics: m, log: log}
}

// Resolve returns the identity of userID. It never fails: an unknown user or
// a failing store yields role user, which may do nothing.
func (p *Provider) Resolve(ctx context.Context, userID, email string) domain.Identity {
	if userID == "" {
		return domain.DenyAll("")
	}

	if p.cache != nil {
		cached, ok, err := p.cache.Get(ctx, userID)
		if err != nil {
			p.log.Warn("identity cache read failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		} else if ok {
			p.metrics.IncrIdentityLookup(resultHit)
			return cached
		}
	}

	v, err, _ := p.group.Do(userID, func() (any, error) {
		return p.lookup(ctx, userID, email)
	})
	if err != nil {
		p.metrics.IncrIdentityLookup(resultError)
		p.log.WithContext(ctx).Warn("identity lookup failed, denying access",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return domain.DenyAll(userID)
	}

	id := v.(domain.Identity)
	if p.cache != nil {
		if err := p.cache.Set(ctx, userID, id); err != nil {
			p.log.Warn("identity cache write failed", slog.String("user_id", userID), slog.String("error", err.Error()))
		}
	}
	return id
}

func (p *Provider) lookup(ctx context.Context, userID, email string) (domain.Identity, error) {
	raw, found, err := p.store.LookupRole(ctx, userID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("lookup role: %w", err)
	}

	id := domain.Identity{UserID: userID, Email: email, Role: domain.RoleUser}
	if found {
		id.Role = domain.ParseRole(raw)
	}

	if id.Role == domain.RoleUser && !found && p.legacy.Grants(email) {
		id.Role = domain.RoleAdmin
		p.metrics.IncrIdentityLookup(resultLegacy)
		p.log.Info("legacy admin email fallback used", slog.String("user_id", userID))
		return id, nil
	}

	if id.Role == domain.RoleBrandAdmin {
		brands, err := p.store.OwnedBrands(ctx, userID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("lookup brands: %w", err)
		}
		id.OwnedBrandIDs = brands
	}

	p.metrics.IncrIdentityLookup(resultMiss)
	return id, nil
}

// Invalidate drops the cached identity of userID, for example after a role change.
func (p *Provider) Invalidate(ctx context.Context, userID string) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Delete(ctx, userID)
}
