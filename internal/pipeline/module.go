// Package pipeline provides the lead and inquiry lifecycle bounded context module.
// It wires the service, dashboard surfaces, analytics and HTTP handler together.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/analytics"
	"marketplace_backend/internal/pipeline/dashboard"
	"marketplace_backend/internal/pipeline/handler"
	"marketplace_backend/internal/pipeline/livesync"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/internal/pipeline/service"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"
	"marketplace_backend/platform/validator"
)

// Config combines the settings the module reads.
type Config interface {
	config.PipelineConfig
	config.AnalyticsConfig
	config.ValuationConfig
}

// Module is the pipeline bounded context.
type Module struct {
	service    *service.Service
	registry   *dashboard.Registry
	aggregator *analytics.Aggregator
	handler    *handler.Handler
}

// NewModule builds the module. estimator may be nil, in which case pipeline
// value reports only use explicit lead estimates.
func NewModule(
	store repository.Store,
	policy *access.Evaluator,
	bus events.Bus,
	estimator analytics.Estimator,
	m *metrics.Metrics,
	val *validator.Validator,
	cfg Config,
	log *logger.Logger,
) (*Module, error) {
	loc, err := time.LoadLocation(cfg.GetDefaultTimezone())
	if err != nil {
		return nil, fmt.Errorf("load default timezone: %w", err)
	}

	hub := livesync.NewHub(m)

	registry := dashboard.NewRegistry(dashboard.Deps{
		Store:           store,
		Policy:          policy,
		Hub:             hub,
		Bus:             bus,
		Metrics:         m,
		Log:             log,
		MutationTimeout: cfg.GetMutationTimeout(),
		PollInterval:    cfg.GetSyncPollInterval(),
		IdleTTL:         cfg.GetSurfaceIdleTTL(),
	})

	svc := service.New(service.Deps{
		Store:  store,
		Policy: policy,
		Hub:    hub,
		Bus:    bus,
		Log:    log,
	})

	aggregator := analytics.New(store, estimator, m, log, analytics.Options{
		Lookback:          cfg.GetAnalyticsLookback(),
		CommissionRateBps: cfg.GetCommissionRateBps(),
		EstimatorTimeout:  cfg.GetValuationTimeout(),
	})

	h := handler.New(handler.Deps{
		Service:         svc,
		Registry:        registry,
		Analytics:       aggregator,
		Policy:          policy,
		Validator:       val,
		DefaultLocation: loc,
		Log:             log,
	})

	return &Module{
		service:    svc,
		registry:   registry,
		aggregator: aggregator,
		handler:    h,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Service exposes the lifecycle service for other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Registry exposes the dashboard surfaces.
func (m *Module) Registry() *dashboard.Registry {
	return m.registry
}

// Run expires idle dashboard surfaces until ctx is done.
func (m *Module) Run(ctx context.Context) {
	m.registry.Run(ctx)
}

// Close stops every open surface.
func (m *Module) Close() {
	m.registry.Close()
}

// RegisterRoutes mounts the public intake and dashboard routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterPublicRoutes(ctx.Public)
	m.handler.RegisterRoutes(ctx.Protected)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
