package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketplace_backend/internal/email"
	"marketplace_backend/internal/events"
	apphttp "marketplace_backend/internal/http"
	"marketplace_backend/internal/http/router"
	"marketplace_backend/internal/notification"
	"marketplace_backend/internal/pipeline"
	"marketplace_backend/internal/pipeline/access"
	"marketplace_backend/internal/pipeline/analytics"
	"marketplace_backend/internal/pipeline/domain"
	"marketplace_backend/internal/pipeline/repository"
	"marketplace_backend/internal/scheduler"
	"marketplace_backend/internal/session"
	"marketplace_backend/internal/valuation"
	"marketplace_backend/migrations"
	"marketplace_backend/platform/cache"
	"marketplace_backend/platform/config"
	"marketplace_backend/platform/db"
	"marketplace_backend/platform/logger"
	"marketplace_backend/platform/metrics"
	"marketplace_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const identityCachePrefix = "identity:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	m := metrics.New()

	var (
		store     repository.Store
		roleStore session.RoleStore
		health    apphttp.HealthChecker
	)
	if cfg.UsesMemoryStore() {
		log.Warn("STORE_DRIVER=memory; data is lost on restart")
		store = repository.NewMemoryStore()
		roleStore = session.NewMemoryRoleStore()
	} else {
		pool := connectDatabase(ctx, cfg, log)
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
		roleStore = session.NewPostgresRoleStore(pool)
		health = pool
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	redisClient := initRedis(cfg, log)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	identityCache, closeCache := initIdentityCache(cfg, redisClient)
	defer closeCache()

	sessions := session.NewProvider(roleStore, identityCache, session.NewLegacyAdmins(cfg.GetLegacyAdminEmails()), m, log)

	adminScopes, err := access.LoadAdminScopes(cfg.GetAdminScopesFile())
	if err != nil {
		log.Error("failed to load admin scopes", "error", err)
		panic("failed to load admin scopes: " + err.Error())
	}
	policy := access.NewEvaluator(adminScopes)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	queue, closeQueue := initNotificationQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(email.NewSender(cfg), queue, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	pipelineModule, err := pipeline.NewModule(store, policy, eventBus, initEstimator(cfg, log), m, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize pipeline module", "error", err)
		panic("failed to initialize pipeline module: " + err.Error())
	}
	defer pipelineModule.Close()
	go pipelineModule.Run(ctx)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   health,
		EventBus: eventBus,
		Sessions: sessions,
		Metrics:  m,
		Modules: []apphttp.Module{
			pipelineModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		// Event streams never finish on their own; closing surfaces ends them.
		pipelineModule.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func connectDatabase(ctx context.Context, cfg *config.Config, log *logger.Logger) *pgxpool.Pool {
	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	log.Info("database connection established")

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, pool, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	return pool
}

func initRedis(cfg config.SchedulerConfig, log *logger.Logger) *redis.Client {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; using in-process identity cache and inline notifications")
		return nil
	}
	opt, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		log.Error("invalid REDIS_URL; falling back to in-process identity cache", "error", err)
		return nil
	}
	return redis.NewClient(opt)
}

func initIdentityCache(cfg config.SessionConfig, client *redis.Client) (cache.Cache[domain.Identity], func()) {
	if client != nil {
		return cache.NewRedis[domain.Identity](client, identityCachePrefix, cfg.GetRoleCacheTTL()), func() {}
	}
	mem := cache.NewMemory[domain.Identity](cfg.GetRoleCacheTTL())
	return mem, mem.Close
}

// initNotificationQueue returns a nil queue when Redis is not configured so the
// notification module delivers inline.
func initNotificationQueue(cfg config.SchedulerConfig, log *logger.Logger) (scheduler.NotificationQueue, func()) {
	if cfg.GetRedisURL() == "" {
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize notification queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func initEstimator(cfg config.ValuationConfig, log *logger.Logger) analytics.Estimator {
	if !cfg.IsValuationEnabled() {
		log.Info("VALUATION_URL not configured; pipeline value uses explicit estimates only")
		return nil
	}
	return valuation.New(cfg.GetValuationURL(), cfg.GetValuationAPIKey(), cfg.GetValuationTimeout(), log)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
