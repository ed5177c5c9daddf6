// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// SchedulerConfig provides Redis/asynq settings for background notification delivery.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides SMTP settings for outbound notifications.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsEmailEnabled() bool
}

// NotificationConfig provides settings for the notification module.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// SessionConfig provides settings for caller identity resolution.
type SessionConfig interface {
	GetRoleCacheTTL() time.Duration
	GetLegacyAdminEmails() []string
	GetAdminScopesFile() string
}

// PipelineConfig provides lifecycle engine settings.
type PipelineConfig interface {
	GetMutationTimeout() time.Duration
	GetSyncPollInterval() time.Duration
	GetSurfaceIdleTTL() time.Duration
	GetDefaultTimezone() string
}

// AnalyticsConfig provides aggregation settings.
type AnalyticsConfig interface {
	GetAnalyticsLookback() time.Duration
	GetCommissionRateBps() int64
}

// ValuationConfig provides settings for the external valuation estimator.
type ValuationConfig interface {
	GetValuationURL() string
	GetValuationAPIKey() string
	GetValuationTimeout() time.Duration
	IsValuationEnabled() bool
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env               string
	HTTPAddr          string
	StoreDriver       string
	DatabaseURL       string
	DatabaseMaxConns  int32
	JWTAccessSecret   string
	CORSAllowAll      bool
	CORSOrigins       []string
	CORSAllowCreds    bool
	AppBaseURL        string
	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	EmailFromName     string
	EmailFromAddress  string
	RoleCacheTTL      time.Duration
	LegacyAdminEmails []string
	AdminScopesFile   string
	MutationTimeout   time.Duration
	SyncPollInterval  time.Duration
	SurfaceIdleTTL    time.Duration
	DefaultTimezone   string
	AnalyticsLookback time.Duration
	CommissionRateBps int64
	ValuationURL      string
	ValuationAPIKey   string
	ValuationTimeout  time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }

// UsesMemoryStore reports whether the in-process store replaces Postgres (local development).
func (c *Config) UsesMemoryStore() bool { return strings.EqualFold(c.StoreDriver, "memory") }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsEmailEnabled() bool        { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// SessionConfig implementation
func (c *Config) GetRoleCacheTTL() time.Duration { return c.RoleCacheTTL }
func (c *Config) GetLegacyAdminEmails() []string { return c.LegacyAdminEmails }
func (c *Config) GetAdminScopesFile() string     { return c.AdminScopesFile }

// PipelineConfig implementation
func (c *Config) GetMutationTimeout() time.Duration  { return c.MutationTimeout }
func (c *Config) GetSyncPollInterval() time.Duration { return c.SyncPollInterval }
func (c *Config) GetSurfaceIdleTTL() time.Duration   { return c.SurfaceIdleTTL }
func (c *Config) GetDefaultTimezone() string         { return c.DefaultTimezone }

// AnalyticsConfig implementation
func (c *Config) GetAnalyticsLookback() time.Duration { return c.AnalyticsLookback }
func (c *Config) GetCommissionRateBps() int64         { return c.CommissionRateBps }

// ValuationConfig implementation
func (c *Config) GetValuationURL() string            { return c.ValuationURL }
func (c *Config) GetValuationAPIKey() string         { return c.ValuationAPIKey }
func (c *Config) GetValuationTimeout() time.Duration { return c.ValuationTimeout }
func (c *Config) IsValuationEnabled() bool           { return c.ValuationURL != "" }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:               getEnv("APP_ENV", "development"),
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		StoreDriver:       getEnv("STORE_DRIVER", "postgres"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:  int32(mustInt(getEnv("DB_MAX_CONNS", "20"))),
		JWTAccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:      corsAllowAll,
		CORSOrigins:       corsOrigins,
		CORSAllowCreds:    strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:4200"),
		RedisURL:          getEnv("REDIS_URL", ""),
		RedisTLSInsecure:  strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:  mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
		EmailFromName:     getEnv("EMAIL_FROM_NAME", "Marketplace"),
		EmailFromAddress:  getEnv("EMAIL_FROM_ADDRESS", ""),
		RoleCacheTTL:      mustDuration(getEnv("ROLE_CACHE_TTL", "5m")),
		LegacyAdminEmails: splitCSV(strings.ToLower(getEnv("LEGACY_ADMIN_EMAILS", ""))),
		AdminScopesFile:   getEnv("ADMIN_SCOPES_FILE", ""),
		MutationTimeout:   mustDuration(getEnv("MUTATION_TIMEOUT", "10s")),
		SyncPollInterval:  mustDuration(getEnv("SYNC_POLL_INTERVAL", "30s")),
		SurfaceIdleTTL:    mustDuration(getEnv("SURFACE_IDLE_TTL", "15m")),
		DefaultTimezone:   getEnv("DEFAULT_TIMEZONE", "UTC"),
		AnalyticsLookback: mustDuration(getEnv("ANALYTICS_LOOKBACK", "720h")),
		CommissionRateBps: mustInt64(getEnv("COMMISSION_RATE_BPS", "1000")),
		ValuationURL:      getEnv("VALUATION_URL", ""),
		ValuationAPIKey:   getEnv("VALUATION_API_KEY", ""),
		ValuationTimeout:  mustDuration(getEnv("VALUATION_TIMEOUT", "2s")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" && !c.UsesMemoryStore() {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.MutationTimeout <= 0 {
		return fmt.Errorf("MUTATION_TIMEOUT must be a positive duration")
	}
	if c.SyncPollInterval <= 0 {
		return fmt.Errorf("SYNC_POLL_INTERVAL must be a positive duration")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil {
		return fmt.Errorf("DEFAULT_TIMEZONE is invalid: %w", err)
	}
	if c.CommissionRateBps < 0 || c.CommissionRateBps > 10000 {
		return fmt.Errorf("COMMISSION_RATE_BPS must be between 0 and 10000")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
