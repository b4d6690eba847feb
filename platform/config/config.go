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

// SchedulerConfig provides settings for the asynq worker and periodic jobs.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetMissedLeadSweepCron() string
	GetSubscriptionExpiryCron() string
}

// MarketplaceConfig provides the lead matching and dispatch settings.
type MarketplaceConfig interface {
	GetMissedLeadTimeout() time.Duration
	GetDispatchConcurrency() int
	GetMatchRequireAvailable() bool
	GetPollInterval() time.Duration
	GetPollIntervalConnected() time.Duration
	GetPhoneDefaultRegion() string
	GetPlanCatalogPath() string
	GetAppBaseURL() string
}

// PaymentConfig provides the payment gateway credentials.
type PaymentConfig interface {
	GetPaymentKeyID() string
	GetPaymentKeySecret() string
	GetPaymentCurrency() string
}

// EmailConfig provides SMTP settings for customer emails.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetSMTPFrom() string
}

// RealtimeConfig provides WebSocket settings.
type RealtimeConfig interface {
	GetWSAllowedOrigins() []string
	GetWSSendBuffer() int
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env             string
	HTTPAddr        string
	DatabaseURL     string
	JWTAccessSecret string
	CORSAllowAll    bool
	CORSOrigins     []string
	CORSAllowCreds  bool
	AppBaseURL      string

	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	MissedLeadSweepCron    string
	SubscriptionExpiryCron string

	MissedLeadTimeout     time.Duration
	DispatchConcurrency   int
	MatchRequireAvailable bool
	PollInterval          time.Duration
	PollIntervalConnected time.Duration
	PhoneDefaultRegion    string
	PlanCatalogPath       string

	PaymentKeyID     string
	PaymentKeySecret string
	PaymentCurrency  string

	EmailEnabled bool
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	WSAllowedOrigins []string
	WSSendBuffer     int
}

// =============================================================================
// Interface Implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }
func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetAppBaseURL() string      { return c.AppBaseURL }

func (c *Config) GetRedisURL() string               { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool         { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string         { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int          { return c.AsynqConcurrency }
func (c *Config) GetMissedLeadSweepCron() string    { return c.MissedLeadSweepCron }
func (c *Config) GetSubscriptionExpiryCron() string { return c.SubscriptionExpiryCron }

func (c *Config) GetMissedLeadTimeout() time.Duration     { return c.MissedLeadTimeout }
func (c *Config) GetDispatchConcurrency() int             { return c.DispatchConcurrency }
func (c *Config) GetMatchRequireAvailable() bool          { return c.MatchRequireAvailable }
func (c *Config) GetPollInterval() time.Duration          { return c.PollInterval }
func (c *Config) GetPollIntervalConnected() time.Duration { return c.PollIntervalConnected }
func (c *Config) GetPhoneDefaultRegion() string           { return c.PhoneDefaultRegion }
func (c *Config) GetPlanCatalogPath() string              { return c.PlanCatalogPath }

func (c *Config) GetPaymentKeyID() string     { return c.PaymentKeyID }
func (c *Config) GetPaymentKeySecret() string { return c.PaymentKeySecret }
func (c *Config) GetPaymentCurrency() string  { return c.PaymentCurrency }

func (c *Config) GetEmailEnabled() bool   { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }
func (c *Config) GetSMTPFrom() string     { return c.SMTPFrom }

func (c *Config) GetWSAllowedOrigins() []string { return c.WSAllowedOrigins }
func (c *Config) GetWSSendBuffer() int          { return c.WSSendBuffer }

// Load reads configuration from the environment, loading .env first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:5173"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "false"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:5173"),

		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       mustInt(getEnv("ASYNQ_CONCURRENCY", "5"), 5),
		MissedLeadSweepCron:    getEnv("MISSED_LEAD_SWEEP_CRON", "@every 5m"),
		SubscriptionExpiryCron: getEnv("SUBSCRIPTION_EXPIRY_CRON", "@every 15m"),

		MissedLeadTimeout:     mustDuration(getEnv("MISSED_LEAD_TIMEOUT", "30m"), 30*time.Minute),
		DispatchConcurrency:   mustInt(getEnv("DISPATCH_CONCURRENCY", "8"), 8),
		MatchRequireAvailable: strings.EqualFold(getEnv("MATCH_REQUIRE_AVAILABLE", "false"), "true"),
		PollInterval:          mustDuration(getEnv("POLL_INTERVAL", "10s"), 10*time.Second),
		PollIntervalConnected: mustDuration(getEnv("POLL_INTERVAL_CONNECTED", "30s"), 30*time.Second),
		PhoneDefaultRegion:    strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "IN")),
		PlanCatalogPath:       getEnv("PLAN_CATALOG_PATH", ""),

		PaymentKeyID:     getEnv("PAYMENT_KEY_ID", ""),
		PaymentKeySecret: getEnv("PAYMENT_KEY_SECRET", ""),
		PaymentCurrency:  strings.ToUpper(getEnv("PAYMENT_CURRENCY", "INR")),

		EmailEnabled: emailEnabled && smtpHost != "",
		SMTPHost:     smtpHost,
		SMTPPort:     mustInt(getEnv("SMTP_PORT", "587"), 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),

		WSAllowedOrigins: splitCSV(getEnv("WS_ALLOWED_ORIGINS", "")),
		WSSendBuffer:     mustInt(getEnv("WS_SEND_BUFFER", "32"), 32),
	}

	if err := cfg.validate(emailEnabled); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate(emailRequested bool) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.JWTAccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if emailRequested && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when EMAIL_ENABLED is true")
	}
	if c.EmailEnabled && c.SMTPFrom == "" {
		return fmt.Errorf("SMTP_FROM is required when email is enabled")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.MissedLeadTimeout <= 0 {
		return fmt.Errorf("MISSED_LEAD_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func mustInt(value string, fallback int) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || result <= 0 {
		return fallback
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
