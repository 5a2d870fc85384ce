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

// EmailConfig provides settings for the SMTP email channel.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// VoiceConfig provides settings for the voice-AI calling provider.
type VoiceConfig interface {
	GetVoiceProviderURL() string
	GetVoiceProviderAPIKey() string
	GetVoiceProviderTimeout() time.Duration
	GetVoiceResultWebhookBaseURL() string
	IsVoiceEnabled() bool
}

// SMSConfig provides settings for the SMS messaging provider.
type SMSConfig interface {
	GetSMSProviderURL() string
	GetSMSProviderAPIKey() string
	GetSMSProviderTimeout() time.Duration
	GetSMSFromNumber() string
	IsSMSEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler and the
// due-task poller.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetTaskPollInterval() time.Duration
	GetTaskPollBatchSize() int
}

// WebhookConfig provides settings for inbound provider webhooks.
type WebhookConfig interface {
	GetWebhookAPIKey() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	VoiceProviderURL          string
	VoiceProviderAPIKey       string
	VoiceProviderTimeout      time.Duration
	VoiceResultWebhookBaseURL string

	SMSProviderURL     string
	SMSProviderAPIKey  string
	SMSProviderTimeout time.Duration
	SMSFromNumber      string

	RedisURL          string
	RedisTLSInsecure  bool
	AsynqQueueName    string
	AsynqConcurrency  int
	TaskPollInterval  time.Duration
	TaskPollBatchSize int

	WebhookAPIKey string
}

// Load reads configuration from the environment, optionally seeded from a
// .env file in development.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		JWTAccessSecret: os.Getenv("JWT_ACCESS_SECRET"),

		CORSAllowAll:   getBool("CORS_ALLOW_ALL", false),
		CORSOrigins:    getList("CORS_ORIGINS"),
		CORSAllowCreds: getBool("CORS_ALLOW_CREDENTIALS", true),

		EmailEnabled:     getBool("EMAIL_ENABLED", false),
		SMTPHost:         os.Getenv("SMTP_HOST"),
		SMTPPort:         getInt("SMTP_PORT", 587),
		SMTPUsername:     os.Getenv("SMTP_USERNAME"),
		SMTPPassword:     os.Getenv("SMTP_PASSWORD"),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Leaseline"),
		EmailFromAddress: os.Getenv("EMAIL_FROM_ADDRESS"),

		VoiceProviderURL:          os.Getenv("VOICE_PROVIDER_URL"),
		VoiceProviderAPIKey:       os.Getenv("VOICE_PROVIDER_API_KEY"),
		VoiceProviderTimeout:      getDuration("VOICE_PROVIDER_TIMEOUT", 15*time.Second),
		VoiceResultWebhookBaseURL: os.Getenv("VOICE_RESULT_WEBHOOK_BASE_URL"),

		SMSProviderURL:     os.Getenv("SMS_PROVIDER_URL"),
		SMSProviderAPIKey:  os.Getenv("SMS_PROVIDER_API_KEY"),
		SMSProviderTimeout: getDuration("SMS_PROVIDER_TIMEOUT", 10*time.Second),
		SMSFromNumber:      os.Getenv("SMS_FROM_NUMBER"),

		RedisURL:          os.Getenv("REDIS_URL"),
		RedisTLSInsecure:  getBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:    getEnv("ASYNQ_QUEUE_NAME", "default"),
		AsynqConcurrency:  getInt("ASYNQ_CONCURRENCY", 10),
		TaskPollInterval:  getDuration("TASK_POLL_INTERVAL", 5*time.Second),
		TaskPollBatchSize: getInt("TASK_POLL_BATCH_SIZE", 50),

		WebhookAPIKey: os.Getenv("WEBHOOK_API_KEY"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" && !strings.EqualFold(cfg.Env, "development") {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required outside development")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

func (c *Config) GetVoiceProviderURL() string            { return c.VoiceProviderURL }
func (c *Config) GetVoiceProviderAPIKey() string         { return c.VoiceProviderAPIKey }
func (c *Config) GetVoiceProviderTimeout() time.Duration { return c.VoiceProviderTimeout }
func (c *Config) GetVoiceResultWebhookBaseURL() string   { return c.VoiceResultWebhookBaseURL }
func (c *Config) IsVoiceEnabled() bool                   { return c.VoiceProviderURL != "" }

func (c *Config) GetSMSProviderURL() string            { return c.SMSProviderURL }
func (c *Config) GetSMSProviderAPIKey() string         { return c.SMSProviderAPIKey }
func (c *Config) GetSMSProviderTimeout() time.Duration { return c.SMSProviderTimeout }
func (c *Config) GetSMSFromNumber() string             { return c.SMSFromNumber }
func (c *Config) IsSMSEnabled() bool                   { return c.SMSProviderURL != "" }

func (c *Config) GetRedisURL() string                { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool          { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string          { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int           { return c.AsynqConcurrency }
func (c *Config) GetTaskPollInterval() time.Duration { return c.TaskPollInterval }
func (c *Config) GetTaskPollBatchSize() int          { return c.TaskPollBatchSize }

func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// =============================================================================
// Env helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
