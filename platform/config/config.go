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
// Module-Specific Config Interfaces
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
	GetRateLimitPerMinute() int
}

// OracleConfig provides settings for the text-generation oracle used by the
// routing workflow. When no API key is set the workflow runs on heuristics.
type OracleConfig interface {
	GetOpenAIAPIKey() string
	GetOracleBaseURL() string
	GetOracleModel() string
	GetOracleTimeout() time.Duration
	IsOracleEnabled() bool
}

// SchedulerConfig provides settings for the asynq background worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// AssignmentConfig provides settings for batch lead assignment.
type AssignmentConfig interface {
	GetRedisURL() string
	GetAssignmentLockTTL() time.Duration
	// GetAutoAssignInterval is how often unassigned leads are swept. Zero disables the sweep.
	GetAutoAssignInterval() time.Duration
	GetAutoAssignMethod() string
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketLeadImports() string
	IsMinIOEnabled() bool
}

// SMTPConfig provides settings for outgoing assignment mails.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	IsSMTPEnabled() bool
}

// ObservabilityConfig provides tracing settings.
type ObservabilityConfig interface {
	GetServiceName() string
	GetOTelEnabled() bool
	GetOTelEndpoint() string
	GetOTelSampleRatio() float64
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                   string
	ServiceName           string
	HTTPAddr              string
	DatabaseURL           string
	JWTAccessSecret       string
	CORSAllowAll          bool
	CORSOrigins           []string
	CORSAllowCreds        bool
	RateLimitPerMinute    int
	OpenAIAPIKey          string
	OracleBaseURL         string
	OracleModel           string
	OracleTimeout         time.Duration
	RedisURL              string
	RedisTLSInsecure      bool
	AsynqQueueName        string
	AsynqConcurrency      int
	AssignmentLockTTL     time.Duration
	AutoAssignInterval    time.Duration
	AutoAssignMethod      string
	MinIOEndpoint         string
	MinIOAccessKey        string
	MinIOSecretKey        string
	MinIOUseSSL           bool
	MinIOMaxFileSize      int64
	MinioBucketLeadImport string
	SMTPHost              string
	SMTPPort              int
	SMTPUsername          string
	SMTPPassword          string
	EmailFromName         string
	EmailFromAddress      string
	OTelEnabled           bool
	OTelEndpoint          string
	OTelSampleRatio       float64
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string        { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool      { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string   { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool    { return c.CORSAllowCreds }
func (c *Config) GetRateLimitPerMinute() int { return c.RateLimitPerMinute }

// OracleConfig implementation
func (c *Config) GetOpenAIAPIKey() string         { return c.OpenAIAPIKey }
func (c *Config) GetOracleBaseURL() string        { return c.OracleBaseURL }
func (c *Config) GetOracleModel() string          { return c.OracleModel }
func (c *Config) GetOracleTimeout() time.Duration { return c.OracleTimeout }
func (c *Config) IsOracleEnabled() bool           { return c.OpenAIAPIKey != "" }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// AssignmentConfig implementation
func (c *Config) GetAssignmentLockTTL() time.Duration  { return c.AssignmentLockTTL }
func (c *Config) GetAutoAssignInterval() time.Duration { return c.AutoAssignInterval }
func (c *Config) GetAutoAssignMethod() string          { return c.AutoAssignMethod }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64        { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketLeadImports() string { return c.MinioBucketLeadImport }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) IsSMTPEnabled() bool         { return c.SMTPHost != "" && c.EmailFromAddress != "" }

// ObservabilityConfig implementation
func (c *Config) GetServiceName() string      { return c.ServiceName }
func (c *Config) GetOTelEnabled() bool        { return c.OTelEnabled }
func (c *Config) GetOTelEndpoint() string     { return c.OTelEndpoint }
func (c *Config) GetOTelSampleRatio() float64 { return c.OTelSampleRatio }

// Load reads configuration from environment variables, after loading a .env
// file when one is present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                   getEnv("APP_ENV", "development"),
		ServiceName:           getEnv("SERVICE_NAME", "admissions-crm"),
		HTTPAddr:              getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTAccessSecret:       getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:          corsAllowAll,
		CORSOrigins:           corsOrigins,
		CORSAllowCreds:        strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitPerMinute:    mustInt(getEnv("RATE_LIMIT_PER_MINUTE", "120")),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OracleBaseURL:         getEnv("ORACLE_BASE_URL", "https://api.openai.com/v1"),
		OracleModel:           getEnv("ORACLE_MODEL", "gpt-4o-mini"),
		OracleTimeout:         mustDuration(getEnv("ORACLE_TIMEOUT", "20s")),
		RedisURL:              getEnv("REDIS_URL", ""),
		RedisTLSInsecure:      strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:        getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:      mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		AssignmentLockTTL:     mustDuration(getEnv("ASSIGNMENT_LOCK_TTL", "5m")),
		AutoAssignInterval:    mustDuration(getEnv("AUTO_ASSIGN_INTERVAL", "0s")),
		AutoAssignMethod:      getEnv("AUTO_ASSIGN_METHOD", "workload_balanced"),
		MinIOEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:           strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:      mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "10485760")),
		MinioBucketLeadImport: getEnv("MINIO_BUCKET_LEAD_IMPORTS", "lead-imports"),
		SMTPHost:              getEnv("SMTP_HOST", ""),
		SMTPPort:              mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:          getEnv("SMTP_USERNAME", ""),
		SMTPPassword:          getEnv("SMTP_PASSWORD", ""),
		EmailFromName:         getEnv("EMAIL_FROM_NAME", "Admissions"),
		EmailFromAddress:      getEnv("EMAIL_FROM_ADDRESS", ""),
		OTelEnabled:           isTruthy(getEnv("OTEL_ENABLED", "")),
		OTelEndpoint:          getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio:       clampRatio(mustFloat(getEnv("OTEL_SAMPLER_RATIO", "0.1"))),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.OracleTimeout <= 0 {
		return nil, fmt.Errorf("ORACLE_TIMEOUT must be a positive duration")
	}

	return cfg, nil
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
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func clampRatio(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func isTruthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
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
