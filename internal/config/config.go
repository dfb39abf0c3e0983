package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	ServerAddr string

	// Database configuration
	DatabaseURL string

	// CORS configuration
	AllowedOrigins []string

	// Rate limiting for generation-heavy endpoints
	RateLimitEnabled bool
	RateLimitMax     int
	RateLimitWindow  time.Duration

	// Audit log retention
	AuditRetentionDays int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	serverAddr := os.Getenv("SERVER_ADDR")
	if serverAddr == "" {
		serverAddr = ":8080"
	}

	// Allowed origins for CORS, comma-separated
	allowedOrigins := []string{"https://app.arqcashflow.com"}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		allowedOrigins = strings.Split(origins, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	}

	// Rate limiting - enabled by default
	rateLimitEnabled := os.Getenv("RATE_LIMIT_ENABLED") != "false"

	rateLimitMax := 60
	if maxStr := os.Getenv("RATE_LIMIT_MAX"); maxStr != "" {
		if parsed, err := strconv.Atoi(maxStr); err == nil && parsed > 0 {
			rateLimitMax = parsed
		}
	}

	rateLimitWindow := time.Minute
	if windowStr := os.Getenv("RATE_LIMIT_WINDOW"); windowStr != "" {
		if parsed, err := time.ParseDuration(windowStr); err == nil && parsed > 0 {
			rateLimitWindow = parsed
		}
	}

	auditRetentionDays := 90
	if daysStr := os.Getenv("AUDIT_RETENTION_DAYS"); daysStr != "" {
		if parsed, err := strconv.Atoi(daysStr); err == nil && parsed > 0 {
			auditRetentionDays = parsed
		}
	}

	return &Config{
		ServerAddr:         serverAddr,
		DatabaseURL:        databaseURL,
		AllowedOrigins:     allowedOrigins,
		RateLimitEnabled:   rateLimitEnabled,
		RateLimitMax:       rateLimitMax,
		RateLimitWindow:    rateLimitWindow,
		AuditRetentionDays: auditRetentionDays,
	}, nil
}
