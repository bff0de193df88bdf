// Copyright (c) 2026 Crudkit. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components via constructors.
  - Fail Fast: Invalid policy literals abort startup with ERR_CONFIG,
    they are never discovered per-request.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/crudkit/internal/platform/apperr"
)

// Authorization policy literals accepted by AUTHZ_DEFAULT_POLICY.
const (
	PolicyAllow = "allow"
	PolicyDeny  = "deny"
)

// Behaviors accepted by AUTHZ_WHEN_NO_USER when a request carries no principal.
const (
	WhenNoUserReturnDefault = "return-default-policy"
	WhenNoUserAllow         = "allow-access"
	WhenNoUserDeny          = "deny-access"
	WhenNoUserThrow         = "throw-error"
)

// Storage backends accepted by USERS_BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Crudkit API server.
type Config struct {

	// Server settings
	ListenHost  string `env:"API_LISTEN_HOST" envDefault:"localhost"`
	ListenPort  string `env:"API_LISTEN_PORT" envDefault:"8085"`
	Environment string `env:"ENVIRONMENT"     envDefault:"development"`
	Debug       bool   `env:"DEBUG"           envDefault:"false"`

	// Authentication
	JWTSecret        string `env:"JWT_SECRET,required"`
	JWTExpiresAfter  int    `env:"JWT_EXPIRES_AFTER"    envDefault:"3600"`
	SaltRounds       int    `env:"PASSWORD_SALT_ROUNDS" envDefault:"10"`
	RefreshToken     bool   `env:"AUTH_REFRESH_TOKEN"   envDefault:"true"`
	UsernameField    string `env:"AUTHN_USERNAME_FIELD" envDefault:"username"`
	SeedAdminPass    string `env:"SEED_ADMIN_PASSWORD"`

	// Authorization
	RolesUserProperty string `env:"AUTHZ_ROLES_PROPERTY"`
	DefaultPolicy     string `env:"AUTHZ_DEFAULT_POLICY" envDefault:"allow"`
	WhenNoUser        string `env:"AUTHZ_WHEN_NO_USER"   envDefault:"return-default-policy"`

	// Storage backend for the users resource
	UsersBackend string `env:"USERS_BACKEND" envDefault:"memory"`

	// Relational Database (PostgreSQL), required when USERS_BACKEND=postgres
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Store (Redis), required when USERS_BACKEND=redis
	RedisURL string `env:"REDIS_URL"`

	// Cross-Origin Resource Sharing
	CORSEnabled bool   `env:"CORS_ENABLED" envDefault:"true"`
	CORSOrigin  string `env:"CORS_ORIGIN"  envDefault:"*"`
	CORSMethods string `env:"CORS_METHODS" envDefault:"GET, POST, PUT, PATCH, DELETE, OPTIONS"`
	CORSHeaders string `env:"CORS_HEADERS" envDefault:"Accept, Content-Type, Content-Length, Authorization, X-Request-ID"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates
// every enumerated option.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks enumerated options and backend prerequisites.
//
// Every violation is an [apperr.Config] error so the process aborts at
// startup instead of making a per-request security decision later.
func (c *Config) Validate() error {
	if c.DefaultPolicy != PolicyAllow && c.DefaultPolicy != PolicyDeny {
		return apperr.Config(fmt.Sprintf(
			"`defaultPolicy` must be `%s` or `%s`, but got %q",
			PolicyAllow, PolicyDeny, c.DefaultPolicy,
		))
	}

	switch c.WhenNoUser {
	case WhenNoUserReturnDefault, WhenNoUserAllow, WhenNoUserDeny, WhenNoUserThrow:
	default:
		return apperr.Config(fmt.Sprintf(
			"`whenNoUser` must be `%s`, `%s`, `%s` or `%s`, but got %q",
			WhenNoUserReturnDefault, WhenNoUserAllow, WhenNoUserDeny, WhenNoUserThrow,
			c.WhenNoUser,
		))
	}

	switch c.UsersBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return apperr.Config("DATABASE_URL is required when USERS_BACKEND=postgres")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return apperr.Config("REDIS_URL is required when USERS_BACKEND=redis")
		}
	default:
		return apperr.Config(fmt.Sprintf(
			"USERS_BACKEND must be `%s`, `%s` or `%s`, but got %q",
			BackendMemory, BackendPostgres, BackendRedis, c.UsersBackend,
		))
	}

	if c.JWTExpiresAfter <= 0 {
		return apperr.Config("JWT_EXPIRES_AFTER must be a positive number of seconds")
	}

	if c.SaltRounds < 4 || c.SaltRounds > 31 {
		return apperr.Config("PASSWORD_SALT_ROUNDS must be within the bcrypt cost range [4, 31]")
	}

	return nil
}

// Addr returns the host:port pair the HTTP server binds to.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.ListenPort
}

// CORSOrigins returns the configured origins as a trimmed slice.
func (c *Config) CORSOrigins() []string {
	parts := strings.Split(c.CORSOrigin, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
