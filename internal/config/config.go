// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the registry server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Security SecurityConfig `koanf:"security"`
	Registry RegistryConfig `koanf:"registry"`
	Media    MediaConfig    `koanf:"media"`
	NATS     NATSConfig     `koanf:"nats"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// PublicURL is the base API location handed to devices in registration
	// credentials and used to build media URLs.
	PublicURL string `koanf:"public_url"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`
}

// SecurityConfig holds operator auth, registration credential and HTTP guard settings.
type SecurityConfig struct {
	// AuthMode is "jwt" (operator routes require a bearer JWT) or "none".
	AuthMode  string `koanf:"auth_mode"`
	JWTSecret string `koanf:"jwt_secret"`

	// RegistrationTokenTTL bounds how long an issued registration token is redeemable.
	RegistrationTokenTTL time.Duration `koanf:"registration_token_ttl"`

	// JTIStorePath is the badger directory for redeemed token ids. Empty keeps
	// them in memory.
	JTIStorePath string `koanf:"jti_store_path"`

	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// RegistryConfig holds liveness and overview settings.
type RegistryConfig struct {
	SweepInterval time.Duration `koanf:"sweep_interval"`
	StaleAfter    time.Duration `koanf:"stale_after"`

	// Timezone is the IANA zone used to resolve active playlists for the
	// fleet overview. "Local" uses the server's zone.
	Timezone      string `koanf:"timezone"`
	ActivityLimit int    `koanf:"activity_limit"`
}

// MediaConfig holds upload storage settings.
type MediaConfig struct {
	UploadDir      string `koanf:"upload_dir"`
	MaxUploadBytes int64  `koanf:"max_upload_bytes"`
}

// NATSConfig enables forwarding fleet notifications to NATS JetStream.
// Requires a build with -tags nats.
type NATSConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"`
	Subject       string        `koanf:"subject"`
	MaxReconnects int           `koanf:"max_reconnects"`
	ReconnectWait time.Duration `koanf:"reconnect_wait"`
}

// LoggingConfig holds logger settings shared by both binaries.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Location resolves Registry.Timezone.
func (c *RegistryConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// Addr returns host:port.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	var errs []error
	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateDatabase()...)
	errs = append(errs, c.validateSecurity()...)
	errs = append(errs, c.validateRegistry()...)
	errs = append(errs, c.validateNATS()...)
	errs = append(errs, validateLogging(&c.Logging)...)
	return errors.Join(errs...)
}

func (c *Config) validateServer() []error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.Timeout <= 0 {
		errs = append(errs, errors.New("server.timeout must be positive"))
	}
	if c.Server.PublicURL != "" {
		if u, err := url.Parse(c.Server.PublicURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.public_url %q is not an absolute URL", c.Server.PublicURL))
		}
	}
	return errs
}

func (c *Config) validateDatabase() []error {
	if c.Database.Path == "" {
		return []error{errors.New("database.path is required")}
	}
	return nil
}

func (c *Config) validateSecurity() []error {
	var errs []error
	switch c.Security.AuthMode {
	case "jwt", "none":
	default:
		errs = append(errs, fmt.Errorf("security.auth_mode must be jwt or none, got %q", c.Security.AuthMode))
	}
	// Registration tokens are always signed, whatever the operator auth mode.
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 characters"))
	}
	if c.Security.RegistrationTokenTTL <= 0 {
		errs = append(errs, errors.New("security.registration_token_ttl must be positive"))
	}
	if !c.Security.RateLimitDisabled && (c.Security.RateLimitReqs <= 0 || c.Security.RateLimitWindow <= 0) {
		errs = append(errs, errors.New("security.rate_limit_reqs and rate_limit_window must be positive"))
	}
	return errs
}

func (c *Config) validateRegistry() []error {
	var errs []error
	if c.Registry.SweepInterval <= 0 {
		errs = append(errs, errors.New("registry.sweep_interval must be positive"))
	}
	if c.Registry.StaleAfter <= 0 {
		errs = append(errs, errors.New("registry.stale_after must be positive"))
	}
	if _, err := c.Registry.Location(); err != nil {
		errs = append(errs, fmt.Errorf("registry.timezone: %w", err))
	}
	if c.Registry.ActivityLimit <= 0 {
		errs = append(errs, errors.New("registry.activity_limit must be positive"))
	}
	return errs
}

func (c *Config) validateNATS() []error {
	if c.NATS.Enabled && (c.NATS.URL == "" || c.NATS.Subject == "") {
		return []error{errors.New("nats.url and nats.subject are required when nats is enabled")}
	}
	return nil
}

func validateLogging(l *LoggingConfig) []error {
	switch l.Format {
	case "json", "console":
		return nil
	default:
		return []error{fmt.Errorf("logging.format must be json or console, got %q", l.Format)}
	}
}
