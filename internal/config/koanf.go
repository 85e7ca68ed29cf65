// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for the server config file.
// The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/marquee/config.yaml",
	"/etc/marquee/config.yml",
}

// ConfigPathEnvVar overrides the server config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "0.0.0.0",
			Port:      3857,
			Timeout:   30 * time.Second,
			PublicURL: "http://localhost:3857",
		},
		Database: DatabaseConfig{
			Path:      "/data/marquee.duckdb",
			MaxMemory: "1GB",
			Threads:   runtime.NumCPU(),
		},
		Security: SecurityConfig{
			AuthMode:             "jwt",
			RegistrationTokenTTL: time.Hour,
			CORSOrigins:          []string{"*"},
			RateLimitReqs:        100,
			RateLimitWindow:      time.Minute,
		},
		Registry: RegistryConfig{
			SweepInterval: 30 * time.Second,
			StaleAfter:    60 * time.Second,
			Timezone:      "Local",
			ActivityLimit: 50,
		},
		Media: MediaConfig{
			UploadDir:      "/data/uploads",
			MaxUploadBytes: 512 << 20,
		},
		NATS: NATSConfig{
			URL:           "nats://127.0.0.1:4222",
			Subject:       "marquee.fleet",
			MaxReconnects: -1,
			ReconnectWait: 2 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the server configuration from defaults, an optional YAML file
// and the environment, then validates it.
func Load() (*Config, error) {
	k := koanf.New(".")
	if err := loadLayers(k, defaultConfig(), findConfigFile(ConfigPathEnvVar, DefaultConfigPaths), envTransformFunc); err != nil {
		return nil, err
	}
	if err := processSliceFields(k, sliceConfigPaths); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// loadLayers applies defaults, then the config file when present, then the
// environment through transform.
func loadLayers(k *koanf.Koanf, defaults interface{}, configPath string, transform func(string) string) error {
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return fmt.Errorf("failed to load defaults: %w", err)
	}
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}
	if err := k.Load(env.Provider("", ".", transform), nil); err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

// findConfigFile returns the path named by envVar if it exists, otherwise
// the first existing path in defaults, otherwise "".
func findConfigFile(envVar string, defaults []string) string {
	if envPath := os.Getenv(envVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range defaults {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths lists server keys parsed from comma-separated strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields converts comma-separated string values to slices.
// Env vars always arrive as strings; YAML lists are left alone.
func processSliceFields(k *koanf.Koanf, paths []string) error {
	for _, path := range paths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

var serverEnvMappings = map[string]string{
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"public_url":   "server.public_url",

	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",

	"auth_mode":              "security.auth_mode",
	"jwt_secret":             "security.jwt_secret",
	"registration_token_ttl": "security.registration_token_ttl",
	"jti_store_path":         "security.jti_store_path",
	"cors_origins":           "security.cors_origins",
	"rate_limit_requests":    "security.rate_limit_reqs",
	"rate_limit_window":      "security.rate_limit_window",
	"disable_rate_limit":     "security.rate_limit_disabled",

	"sweep_interval":    "registry.sweep_interval",
	"stale_after":       "registry.stale_after",
	"registry_timezone": "registry.timezone",
	"activity_limit":    "registry.activity_limit",

	"upload_dir":       "media.upload_dir",
	"max_upload_bytes": "media.max_upload_bytes",

	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_subject":        "nats.subject",
	"nats_max_reconnects": "nats.max_reconnects",
	"nats_reconnect_wait": "nats.reconnect_wait",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps server environment variable names to koanf paths.
// Unmapped keys return "" and are skipped.
//
// Examples:
//   - HTTP_PORT -> server.port
//   - DUCKDB_PATH -> database.path
//   - STALE_AFTER -> registry.stale_after
func envTransformFunc(key string) string {
	return serverEnvMappings[strings.ToLower(key)]
}
