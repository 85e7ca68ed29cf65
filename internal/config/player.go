// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/v2"
)

// DefaultPlayerConfigPaths lists the paths searched for the player config file.
var DefaultPlayerConfigPaths = []string{
	"player.yaml",
	"player.yml",
	"/etc/marquee/player.yaml",
	"/etc/marquee/player.yml",
}

// PlayerConfigPathEnvVar overrides the player config file path.
const PlayerConfigPathEnvVar = "PLAYER_CONFIG_PATH"

// PlayerConfig is the device agent configuration.
type PlayerConfig struct {
	Device       DeviceConfig       `koanf:"device"`
	Registration RegistrationConfig `koanf:"registration"`
	Client       ClientConfig       `koanf:"client"`
	Storage      StorageConfig      `koanf:"storage"`
	Timers       TimersConfig       `koanf:"timers"`
	Status       StatusConfig       `koanf:"status"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// DeviceConfig describes this device. An empty ID falls back to the
// persisted identity, then to a generated one.
type DeviceConfig struct {
	ID       string `koanf:"id"`
	Name     string `koanf:"name"`
	Location string `koanf:"location"`
}

// RegistrationConfig carries a registration credential for first boot.
// Both fields are optional once the device has registered.
type RegistrationConfig struct {
	APIURL string `koanf:"api_url"`
	Token  string `koanf:"token"`
}

// ClientConfig bounds calls to the registry.
type ClientConfig struct {
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig locates on-device state.
type StorageConfig struct {
	DataDir string `koanf:"data_dir"`
}

// StateDir is the badger directory for snapshot, identity and cache index.
func (s StorageConfig) StateDir() string { return filepath.Join(s.DataDir, "state") }

// MediaDir is where cached media files live.
func (s StorageConfig) MediaDir() string { return filepath.Join(s.DataDir, "media") }

// TimersConfig holds the agent's periodic intervals.
type TimersConfig struct {
	Reevaluate            time.Duration `koanf:"reevaluate"`
	Refresh               time.Duration `koanf:"refresh"`
	HeartbeatInitialDelay time.Duration `koanf:"heartbeat_initial_delay"`
	Heartbeat             time.Duration `koanf:"heartbeat"`
	ReconnectWait         time.Duration `koanf:"reconnect_wait"`
}

// StatusConfig controls the local status endpoint.
type StatusConfig struct {
	Enabled bool   `koanf:"enabled"`
	Listen  string `koanf:"listen"`
}

func defaultPlayerConfig() *PlayerConfig {
	return &PlayerConfig{
		Client: ClientConfig{
			Timeout: 5 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: "/var/lib/marquee",
		},
		Timers: TimersConfig{
			Reevaluate:            10 * time.Second,
			Refresh:               30 * time.Second,
			HeartbeatInitialDelay: 5 * time.Second,
			Heartbeat:             30 * time.Second,
			ReconnectWait:         5 * time.Second,
		},
		Status: StatusConfig{
			Enabled: true,
			Listen:  "127.0.0.1:8765",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadPlayer reads the player configuration the same way Load does for the server.
func LoadPlayer() (*PlayerConfig, error) {
	k := koanf.New(".")
	if err := loadLayers(k, defaultPlayerConfig(), findConfigFile(PlayerConfigPathEnvVar, DefaultPlayerConfigPaths), playerEnvTransformFunc); err != nil {
		return nil, err
	}

	cfg := &PlayerConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Validate checks the loaded player configuration.
func (c *PlayerConfig) Validate() error {
	var errs []error
	if c.Registration.APIURL != "" {
		if u, err := url.Parse(c.Registration.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("registration.api_url %q is not an absolute URL", c.Registration.APIURL))
		}
	}
	if c.Client.Timeout <= 0 {
		errs = append(errs, errors.New("client.timeout must be positive"))
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	for name, d := range map[string]time.Duration{
		"timers.reevaluate":     c.Timers.Reevaluate,
		"timers.refresh":        c.Timers.Refresh,
		"timers.heartbeat":      c.Timers.Heartbeat,
		"timers.reconnect_wait": c.Timers.ReconnectWait,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Timers.HeartbeatInitialDelay < 0 {
		errs = append(errs, errors.New("timers.heartbeat_initial_delay must not be negative"))
	}
	if c.Status.Enabled && c.Status.Listen == "" {
		errs = append(errs, errors.New("status.listen is required when status is enabled"))
	}
	errs = append(errs, validateLogging(&c.Logging)...)
	return errors.Join(errs...)
}

var playerEnvMappings = map[string]string{
	"device_id":       "device.id",
	"device_name":     "device.name",
	"device_location": "device.location",

	"registration_api_url": "registration.api_url",
	"registration_token":   "registration.token",

	"client_timeout": "client.timeout",
	"data_dir":       "storage.data_dir",

	"reevaluate_interval":     "timers.reevaluate",
	"refresh_interval":        "timers.refresh",
	"heartbeat_initial_delay": "timers.heartbeat_initial_delay",
	"heartbeat_interval":      "timers.heartbeat",
	"reconnect_wait":          "timers.reconnect_wait",

	"status_enabled": "status.enabled",
	"status_listen":  "status.listen",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

func playerEnvTransformFunc(key string) string {
	return playerEnvMappings[strings.ToLower(key)]
}
