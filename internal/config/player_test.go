// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultPlayerConfig(t *testing.T) {
	cfg := defaultPlayerConfig()

	if cfg.Timers.Reevaluate != 10*time.Second {
		t.Errorf("Timers.Reevaluate = %v, want 10s", cfg.Timers.Reevaluate)
	}
	if cfg.Timers.Refresh != 30*time.Second {
		t.Errorf("Timers.Refresh = %v, want 30s", cfg.Timers.Refresh)
	}
	if cfg.Timers.HeartbeatInitialDelay != 5*time.Second {
		t.Errorf("Timers.HeartbeatInitialDelay = %v, want 5s", cfg.Timers.HeartbeatInitialDelay)
	}
	if cfg.Timers.Heartbeat != 30*time.Second {
		t.Errorf("Timers.Heartbeat = %v, want 30s", cfg.Timers.Heartbeat)
	}
	if cfg.Client.Timeout != 5*time.Second {
		t.Errorf("Client.Timeout = %v, want 5s", cfg.Client.Timeout)
	}
	if got := cfg.Storage.MediaDir(); got != filepath.Join("/var/lib/marquee", "media") {
		t.Errorf("Storage.MediaDir() = %q", got)
	}
	if got := cfg.Storage.StateDir(); got != filepath.Join("/var/lib/marquee", "state") {
		t.Errorf("Storage.StateDir() = %q", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default player config should validate: %v", err)
	}
}

func TestLoadPlayer(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	content := `
device:
  name: "Lobby"
  location: "Floor 1"
registration:
  api_url: "http://registry.local:3857"
timers:
  refresh: 45s
`
	if err := os.WriteFile(filepath.Join(tmpDir, "player.yaml"), []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	t.Setenv(PlayerConfigPathEnvVar, "")
	t.Setenv("DEVICE_ID", "lobby-1")
	t.Setenv("DATA_DIR", filepath.Join(tmpDir, "data"))

	cfg, err := LoadPlayer()
	if err != nil {
		t.Fatalf("LoadPlayer() error = %v", err)
	}
	if cfg.Device.ID != "lobby-1" {
		t.Errorf("Device.ID = %q, want lobby-1", cfg.Device.ID)
	}
	if cfg.Device.Name != "Lobby" {
		t.Errorf("Device.Name = %q, want Lobby", cfg.Device.Name)
	}
	if cfg.Registration.APIURL != "http://registry.local:3857" {
		t.Errorf("Registration.APIURL = %q", cfg.Registration.APIURL)
	}
	if cfg.Timers.Refresh != 45*time.Second {
		t.Errorf("Timers.Refresh = %v, want 45s", cfg.Timers.Refresh)
	}
	if cfg.Timers.Reevaluate != 10*time.Second {
		t.Errorf("Timers.Reevaluate = %v, want 10s (default)", cfg.Timers.Reevaluate)
	}
	if cfg.Storage.DataDir != filepath.Join(tmpDir, "data") {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
}

func TestPlayerConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PlayerConfig)
		wantErr string
	}{
		{"relative api url", func(c *PlayerConfig) { c.Registration.APIURL = "registry" }, "api_url"},
		{"zero refresh", func(c *PlayerConfig) { c.Timers.Refresh = 0 }, "timers.refresh"},
		{"negative initial delay", func(c *PlayerConfig) { c.Timers.HeartbeatInitialDelay = -time.Second }, "heartbeat_initial_delay"},
		{"empty data dir", func(c *PlayerConfig) { c.Storage.DataDir = " " }, "data_dir"},
		{"status without listen", func(c *PlayerConfig) { c.Status.Listen = "" }, "status.listen"},
		{"bad log format", func(c *PlayerConfig) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultPlayerConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
