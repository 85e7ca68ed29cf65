// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package config loads registry server and player agent configuration with
// Koanf v2.
//
// Sources are layered, highest priority last:
//
//  1. Built-in defaults (structs provider)
//  2. Optional YAML file (CONFIG_PATH / PLAYER_CONFIG_PATH, then default paths)
//  3. Environment variables, mapped explicitly to config keys
//
// Unknown environment variables are ignored so the process environment
// cannot leak into the configuration.
//
// Server environment variables:
//
//	HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, PUBLIC_URL
//	DUCKDB_PATH, DUCKDB_MAX_MEMORY, DUCKDB_THREADS
//	AUTH_MODE, JWT_SECRET, REGISTRATION_TOKEN_TTL, JTI_STORE_PATH,
//	CORS_ORIGINS, RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT
//	SWEEP_INTERVAL, STALE_AFTER, REGISTRY_TIMEZONE, ACTIVITY_LIMIT
//	UPLOAD_DIR, MAX_UPLOAD_BYTES
//	NATS_ENABLED, NATS_URL, NATS_SUBJECT
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
//
// Player environment variables:
//
//	DEVICE_ID, DEVICE_NAME, DEVICE_LOCATION
//	REGISTRATION_API_URL, REGISTRATION_TOKEN
//	CLIENT_TIMEOUT, DATA_DIR
//	REEVALUATE_INTERVAL, REFRESH_INTERVAL, HEARTBEAT_INITIAL_DELAY,
//	HEARTBEAT_INTERVAL, RECONNECT_WAIT
//	STATUS_ENABLED, STATUS_LISTEN
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
package config
