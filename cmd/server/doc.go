// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Command server runs the Marquee device registry.

It owns the DuckDB catalogue of devices, playlists, media and playback
logs, serves the operator REST API under /api/v1, accepts device push
connections on /ws and sweeps devices whose heartbeats have gone stale.

# Startup Order

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. DuckDB and the activity table
 4. JWT manager and registration token tracker
 5. Notification fan-out (hub, activity log, optional NATS)
 6. Registry service, presence tracker and WebSocket hub
 7. Supervisor tree (sweeper, hub, fan-out, HTTP server)

# Environment

	PORT=3857
	PUBLIC_URL=https://signage.example.com
	DUCKDB_PATH=/data/marquee.duckdb
	AUTH_MODE=jwt
	JWT_SECRET=<32+ chars>
	SWEEP_INTERVAL=30s
	STALE_AFTER=60s
	NATS_ENABLED=false

NATS forwarding requires a build with -tags nats.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
up to ten seconds, then the database is closed (Close checkpoints).
*/
package main
