// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package logging provides the zerolog-based structured logger shared by the
// registry server and the player agent.
//
// The package exposes a process-wide logger configured once from main:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("device_id", id).Msg("Heartbeat accepted")
//
// Request-scoped fields (request_id, correlation_id, device_id) travel in the
// context and are attached by Ctx:
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Assignment fan-out failed")
//
// Two adapters bridge third-party logging interfaces onto zerolog:
//   - SlogHandler for sutureslog (supervisor events)
//   - WatermillAdapter for the fan-out message bus
//
// Tests silence output with:
//
//	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
package logging
