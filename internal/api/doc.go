// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package api exposes the registry over HTTP using the Chi router.

All REST endpoints live under /api/v1 and respond with a models.APIResponse
envelope. Errors are mapped from apperr kinds to HTTP status codes:

	apperr.ErrNotFound          -> 404 NOT_FOUND
	apperr.ErrConflict          -> 409 CONFLICT
	apperr.ErrInvalidCredential -> 401 INVALID_CREDENTIAL
	apperr.ErrValidation        -> 400 VALIDATION_ERROR

# Routes

Device-facing routes (registration, heartbeat, assigned playlists) are
rate limited per client IP and do not require an operator token. Device
registration authenticates with the one-time registration token instead.
Operator routes require a bearer JWT unless security.auth_mode is "none".

	POST   /api/v1/devices/registration-token
	POST   /api/v1/devices/register
	GET    /api/v1/devices
	GET    /api/v1/devices/{deviceID}
	DELETE /api/v1/devices/{deviceID}
	POST   /api/v1/devices/{deviceID}/heartbeat
	GET    /api/v1/devices/{deviceID}/playlists
	POST   /api/v1/devices/{deviceID}/playlists
	DELETE /api/v1/devices/{deviceID}/playlists/{playlistID}
	GET    /api/v1/playlists
	POST   /api/v1/playlists
	GET    /api/v1/playlists/{playlistID}
	PUT    /api/v1/playlists/{playlistID}
	DELETE /api/v1/playlists/{playlistID}
	GET    /api/v1/media
	POST   /api/v1/media
	GET    /api/v1/analytics/overview
	GET    /api/v1/analytics/activity
	GET    /api/v1/analytics/playback

Outside the API prefix the router serves uploaded files under /uploads/,
the push channel at /ws, Prometheus metrics at /metrics and a health check
at /health.
*/
package api
