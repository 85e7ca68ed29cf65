// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package auth implements the two credentials the registry understands.

Registration tokens are short-lived HS256 JWTs minted for an operator and
handed to a new device out of band (usually as a QR code). They carry
purpose "device-registration", a random jti and an expiry. A token can be
redeemed once: the jti is recorded in a JTITracker until the token would
have expired anyway, so a replayed token is rejected with
apperr.ErrInvalidCredential.

Operator tokens are HS256 JWTs minted outside this service. When
security.auth_mode is "jwt", Middleware.RequireOperator rejects operator
routes without a valid bearer token; "none" disables the check for
single-tenant deployments behind a trusted proxy.

JTI trackers:

  - MemoryJTITracker: process-local, lost on restart.
  - BadgerJTITracker: durable, entries expire through badger TTLs.
*/
package auth
