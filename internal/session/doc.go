// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package session is the player's runtime: the state machine that decides what a
device shows and keeps it in step with the registry.

# States

	Initializing -> Ready -> Playing -> Transitioning -> Playing | Ready
	any          -> Deregistered (explicit reset only)

Ready covers both "no active playlist" and "active playlist with nothing
playable". Transitioning is held only while one item hands over to the next.

# Offline first

Start loads the last assignment snapshot from the device store, resolves the
active playlist with the schedule package and begins playback before any
network call is made. Media that is not cached yet plays from its remote URL
while the cache fetches it in the background.

# Timers

Four independent timers run off the injected clock.Clock:

  - re-evaluation (default 10s) re-resolves the active playlist against the
    snapshot and the clock
  - refresh (default 30s) replaces the snapshot with the registry's copy
  - heartbeat (5s after start, then every 30s)
  - playback advance, armed per image item

Registry and push calls are made without holding the session lock, and their
failures are logged and retried on the next tick. Video items advance only
when the renderer reports VideoEnded; a stalled video is never skipped.

# Status server

StatusServer exposes GET /status, POST /video-ended and POST /reset on a
loopback address for the on-device renderer.
*/
package session
