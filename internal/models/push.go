// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

// Push channel message types.
const (
	// server -> device
	PushPlaylistUpdated  = "playlist-updated"
	PushDeviceStatus     = "device-status"
	PushActivity         = "activity"
	PushAnalyticsUpdated = "analytics-updated"
	PushPong             = "pong"

	// device -> server
	PushDeviceOnline  = "DEVICE_ONLINE"
	PushPlaybackStart = "PLAYBACK_START"
	PushPlaybackEnd   = "PLAYBACK_END"
	PushPing          = "ping"
)
