// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// PlaybackStart is the PLAYBACK_START payload a device sends before an item begins.
type PlaybackStart struct {
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName,omitempty"`
	MediaID    string    `json:"mediaId"`
	MediaName  string    `json:"mediaName,omitempty"`
	PlaylistID string    `json:"playlistId"`
	StartedAt  time.Time `json:"startedAt"`
}

// PlaybackEnd is the PLAYBACK_END payload. The registry correlates it with the
// most recent start on the same connection; the fields are informational.
type PlaybackEnd struct {
	DeviceID string    `json:"deviceId,omitempty"`
	MediaID  string    `json:"mediaId,omitempty"`
	EndedAt  time.Time `json:"endedAt"`
}

// DeviceOnlineMessage is the DEVICE_ONLINE payload.
type DeviceOnlineMessage struct {
	DeviceID string `json:"deviceId"`
}

// PlaybackLog is one completed (or disconnect-terminated) playback interval.
type PlaybackLog struct {
	ID         string    `json:"id"`
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName,omitempty"`
	MediaID    string    `json:"mediaId"`
	MediaName  string    `json:"mediaName,omitempty"`
	PlaylistID string    `json:"playlistId,omitempty"`
	StartedAt  time.Time `json:"startedAt"`
	EndedAt    time.Time `json:"endedAt"`

	// Duration is whole seconds: floor((EndedAt-StartedAt) in ms / 1000).
	Duration int64 `json:"duration"`
}

// PlaybackSeconds computes the logged duration between start and end.
// Negative intervals clamp to zero.
func PlaybackSeconds(start, end time.Time) int64 {
	ms := end.Sub(start).Milliseconds()
	if ms < 0 {
		return 0
	}
	return ms / 1000
}
