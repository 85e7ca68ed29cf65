// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// ActivityType classifies a fleet-level event.
type ActivityType string

const (
	ActivityDeviceRegistered ActivityType = "DEVICE_REGISTERED"
	ActivityDeviceOnline     ActivityType = "DEVICE_ONLINE"
	ActivityDeviceOffline    ActivityType = "DEVICE_OFFLINE"
	ActivityDeviceDeleted    ActivityType = "DEVICE_DELETED"
	ActivityPlaylistAssigned ActivityType = "PLAYLIST_ASSIGNED"
	ActivityPlaylistRemoved  ActivityType = "PLAYLIST_REMOVED"
	ActivityMediaUploaded    ActivityType = "MEDIA_UPLOADED"
)

// Activity is an append-only audit record shown in the operator feed.
type Activity struct {
	ID       string       `json:"id"`
	Type     ActivityType `json:"type"`
	Message  string       `json:"message"`
	DeviceID string       `json:"deviceId,omitempty"`
	Time     time.Time    `json:"time"`
}

// Overview is the fleet summary served to operators.
type Overview struct {
	Devices         DeviceCounts `json:"devices"`
	TotalMedia      int          `json:"totalMedia"`
	ActivePlaylists int          `json:"activePlaylists"`
}

// DeviceCounts splits the device total by liveness.
type DeviceCounts struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// RegistrationCredential is the out-of-band payload handed to a new device
// (typically rendered as a QR code).
type RegistrationCredential struct {
	APIURL    string    `json:"apiUrl"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
