// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import "time"

// DeviceStatus is the registry's belief about a device's liveness.
type DeviceStatus string

const (
	DeviceOnline  DeviceStatus = "online"
	DeviceOffline DeviceStatus = "offline"
	DeviceError   DeviceStatus = "error"
)

// Valid reports whether s is one of the known statuses.
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceOnline, DeviceOffline, DeviceError:
		return true
	}
	return false
}

// Device is a registered display unit.
type Device struct {
	DeviceID     string       `json:"deviceId"`
	Name         string       `json:"name"`
	Location     string       `json:"location,omitempty"`
	Status       DeviceStatus `json:"status"`
	LastSeen     time.Time    `json:"lastSeen"`
	RegisteredAt time.Time    `json:"registeredAt"`

	// Playlists holds assigned playlist ids in assignment order, without duplicates.
	Playlists []string `json:"playlists"`
}

// HasPlaylist reports whether id is assigned to the device.
func (d *Device) HasPlaylist(id string) bool {
	for _, p := range d.Playlists {
		if p == id {
			return true
		}
	}
	return false
}

// DeviceStatusChange is the payload of the device-status push message.
type DeviceStatusChange struct {
	DeviceID string       `json:"deviceId"`
	Status   DeviceStatus `json:"status"`
	LastSeen time.Time    `json:"lastSeen"`
}
