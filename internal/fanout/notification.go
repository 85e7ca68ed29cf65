// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package fanout

import (
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/models"
)

// Topic is the GoChannel topic notifications are published on.
const Topic = "marquee.notifications"

// Notification describes the side effects of one committed mutation.
type Notification struct {
	ID          string           `json:"id"`
	PublishedAt time.Time        `json:"publishedAt"`
	Push        []Frame          `json:"push,omitempty"`
	Activity    *models.Activity `json:"activity,omitempty"`
}

// Frame is a push channel frame. Data is pre-encoded so it survives the bus
// without losing its shape.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewFrame encodes data into a frame. A nil data yields a frame without payload.
func NewFrame(msgType string, data interface{}) Frame {
	if data == nil {
		return Frame{Type: msgType}
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Frame{Type: msgType}
	}
	return Frame{Type: msgType, Data: raw}
}

// PlaylistUpdated tells deviceID to refresh its assignments.
func PlaylistUpdated(deviceID string) Frame {
	return NewFrame(models.PushPlaylistUpdated, map[string]string{"deviceId": deviceID})
}

// DeviceStatus announces a liveness change.
func DeviceStatus(change models.DeviceStatusChange) Frame {
	return NewFrame(models.PushDeviceStatus, change)
}

// AnalyticsUpdated tells dashboards to reload the overview.
func AnalyticsUpdated() Frame {
	return Frame{Type: models.PushAnalyticsUpdated}
}

// WithActivity builds a notification carrying an activity and push frames.
func WithActivity(typ models.ActivityType, deviceID, message string, frames ...Frame) *Notification {
	return &Notification{
		Push: frames,
		Activity: &models.Activity{
			Type:     typ,
			Message:  message,
			DeviceID: deviceID,
		},
	}
}

// PushOnly builds a notification without an activity.
func PushOnly(frames ...Frame) *Notification {
	return &Notification{Push: frames}
}
