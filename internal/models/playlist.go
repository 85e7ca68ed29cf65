// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package models

import (
	"sort"
	"time"
)

// DefaultItemDuration is the image display time in seconds when an item does
// not set one.
const DefaultItemDuration = 10

// Playlist is a globally defined, independently assignable sequence of media
// with a daily time window. StartTime and EndTime are "HH:MM" (24h, device-local).
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	StartTime   string         `json:"startTime"`
	EndTime     string         `json:"endTime"`
	Items       []PlaylistItem `json:"items"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// PlaylistItem references a media entity. Media is populated in expanded reads
// and is nil when the referenced media no longer exists.
type PlaylistItem struct {
	MediaID  string `json:"mediaId"`
	Media    *Media `json:"media,omitempty"`
	Duration int    `json:"duration"`
	Order    int    `json:"order"`
}

// DisplayDuration returns the configured image duration, defaulting to
// DefaultItemDuration when unset.
func (i PlaylistItem) DisplayDuration() time.Duration {
	d := i.Duration
	if d <= 0 {
		d = DefaultItemDuration
	}
	return time.Duration(d) * time.Second
}

// SortedItems returns a copy of the items in ascending Order. Equal orders keep
// their stored position.
func (p *Playlist) SortedItems() []PlaylistItem {
	items := make([]PlaylistItem, len(p.Items))
	copy(items, p.Items)
	sort.SliceStable(items, func(a, b int) bool { return items[a].Order < items[b].Order })
	return items
}

// PlaylistUpdated is the payload of the playlist-updated push message.
type PlaylistUpdated struct {
	DeviceID string `json:"deviceId"`
}
