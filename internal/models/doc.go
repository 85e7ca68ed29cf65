// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package models holds the data types shared by the registry, the player and
// the push channel: devices, playlists and their items, media, playback logs,
// activity entries and the API response envelope.
//
// JSON field names follow the device protocol (camelCase) because the same
// types travel over REST, the push channel and the player's local snapshot.
package models
