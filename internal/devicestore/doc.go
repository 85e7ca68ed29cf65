// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package devicestore persists a player's local state in BadgerDB: the last
// known assignment snapshot, the device identity, and the media cache index.
//
// Keys:
//
//	snapshot:playlists   JSON Snapshot
//	identity:device      JSON Identity
//	cache:<mediaID>      absolute path of the cached file
//
// A value that fails to decode is treated as absent and logged. The player
// keeps running on whatever it can read and overwrites the entry on the next
// successful refresh.
package devicestore
