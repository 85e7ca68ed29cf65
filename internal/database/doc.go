// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package database is the registry's DuckDB persistence layer.

Tables:
  - devices: one row per registered device identity
  - device_playlists: assignment set, primary key (device_id, playlist_id)
  - playlists / playlist_items: playlist header plus ordered items
  - media: immutable uploaded media records
  - playback_logs: append-only completed playback intervals
  - activities: append-only fleet audit trail (owned by internal/activity)

Every mutation is one statement or one transaction touching a single
aggregate. Errors returned to callers wrap apperr sentinels (ErrNotFound,
ErrConflict, ErrValidation) so the API can map them to status codes.

Connections are opened with access_mode=read_write and a bounded thread and
memory budget. Close runs a CHECKPOINT so the WAL is flushed before exit.
*/
package database
