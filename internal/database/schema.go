// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getTableCreationQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range getIndexQueries() {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

// Timestamps are stored as UTC TIMESTAMP values. Columns that are updated in
// place (devices.status, devices.last_seen) are deliberately left unindexed:
// DuckDB rewrites indexed updates as delete+insert. playlist_items has no
// key because UpdatePlaylist deletes and re-inserts positions in one
// transaction.
func getTableCreationQueries() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS devices (
			device_id     VARCHAR PRIMARY KEY,
			name          VARCHAR NOT NULL DEFAULT '',
			location      VARCHAR NOT NULL DEFAULT '',
			status        VARCHAR NOT NULL DEFAULT 'offline',
			last_seen     TIMESTAMP NOT NULL,
			registered_at TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS device_playlists (
			device_id   VARCHAR NOT NULL,
			playlist_id VARCHAR NOT NULL,
			assigned_at TIMESTAMP NOT NULL,
			PRIMARY KEY (device_id, playlist_id)
		);`,
		`CREATE TABLE IF NOT EXISTS playlists (
			id          VARCHAR PRIMARY KEY,
			name        VARCHAR NOT NULL,
			description VARCHAR NOT NULL DEFAULT '',
			start_time  VARCHAR NOT NULL,
			end_time    VARCHAR NOT NULL,
			created_at  TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS playlist_items (
			playlist_id VARCHAR NOT NULL,
			position    INTEGER NOT NULL,
			media_id    VARCHAR NOT NULL,
			duration    INTEGER NOT NULL DEFAULT 10,
			item_order  INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS media (
			id            VARCHAR PRIMARY KEY,
			filename      VARCHAR NOT NULL,
			original_name VARCHAR NOT NULL,
			type          VARCHAR NOT NULL,
			size          BIGINT NOT NULL DEFAULT 0,
			url           VARCHAR NOT NULL,
			uploaded_at   TIMESTAMP NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS playback_logs (
			id          VARCHAR PRIMARY KEY,
			device_id   VARCHAR NOT NULL,
			device_name VARCHAR NOT NULL DEFAULT '',
			media_id    VARCHAR NOT NULL,
			media_name  VARCHAR NOT NULL DEFAULT '',
			playlist_id VARCHAR NOT NULL DEFAULT '',
			started_at  TIMESTAMP NOT NULL,
			ended_at    TIMESTAMP NOT NULL,
			duration    BIGINT NOT NULL
		);`,
	}
}

func getIndexQueries() []string {
	return []string{
		`CREATE INDEX IF NOT EXISTS idx_device_playlists_playlist ON device_playlists(playlist_id);`,
		`CREATE INDEX IF NOT EXISTS idx_playlist_items_playlist ON playlist_items(playlist_id);`,
		`CREATE INDEX IF NOT EXISTS idx_playback_logs_device ON playback_logs(device_id);`,
		`CREATE INDEX IF NOT EXISTS idx_playback_logs_started ON playback_logs(started_at);`,
	}
}
