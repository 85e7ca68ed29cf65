// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/models"
)

// AddAssignments merges playlistIDs into the device's assignment set.
// Ids already assigned are left untouched. The merge commits atomically.
func (db *DB) AddAssignments(ctx context.Context, deviceID string, playlistIDs []string) (err error) {
	defer db.observe("INSERT", "device_playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if err = requireDevice(ctx, tx, deviceID); err != nil {
		return err
	}

	// Spread assigned_at by a microsecond so one call keeps its input order.
	now := time.Now().UTC()
	for i, id := range playlistIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO device_playlists (device_id, playlist_id, assigned_at)
			VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING`,
			deviceID, id, now.Add(time.Duration(i)*time.Microsecond))
		if err != nil {
			return fmt.Errorf("failed to assign playlist %s: %w", id, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignments: %w", err)
	}
	return nil
}

// RemoveAssignment drops playlistID from the device's set. Absent ids are a no-op.
func (db *DB) RemoveAssignment(ctx context.Context, deviceID, playlistID string) (err error) {
	defer db.observe("DELETE", "device_playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	if err = requireDevice(ctx, tx, deviceID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM device_playlists WHERE device_id = ? AND playlist_id = ?`, deviceID, playlistID); err != nil {
		return fmt.Errorf("failed to remove assignment: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignment removal: %w", err)
	}
	return nil
}

// AssignedPlaylists returns the device's playlists expanded with items and media.
func (db *DB) AssignedPlaylists(ctx context.Context, deviceID string) (playlists []models.Playlist, err error) {
	defer db.observe("SELECT", "device_playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	if err = requireDevice(ctx, db.conn, deviceID); err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+playlistColumnsP+`
		FROM playlists p
		JOIN device_playlists dp ON dp.playlist_id = p.id
		WHERE dp.device_id = ?
		ORDER BY dp.assigned_at, p.id`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assigned playlists: %w", err)
	}
	playlists, err = scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if err = db.expandItems(ctx, db.conn, playlists); err != nil {
		return nil, err
	}
	return playlists, nil
}

// loadAssignments returns assignment lists keyed by device id, for one
// device or for all when deviceID is empty.
func (db *DB) loadAssignments(ctx context.Context, deviceID string) (map[string][]string, error) {
	q := `SELECT device_id, playlist_id FROM device_playlists`
	var args []interface{}
	if deviceID != "" {
		q += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	q += ` ORDER BY device_id, assigned_at, playlist_id`

	rows, err := db.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignments: %w", err)
	}
	defer closeWithLog(rows, "rows")

	out := make(map[string][]string)
	for rows.Next() {
		var dev, pl string
		if err := rows.Scan(&dev, &pl); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out[dev] = append(out[dev], pl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	return out, nil
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func requireDevice(ctx context.Context, q queryer, deviceID string) error {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE device_id = ?`, deviceID).Scan(&n); err != nil {
		return fmt.Errorf("failed to check device: %w", err)
	}
	if n == 0 {
		return apperr.E(apperr.ErrNotFound, "device %q not found", deviceID)
	}
	return nil
}
