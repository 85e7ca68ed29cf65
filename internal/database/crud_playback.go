// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/database/query"
	"github.com/tomtom215/marquee/internal/models"
)

// PlaybackLogFilter narrows ListPlaybackLogs. Zero fields are ignored.
type PlaybackLogFilter struct {
	DeviceID string
	Since    time.Time
	Limit    int
}

// DefaultPlaybackLogLimit caps ListPlaybackLogs when no limit is given.
const DefaultPlaybackLogLimit = 100

// InsertPlaybackLog appends one completed playback interval.
func (db *DB) InsertPlaybackLog(ctx context.Context, l *models.PlaybackLog) (err error) {
	defer db.observe("INSERT", "playback_logs", time.Now(), &err)
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO playback_logs (id, device_id, device_name, media_id, media_name, playlist_id, started_at, ended_at, duration)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.DeviceID, l.DeviceName, l.MediaID, l.MediaName, l.PlaylistID,
		l.StartedAt.UTC(), l.EndedAt.UTC(), l.Duration)
	if err != nil {
		return fmt.Errorf("failed to insert playback log: %w", err)
	}
	return nil
}

// ListPlaybackLogs returns playback logs, most recent first.
func (db *DB) ListPlaybackLogs(ctx context.Context, f PlaybackLogFilter) (logs []models.PlaybackLog, err error) {
	defer db.observe("SELECT", "playback_logs", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultPlaybackLogLimit
	}
	where, args := query.NewWhereBuilder().
		AddEquals("device_id", f.DeviceID).
		AddSince("started_at", f.Since).
		BuildWithPrefix()
	args = append(args, limit)

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, device_id, device_name, media_id, media_name, playlist_id, started_at, ended_at, duration
		FROM playback_logs `+where+`
		ORDER BY started_at DESC, id
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list playback logs: %w", err)
	}
	defer closeWithLog(rows, "rows")

	logs = []models.PlaybackLog{}
	for rows.Next() {
		var l models.PlaybackLog
		if err := rows.Scan(&l.ID, &l.DeviceID, &l.DeviceName, &l.MediaID, &l.MediaName, &l.PlaylistID,
			&l.StartedAt, &l.EndedAt, &l.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan playback log: %w", err)
		}
		logs = append(logs, l)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playback logs: %w", err)
	}
	return logs, nil
}
