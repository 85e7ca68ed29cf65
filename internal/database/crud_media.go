// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/models"
)

const mediaColumns = `id, filename, original_name, type, size, url, uploaded_at`

// CreateMedia inserts an immutable media record.
func (db *DB) CreateMedia(ctx context.Context, m *models.Media) (err error) {
	defer db.observe("INSERT", "media", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	_, err = db.conn.ExecContext(ctx, `INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Filename, m.OriginalName, string(m.Type), m.Size, m.URL, m.UploadedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return apperr.Wrap(apperr.ErrConflict, err, "media %q already exists", m.ID)
		}
		return fmt.Errorf("failed to insert media: %w", err)
	}
	return nil
}

// ListMedia returns all media, newest first.
func (db *DB) ListMedia(ctx context.Context) (media []models.Media, err error) {
	defer db.observe("SELECT", "media", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+mediaColumns+` FROM media ORDER BY uploaded_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list media: %w", err)
	}
	defer closeWithLog(rows, "rows")

	media = []models.Media{}
	for rows.Next() {
		var m models.Media
		var typ string
		if err := rows.Scan(&m.ID, &m.Filename, &m.OriginalName, &typ, &m.Size, &m.URL, &m.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		m.Type = models.MediaType(typ)
		media = append(media, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate media: %w", err)
	}
	return media, nil
}

// CountMedia returns the number of media records.
func (db *DB) CountMedia(ctx context.Context) (n int, err error) {
	defer db.observe("SELECT", "media", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var c int64
	if err = db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM media`).Scan(&c); err != nil {
		return 0, fmt.Errorf("failed to count media: %w", err)
	}
	return int(c), nil
}
