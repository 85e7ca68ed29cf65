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
	"github.com/tomtom215/marquee/internal/database/query"
	"github.com/tomtom215/marquee/internal/models"
)

const (
	playlistColumns  = `id, name, description, start_time, end_time, created_at`
	playlistColumnsP = `p.id, p.name, p.description, p.start_time, p.end_time, p.created_at`
)

// CreatePlaylist inserts a playlist header and its items in one transaction.
func (db *DB) CreatePlaylist(ctx context.Context, p *models.Playlist) (err error) {
	defer db.observe("INSERT", "playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `INSERT INTO playlists (`+playlistColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.StartTime, p.EndTime, p.CreatedAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return apperr.Wrap(apperr.ErrConflict, err, "playlist %q already exists", p.ID)
		}
		return fmt.Errorf("failed to insert playlist: %w", err)
	}
	if err = insertItems(ctx, tx, p.ID, p.Items); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist: %w", err)
	}
	return nil
}

// UpdatePlaylist replaces a playlist's header fields and items.
// CreatedAt is preserved.
func (db *DB) UpdatePlaylist(ctx context.Context, p *models.Playlist) (err error) {
	defer db.observe("UPDATE", "playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `
		UPDATE playlists SET name = ?, description = ?, start_time = ?, end_time = ?
		WHERE id = ?`,
		p.Name, p.Description, p.StartTime, p.EndTime, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.E(apperr.ErrNotFound, "playlist %q not found", p.ID)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM playlist_items WHERE playlist_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear playlist items: %w", err)
	}
	if err = insertItems(ctx, tx, p.ID, p.Items); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit playlist update: %w", err)
	}
	return nil
}

// DeletePlaylist removes a playlist, its items and every assignment of it.
// It returns the ids of the devices that had it assigned.
func (db *DB) DeletePlaylist(ctx context.Context, id string) (affected []string, err error) {
	defer db.observe("DELETE", "playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, apperr.E(apperr.ErrNotFound, "playlist %q not found", id)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM playlist_items WHERE playlist_id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete playlist items: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `DELETE FROM device_playlists WHERE playlist_id = ? RETURNING device_id`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete playlist assignments: %w", err)
	}
	for rows.Next() {
		var dev string
		if err = rows.Scan(&dev); err != nil {
			closeQuietly(rows)
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		affected = append(affected, dev)
	}
	if err = rows.Err(); err != nil {
		closeQuietly(rows)
		return nil, fmt.Errorf("failed to iterate assignments: %w", err)
	}
	closeQuietly(rows)

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit playlist delete: %w", err)
	}
	return affected, nil
}

// GetPlaylist returns one playlist expanded with items and media.
func (db *DB) GetPlaylist(ctx context.Context, id string) (p *models.Playlist, err error) {
	defer db.observe("SELECT", "playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", err)
	}
	playlists, err := scanPlaylists(rows)
	if err != nil {
		return nil, err
	}
	if len(playlists) == 0 {
		return nil, apperr.E(apperr.ErrNotFound, "playlist %q not found", id)
	}
	if err = db.expandItems(ctx, db.conn, playlists); err != nil {
		return nil, err
	}
	return &playlists[0], nil
}

// ListPlaylists returns all playlists expanded, newest first.
func (db *DB) ListPlaylists(ctx context.Context) (playlists []models.Playlist, err error) {
	defer db.observe("SELECT", "playlists", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
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

// MissingPlaylists returns the ids in ids that name no playlist, in input
// order without duplicates.
func (db *DB) MissingPlaylists(ctx context.Context, ids []string) ([]string, error) {
	return db.missingIDs(ctx, "playlists", ids)
}

// MissingMedia returns the ids in ids that name no media.
func (db *DB) MissingMedia(ctx context.Context, ids []string) ([]string, error) {
	return db.missingIDs(ctx, "media", ids)
}

func (db *DB) missingIDs(ctx context.Context, table string, ids []string) (missing []string, err error) {
	defer db.observe("SELECT", table, time.Now(), &err)
	if len(ids) == 0 {
		return nil, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	where, args := query.NewWhereBuilder().AddIn("id", ids).Build()
	// table is one of two package constants, never caller input.
	rows, err := db.conn.QueryContext(ctx, `SELECT id FROM `+table+` WHERE `+where, args...) // #nosec G202
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s ids: %w", table, err)
	}
	defer closeWithLog(rows, "rows")

	found := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		found[id] = true
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ids: %w", err)
	}

	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !found[id] && !seen[id] {
			missing = append(missing, id)
		}
		seen[id] = true
	}
	return missing, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertItems(ctx context.Context, tx execer, playlistID string, items []models.PlaylistItem) error {
	for i, it := range items {
		duration := it.Duration
		if duration <= 0 {
			duration = models.DefaultItemDuration
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlist_items (playlist_id, position, media_id, duration, item_order)
			VALUES (?, ?, ?, ?, ?)`,
			playlistID, i, it.MediaID, duration, it.Order)
		if err != nil {
			return fmt.Errorf("failed to insert playlist item %d: %w", i, err)
		}
	}
	return nil
}

func scanPlaylists(rows *sql.Rows) ([]models.Playlist, error) {
	defer closeWithLog(rows, "rows")

	playlists := []models.Playlist{}
	for rows.Next() {
		var p models.Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.StartTime, &p.EndTime, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		p.Items = []models.PlaylistItem{}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate playlists: %w", err)
	}
	return playlists, nil
}

// expandItems fills Items (with Media) for each playlist in place, keeping
// stored position order. Items whose media row is gone keep a nil Media.
func (db *DB) expandItems(ctx context.Context, q queryer, playlists []models.Playlist) error {
	if len(playlists) == 0 {
		return nil
	}
	ids := make([]string, len(playlists))
	index := make(map[string]int, len(playlists))
	for i := range playlists {
		ids[i] = playlists[i].ID
		index[playlists[i].ID] = i
	}

	where, args := query.NewWhereBuilder().AddIn("i.playlist_id", ids).Build()
	rows, err := q.QueryContext(ctx, `
		SELECT i.playlist_id, i.media_id, i.duration, i.item_order,
		       m.id, m.filename, m.original_name, m.type, m.size, m.url, m.uploaded_at
		FROM playlist_items i
		LEFT JOIN media m ON m.id = i.media_id
		WHERE `+where+`
		ORDER BY i.playlist_id, i.position`, args...)
	if err != nil {
		return fmt.Errorf("failed to load playlist items: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		var (
			playlistID string
			it         models.PlaylistItem
			mID        sql.NullString
			mFilename  sql.NullString
			mOriginal  sql.NullString
			mType      sql.NullString
			mSize      sql.NullInt64
			mURL       sql.NullString
			mUploaded  sql.NullTime
		)
		if err := rows.Scan(&playlistID, &it.MediaID, &it.Duration, &it.Order,
			&mID, &mFilename, &mOriginal, &mType, &mSize, &mURL, &mUploaded); err != nil {
			return fmt.Errorf("failed to scan playlist item: %w", err)
		}
		if mID.Valid {
			it.Media = &models.Media{
				ID:           mID.String,
				Filename:     mFilename.String,
				OriginalName: mOriginal.String,
				Type:         models.MediaType(mType.String),
				Size:         mSize.Int64,
				URL:          mURL.String,
				UploadedAt:   mUploaded.Time,
			}
		}
		i := index[playlistID]
		playlists[i].Items = append(playlists[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate playlist items: %w", err)
	}
	return nil
}
