// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/models"
)

const deviceColumns = `device_id, name, location, status, last_seen, registered_at`

// CreateDevice inserts a new device. Returns ErrConflict if the id exists.
func (db *DB) CreateDevice(ctx context.Context, d *models.Device) (err error) {
	defer db.observe("INSERT", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	var exists int
	if err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM devices WHERE device_id = ?`, d.DeviceID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check device: %w", err)
	}
	if exists > 0 {
		return apperr.E(apperr.ErrConflict, "device %q is already registered", d.DeviceID)
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO devices (`+deviceColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		d.DeviceID, d.Name, d.Location, string(d.Status), d.LastSeen.UTC(), d.RegisteredAt.UTC())
	if err != nil {
		if isConstraintViolation(err) {
			return apperr.Wrap(apperr.ErrConflict, err, "device %q is already registered", d.DeviceID)
		}
		return fmt.Errorf("failed to insert device: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit device: %w", err)
	}
	return nil
}

// GetDevice returns a device with its assignment list.
func (db *DB) GetDevice(ctx context.Context, deviceID string) (d *models.Device, err error) {
	defer db.observe("SELECT", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	row := db.conn.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, deviceID)
	d, err = scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.ErrNotFound, "device %q not found", deviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	assignments, err := db.loadAssignments(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	d.Playlists = assignments[deviceID]
	if d.Playlists == nil {
		d.Playlists = []string{}
	}
	return d, nil
}

// ListDevices returns all devices, most recently registered first.
func (db *DB) ListDevices(ctx context.Context) (devices []models.Device, err error) {
	defer db.observe("SELECT", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY registered_at DESC, device_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer closeWithLog(rows, "rows")

	devices = []models.Device{}
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, *d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}

	assignments, err := db.loadAssignments(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range devices {
		devices[i].Playlists = assignments[devices[i].DeviceID]
		if devices[i].Playlists == nil {
			devices[i].Playlists = []string{}
		}
	}
	return devices, nil
}

// DeleteDevice removes a device and its assignments.
func (db *DB) DeleteDevice(ctx context.Context, deviceID string) (err error) {
	defer db.observe("DELETE", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `DELETE FROM devices WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.E(apperr.ErrNotFound, "device %q not found", deviceID)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM device_playlists WHERE device_id = ?`, deviceID); err != nil {
		return fmt.Errorf("failed to delete device assignments: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit device delete: %w", err)
	}
	return nil
}

// TouchDevice marks a device online with last_seen = at.
func (db *DB) TouchDevice(ctx context.Context, deviceID string, at time.Time) (err error) {
	defer db.observe("UPDATE", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE devices SET status = ?, last_seen = ? WHERE device_id = ?`,
		string(models.DeviceOnline), at.UTC(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.E(apperr.ErrNotFound, "device %q not found", deviceID)
	}
	return nil
}

// SetDeviceStatus changes status without moving last_seen.
func (db *DB) SetDeviceStatus(ctx context.Context, deviceID string, status models.DeviceStatus) (err error) {
	defer db.observe("UPDATE", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE devices SET status = ? WHERE device_id = ?`, string(status), deviceID)
	if err != nil {
		return fmt.Errorf("failed to update device status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.E(apperr.ErrNotFound, "device %q not found", deviceID)
	}
	return nil
}

// MarkStaleDevices sets every online device last seen before cutoff to
// offline and returns the devices it changed. A device already offline is
// not returned again.
func (db *DB) MarkStaleDevices(ctx context.Context, cutoff time.Time) (changed []models.DeviceStatusChange, err error) {
	defer db.observe("UPDATE", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	rows, err := db.conn.QueryContext(ctx, `
		UPDATE devices SET status = ?
		WHERE status = ? AND last_seen < ?
		RETURNING device_id, last_seen`,
		string(models.DeviceOffline), string(models.DeviceOnline), cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to mark stale devices: %w", err)
	}
	defer closeWithLog(rows, "rows")

	for rows.Next() {
		c := models.DeviceStatusChange{Status: models.DeviceOffline}
		if err := rows.Scan(&c.DeviceID, &c.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan stale device: %w", err)
		}
		changed = append(changed, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate stale devices: %w", err)
	}
	return changed, nil
}

// CountDevices returns the number of online devices and the total.
func (db *DB) CountDevices(ctx context.Context) (active, total int, err error) {
	defer db.observe("SELECT", "devices", time.Now(), &err)
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var a, t int64
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FILTER (WHERE status = ?), COUNT(*) FROM devices`,
		string(models.DeviceOnline)).Scan(&a, &t)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return int(a), int(t), nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (*models.Device, error) {
	var d models.Device
	var status string
	if err := row.Scan(&d.DeviceID, &d.Name, &d.Location, &status, &d.LastSeen, &d.RegisteredAt); err != nil {
		return nil, err
	}
	d.Status = models.DeviceStatus(status)
	return &d, nil
}
