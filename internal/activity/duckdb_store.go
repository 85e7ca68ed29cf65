// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package activity

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// DuckDBStore implements Store on top of DuckDB.
type DuckDBStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewDuckDBStore creates a store using an existing connection.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

// CreateTable creates the activities table if it does not exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			message TEXT NOT NULL,
			device_id TEXT,
			time TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_activities_time ON activities(time);
	`

	for _, stmt := range strings.Split(schema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	logging.Info().Msg("Activities table created/verified")
	return nil
}

// Save persists an activity.
func (s *DuckDBStore) Save(ctx context.Context, a *models.Activity) error {
	if err := prepare(a); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var deviceID any
	if a.DeviceID != "" {
		deviceID = a.DeviceID
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activities (id, type, message, device_id, time) VALUES (?, ?, ?, ?, ?)`,
		a.ID, string(a.Type), a.Message, deviceID, a.Time.UTC())
	if err != nil {
		return fmt.Errorf("failed to save activity: %w", err)
	}
	return nil
}

// Recent returns up to limit activities, newest first.
func (s *DuckDBStore) Recent(ctx context.Context, limit int) ([]models.Activity, error) {
	limit = normalizeLimit(limit)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, message, device_id, time FROM activities ORDER BY time DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logging.Warn().Err(cerr).Msg("Failed to close activity rows")
		}
	}()

	result := make([]models.Activity, 0, limit)
	for rows.Next() {
		var (
			a        models.Activity
			typ      string
			deviceID sql.NullString
		)
		if err := rows.Scan(&a.ID, &typ, &a.Message, &deviceID, &a.Time); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Type = models.ActivityType(typ)
		a.DeviceID = deviceID.String
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activities: %w", err)
	}
	return result, nil
}
