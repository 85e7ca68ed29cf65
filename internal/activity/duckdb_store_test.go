// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package activity

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory DuckDB: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDuckDBStore_CreateTable(t *testing.T) {
	db := setupTestDB(t)
	store := NewDuckDBStore(db)
	ctx := context.Background()

	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	// Idempotent.
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("second CreateTable failed: %v", err)
	}

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT table_name FROM information_schema.tables WHERE table_name = 'activities'").Scan(&name)
	if err != nil {
		t.Fatalf("Table activities does not exist: %v", err)
	}
}

func TestDuckDBStore_SaveAndRecent(t *testing.T) {
	db := setupTestDB(t)
	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	entries := []models.Activity{
		{ID: "a1", Type: models.ActivityDeviceRegistered, Message: "Device d1 registered", DeviceID: "d1", Time: base},
		{ID: "a2", Type: models.ActivityMediaUploaded, Message: "Media uploaded: logo.png", Time: base.Add(time.Minute)},
		{ID: "a3", Type: models.ActivityDeviceOffline, Message: "Device d1 went offline", DeviceID: "d1", Time: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		if err := store.Save(ctx, &entries[i]); err != nil {
			t.Fatalf("Save(%s) error = %v", entries[i].ID, err)
		}
	}

	got, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent(2) returned %d entries", len(got))
	}
	if got[0].ID != "a3" || got[1].ID != "a2" {
		t.Errorf("Recent(2) ids = [%s %s], want [a3 a2]", got[0].ID, got[1].ID)
	}
	if got[0].Type != models.ActivityDeviceOffline || got[0].DeviceID != "d1" {
		t.Errorf("Recent()[0] = %+v", got[0])
	}
	if got[1].DeviceID != "" {
		t.Errorf("Recent()[1].DeviceID = %q, want empty", got[1].DeviceID)
	}
	if !got[0].Time.Equal(entries[2].Time) {
		t.Errorf("Recent()[0].Time = %v, want %v", got[0].Time, entries[2].Time)
	}
}

func TestDuckDBStore_SaveNil(t *testing.T) {
	store := NewDuckDBStore(setupTestDB(t))
	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) expected error")
	}
}
