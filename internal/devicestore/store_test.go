// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package devicestore

import (
	"errors"
	"io"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSnapshot_RoundTripAndClear(t *testing.T) {
	s := openTestStore(t)

	snap, err := s.LoadSnapshot()
	if err != nil || snap != nil {
		t.Fatalf("LoadSnapshot() on empty store = %v, %v; want nil, nil", snap, err)
	}

	want := &Snapshot{
		Playlists: []models.Playlist{{ID: "p1", Name: "Morning", StartTime: "08:00", EndTime: "12:00",
			Items: []models.PlaylistItem{{MediaID: "m1", Duration: 5}}}},
		FetchedAt: time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC),
	}
	if err := s.SaveSnapshot(want); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}
	got, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}
	if len(got.Playlists) != 1 || got.Playlists[0].ID != "p1" || got.Playlists[0].Items[0].Duration != 5 {
		t.Errorf("LoadSnapshot() = %+v", got)
	}
	if !got.FetchedAt.Equal(want.FetchedAt) {
		t.Errorf("FetchedAt = %v", got.FetchedAt)
	}

	if err := s.ClearSnapshot(); err != nil {
		t.Fatalf("ClearSnapshot() error = %v", err)
	}
	if got, _ := s.LoadSnapshot(); got != nil {
		t.Errorf("snapshot survived ClearSnapshot: %+v", got)
	}
}

func TestSnapshot_CorruptIsAbsent(t *testing.T) {
	s := openTestStore(t)
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(snapshotKey), []byte("{not json"))
	})
	if err != nil {
		t.Fatalf("seed corrupt snapshot: %v", err)
	}

	snap, err := s.LoadSnapshot()
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v, want nil", err)
	}
	if snap != nil {
		t.Errorf("LoadSnapshot() = %+v, want nil for corrupt value", snap)
	}
}

func TestIdentity(t *testing.T) {
	s := openTestStore(t)
	if id, err := s.LoadIdentity(); err != nil || id != nil {
		t.Fatalf("LoadIdentity() on empty store = %v, %v", id, err)
	}
	if err := s.SaveIdentity(&Identity{DeviceID: "lobby-1", Name: "Lobby", APIURL: "http://r/api/v1"}); err != nil {
		t.Fatalf("SaveIdentity() error = %v", err)
	}
	id, err := s.LoadIdentity()
	if err != nil || id == nil || id.DeviceID != "lobby-1" || id.APIURL != "http://r/api/v1" {
		t.Fatalf("LoadIdentity() = %+v, %v", id, err)
	}
}

func TestCacheIndex(t *testing.T) {
	s := openTestStore(t)
	for id, path := range map[string]string{"m1": "/c/media_m1.jpg", "m2": "/c/media_m2.mp4"} {
		if err := s.Put(id, path); err != nil {
			t.Fatalf("Put(%s) error = %v", id, err)
		}
	}

	path, ok, err := s.Get("m1")
	if err != nil || !ok || path != "/c/media_m1.jpg" {
		t.Errorf("Get(m1) = %q, %v, %v", path, ok, err)
	}
	if _, ok, _ := s.Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}

	all, err := s.All()
	if err != nil || len(all) != 2 {
		t.Fatalf("All() = %v, %v", all, err)
	}

	if err := s.Delete("m1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if all, _ := s.All(); len(all) != 1 {
		t.Errorf("All() after Delete = %v", all)
	}
}

func TestReset(t *testing.T) {
	s := openTestStore(t)
	_ = s.SaveSnapshot(&Snapshot{Playlists: []models.Playlist{{ID: "p1"}}})
	_ = s.SaveIdentity(&Identity{DeviceID: "lobby-1"})
	_ = s.Put("m1", "/c/media_m1.jpg")

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	snap, _ := s.LoadSnapshot()
	id, _ := s.LoadIdentity()
	all, _ := s.All()
	if snap != nil || id != nil || len(all) != 0 {
		t.Errorf("after Reset snapshot=%v identity=%v index=%v", snap, id, all)
	}
}

func TestClosed(t *testing.T) {
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := s.Put("m1", "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("Put() after Close error = %v, want ErrClosed", err)
	}
}
