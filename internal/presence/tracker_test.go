// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package presence

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

type fakeStore struct {
	mu       sync.Mutex
	known    map[string]bool
	status   map[string]models.DeviceStatus
	lastSeen map[string]time.Time
	logs     []models.PlaybackLog
	logErr   error
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{
		known:    make(map[string]bool),
		status:   make(map[string]models.DeviceStatus),
		lastSeen: make(map[string]time.Time),
	}
	for _, id := range ids {
		s.known[id] = true
	}
	return s
}

func (s *fakeStore) TouchDevice(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known[id] {
		return apperr.E(apperr.ErrNotFound, "device %s not found", id)
	}
	s.status[id] = models.DeviceOnline
	s.lastSeen[id] = at
	return nil
}

func (s *fakeStore) SetDeviceStatus(_ context.Context, id string, status models.DeviceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.known[id] {
		return apperr.E(apperr.ErrNotFound, "device %s not found", id)
	}
	s.status[id] = status
	return nil
}

func (s *fakeStore) InsertPlaybackLog(_ context.Context, l *models.PlaybackLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logErr != nil {
		return s.logErr
	}
	s.logs = append(s.logs, *l)
	return nil
}

type recordingBus struct {
	mu   sync.Mutex
	sent []*fanout.Notification
}

func (b *recordingBus) Publish(_ context.Context, n *fanout.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, n)
}

func (b *recordingBus) activities() []models.ActivityType {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []models.ActivityType
	for _, n := range b.sent {
		if n.Activity != nil {
			out = append(out, n.Activity.Type)
		}
	}
	return out
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTracker(ids ...string) (*Tracker, *fakeStore, *recordingBus, *clock.Fake) {
	store := newFakeStore(ids...)
	bus := &recordingBus{}
	clk := clock.NewFake(t0)
	return NewTracker(store, bus, clk), store, bus, clk
}

func TestDeviceOnline_MarksOnlineAndFansOut(t *testing.T) {
	tr, store, bus, _ := newTracker("lobby-1")
	ctx := context.Background()

	if err := tr.DeviceOnline(ctx, "c1", "lobby-1"); err != nil {
		t.Fatalf("DeviceOnline() error = %v", err)
	}
	if store.status["lobby-1"] != models.DeviceOnline || !store.lastSeen["lobby-1"].Equal(t0) {
		t.Errorf("store = %v %v", store.status, store.lastSeen)
	}
	if !tr.Connected("lobby-1") {
		t.Error("Connected() = false after DeviceOnline")
	}

	if len(bus.sent) != 1 {
		t.Fatalf("published %d notifications, want 1", len(bus.sent))
	}
	n := bus.sent[0]
	if n.Activity == nil || n.Activity.Type != models.ActivityDeviceOnline || n.Activity.DeviceID != "lobby-1" {
		t.Errorf("activity = %+v", n.Activity)
	}
	if len(n.Push) != 2 || n.Push[0].Type != models.PushDeviceStatus || n.Push[1].Type != models.PushAnalyticsUpdated {
		t.Errorf("push = %+v", n.Push)
	}
}

func TestDeviceOnline_UnknownDeviceLoggedOnly(t *testing.T) {
	tr, _, bus, _ := newTracker()
	if err := tr.DeviceOnline(context.Background(), "c1", "ghost"); err != nil {
		t.Fatalf("DeviceOnline() error = %v", err)
	}
	if len(bus.sent) != 0 {
		t.Errorf("published %d notifications for unknown device", len(bus.sent))
	}
	// Disconnect of the unknown device must not fan out either.
	if err := tr.Disconnect(context.Background(), "c1"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if len(bus.sent) != 0 {
		t.Errorf("published %d notifications on unknown disconnect", len(bus.sent))
	}
}

func TestDeviceOnline_RequiresID(t *testing.T) {
	tr, _, _, _ := newTracker()
	err := tr.DeviceOnline(context.Background(), "c1", "")
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("DeviceOnline(\"\") error = %v, want ErrValidation", err)
	}
}

func TestPlaybackStartEnd_WritesFlooredDuration(t *testing.T) {
	tr, store, _, clk := newTracker("lobby-1")
	ctx := context.Background()

	start := models.PlaybackStart{DeviceID: "lobby-1", DeviceName: "Lobby", MediaID: "m1", MediaName: "a.png", PlaylistID: "p1"}
	if err := tr.PlaybackStart(ctx, "c1", start); err != nil {
		t.Fatalf("PlaybackStart() error = %v", err)
	}
	clk.Advance(7999 * time.Millisecond)
	if err := tr.PlaybackEnd(ctx, "c1"); err != nil {
		t.Fatalf("PlaybackEnd() error = %v", err)
	}

	if len(store.logs) != 1 {
		t.Fatalf("logs = %d, want 1", len(store.logs))
	}
	got := store.logs[0]
	if got.Duration != 7 {
		t.Errorf("Duration = %d, want 7", got.Duration)
	}
	if got.MediaID != "m1" || got.PlaylistID != "p1" || got.DeviceName != "Lobby" {
		t.Errorf("log = %+v", got)
	}
	if !got.StartedAt.Equal(t0) || !got.EndedAt.Equal(t0.Add(7999*time.Millisecond)) {
		t.Errorf("interval = %v..%v", got.StartedAt, got.EndedAt)
	}
	if _, ok := tr.InFlight("c1"); ok {
		t.Error("record still in flight after PlaybackEnd")
	}
}

func TestPlaybackEnd_WithoutStartIsNoop(t *testing.T) {
	tr, store, _, _ := newTracker("lobby-1")
	if err := tr.PlaybackEnd(context.Background(), "c1"); err != nil {
		t.Fatalf("PlaybackEnd() error = %v", err)
	}
	if len(store.logs) != 0 {
		t.Errorf("logs = %d, want 0", len(store.logs))
	}
}

func TestPlaybackStart_ReplacesAndFinalizesPrevious(t *testing.T) {
	tr, store, _, clk := newTracker("lobby-1")
	ctx := context.Background()

	_ = tr.DeviceOnline(ctx, "c1", "lobby-1")
	_ = tr.PlaybackStart(ctx, "c1", models.PlaybackStart{MediaID: "m1", PlaylistID: "p1"})
	clk.Advance(3 * time.Second)
	_ = tr.PlaybackStart(ctx, "c1", models.PlaybackStart{MediaID: "m2", PlaylistID: "p1"})

	if len(store.logs) != 1 || store.logs[0].MediaID != "m1" || store.logs[0].Duration != 3 {
		t.Fatalf("logs = %+v", store.logs)
	}
	if store.logs[0].DeviceID != "lobby-1" {
		t.Errorf("DeviceID = %q, want bound device", store.logs[0].DeviceID)
	}
	inflight, ok := tr.InFlight("c1")
	if !ok || inflight.MediaID != "m2" {
		t.Errorf("InFlight() = %+v, %v", inflight, ok)
	}
}

func TestDisconnect_FinalizesPlaybackAndMarksOffline(t *testing.T) {
	tr, store, bus, clk := newTracker("lobby-1")
	ctx := context.Background()

	_ = tr.DeviceOnline(ctx, "c1", "lobby-1")
	_ = tr.PlaybackStart(ctx, "c1", models.PlaybackStart{DeviceID: "lobby-1", MediaID: "m1"})
	clk.Advance(2500 * time.Millisecond)

	if err := tr.Disconnect(ctx, "c1"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if len(store.logs) != 1 || store.logs[0].Duration != 2 {
		t.Errorf("logs = %+v", store.logs)
	}
	if store.status["lobby-1"] != models.DeviceOffline {
		t.Errorf("status = %s, want offline", store.status["lobby-1"])
	}
	if !store.lastSeen["lobby-1"].Equal(t0) {
		t.Errorf("lastSeen moved on disconnect: %v", store.lastSeen["lobby-1"])
	}
	want := []models.ActivityType{models.ActivityDeviceOnline, models.ActivityDeviceOffline}
	got := bus.activities()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("activities = %v, want %v", got, want)
	}
	if tr.Connected("lobby-1") {
		t.Error("Connected() = true after last disconnect")
	}
}

func TestDisconnect_WithoutPlaybackStillGoesOffline(t *testing.T) {
	tr, store, bus, _ := newTracker("lobby-1")
	ctx := context.Background()

	_ = tr.DeviceOnline(ctx, "c1", "lobby-1")
	if err := tr.Disconnect(ctx, "c1"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if len(store.logs) != 0 {
		t.Errorf("logs = %d, want 0", len(store.logs))
	}
	if store.status["lobby-1"] != models.DeviceOffline {
		t.Errorf("status = %s, want offline", store.status["lobby-1"])
	}
	if got := bus.activities(); len(got) != 2 || got[1] != models.ActivityDeviceOffline {
		t.Errorf("activities = %v", got)
	}
}

func TestDisconnect_OtherConnectionKeepsDeviceOnline(t *testing.T) {
	tr, store, bus, _ := newTracker("lobby-1")
	ctx := context.Background()

	_ = tr.DeviceOnline(ctx, "c1", "lobby-1")
	_ = tr.DeviceOnline(ctx, "c2", "lobby-1")
	if err := tr.Disconnect(ctx, "c1"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if store.status["lobby-1"] != models.DeviceOnline {
		t.Errorf("status = %s, want online", store.status["lobby-1"])
	}
	for _, a := range bus.activities() {
		if a == models.ActivityDeviceOffline {
			t.Error("DEVICE_OFFLINE emitted while another connection is bound")
		}
	}
	if !tr.Connected("lobby-1") {
		t.Error("Connected() = false with c2 still bound")
	}
}

func TestDisconnect_UnknownConnection(t *testing.T) {
	tr, _, bus, _ := newTracker()
	if err := tr.Disconnect(context.Background(), "dashboard"); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	if len(bus.sent) != 0 {
		t.Errorf("published %d notifications", len(bus.sent))
	}
}

func TestDisconnect_PlaybackLogFailureStillMarksOffline(t *testing.T) {
	tr, store, _, _ := newTracker("lobby-1")
	ctx := context.Background()
	_ = tr.DeviceOnline(ctx, "c1", "lobby-1")
	_ = tr.PlaybackStart(ctx, "c1", models.PlaybackStart{MediaID: "m1"})
	store.logErr = errors.New("disk full")

	err := tr.Disconnect(ctx, "c1")
	if err == nil {
		t.Error("Disconnect() expected error from playback log")
	}
	if store.status["lobby-1"] != models.DeviceOffline {
		t.Errorf("status = %s, want offline", store.status["lobby-1"])
	}
}

func TestOnMessage_Routing(t *testing.T) {
	tr, store, _, clk := newTracker("lobby-1")
	ctx := context.Background()

	tr.OnMessage(ctx, "c1", models.PushDeviceOnline, json.RawMessage(`{"deviceId":"lobby-1"}`))
	tr.OnMessage(ctx, "c1", models.PushPlaybackStart, json.RawMessage(`{"mediaId":"m1","playlistId":"p1"}`))
	clk.Advance(4 * time.Second)
	tr.OnMessage(ctx, "c1", models.PushPlaybackEnd, nil)
	tr.OnMessage(ctx, "c1", models.PushPlaybackStart, json.RawMessage(`not json`))
	tr.OnMessage(ctx, "c1", "SOMETHING_ELSE", nil)

	if store.status["lobby-1"] != models.DeviceOnline {
		t.Errorf("status = %s", store.status["lobby-1"])
	}
	if len(store.logs) != 1 || store.logs[0].DeviceID != "lobby-1" || store.logs[0].Duration != 4 {
		t.Errorf("logs = %+v", store.logs)
	}

	tr.OnDisconnect(ctx, "c1")
	if store.status["lobby-1"] != models.DeviceOffline {
		t.Errorf("status after disconnect = %s", store.status["lobby-1"])
	}
}
