// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/devicestore"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeRegistry serves a mutable assignment list.
type fakeRegistry struct {
	mu           sync.Mutex
	playlists    []models.Playlist
	err          error
	heartbeatErr error
	heartbeats   int
	fetches      int
}

func (r *fakeRegistry) set(playlists []models.Playlist, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playlists, r.err = playlists, err
}

func (r *fakeRegistry) Heartbeat(context.Context, string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heartbeats++
	return r.heartbeatErr
}

func (r *fakeRegistry) AssignedPlaylists(context.Context, string) ([]models.Playlist, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetches++
	if r.err != nil {
		return nil, r.err
	}
	return r.playlists, nil
}

func (r *fakeRegistry) heartbeatCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.heartbeats
}

// recordingNotifier records playback events as "start:<id>" / "end:<id>".
type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	starts []models.PlaybackStart
}

func (n *recordingNotifier) PlaybackStart(_ context.Context, st models.PlaybackStart) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "start:"+st.MediaID)
	n.starts = append(n.starts, st)
	return nil
}

func (n *recordingNotifier) PlaybackEnd(_ context.Context, e models.PlaybackEnd) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, "end:"+e.MediaID)
	return nil
}

func (n *recordingNotifier) take() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.events
	n.events = nil
	return out
}

// fakeCache treats ids in cached as present; Ensure caches anything with a URL.
type fakeCache struct {
	mu      sync.Mutex
	cached  map[string]string
	ensured []string
	purged  bool
}

func newFakeCache(ids ...string) *fakeCache {
	c := &fakeCache{cached: make(map[string]string)}
	for _, id := range ids {
		c.cached[id] = filepath.Join("/cache", "media_"+id+".jpg")
	}
	return c
}

func (c *fakeCache) Ensure(_ context.Context, m *models.Media) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensured = append(c.ensured, m.ID)
	if m.URL == "" {
		return "", apperr.E(apperr.ErrPartialFetch, "no url")
	}
	p := filepath.Join("/cache", "media_"+m.ID+"."+m.Extension())
	c.cached[m.ID] = p
	return p, nil
}

func (c *fakeCache) RebuildIndex(items []models.PlaylistItem) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string)
	for _, it := range items {
		if it.Media == nil {
			continue
		}
		if p, ok := c.cached[it.Media.ID]; ok {
			out[it.Media.ID] = p
		}
	}
	return out
}

func (c *fakeCache) Purge() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = make(map[string]string)
	c.purged = true
	return nil
}

func image(id string, seconds int) models.PlaylistItem {
	return models.PlaylistItem{
		MediaID:  id,
		Duration: seconds,
		Media:    &models.Media{ID: id, OriginalName: id + ".jpg", Type: models.MediaImage, URL: "http://registry.test/uploads/" + id + ".jpg"},
	}
}

func video(id string) models.PlaylistItem {
	return models.PlaylistItem{
		MediaID: id,
		Media:   &models.Media{ID: id, OriginalName: id + ".mp4", Type: models.MediaVideo, URL: "http://registry.test/uploads/" + id + ".mp4"},
	}
}

func missing(id string) models.PlaylistItem {
	return models.PlaylistItem{MediaID: id, Duration: 5}
}

func playlist(id, start, end string, items ...models.PlaylistItem) models.Playlist {
	for i := range items {
		items[i].Order = i
	}
	return models.Playlist{ID: id, Name: "Playlist " + id, StartTime: start, EndTime: end, Items: items}
}

type harness struct {
	s     *Session
	clk   *clock.Fake
	reg   *fakeRegistry
	notes *recordingNotifier
	store *devicestore.Store
	cache *fakeCache
}

// newHarness builds a session whose stored snapshot and registry both hold
// playlists.
func newHarness(t *testing.T, playlists []models.Playlist, cache *fakeCache) *harness {
	t.Helper()
	store, err := devicestore.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if playlists != nil {
		if err := store.SaveSnapshot(&devicestore.Snapshot{Playlists: playlists, FetchedAt: t0.Add(-time.Hour)}); err != nil {
			t.Fatal(err)
		}
	}
	if cache == nil {
		cache = newFakeCache()
	}

	h := &harness{
		clk:   clock.NewFake(t0),
		reg:   &fakeRegistry{playlists: playlists},
		notes: &recordingNotifier{},
		store: store,
		cache: cache,
	}
	cfg := DefaultConfig()
	cfg.DeviceID = "lobby-1"
	cfg.DeviceName = "Lobby"
	cfg.Location = time.UTC
	h.s = New(cfg, h.clk, h.reg, h.notes, store, cache)
	t.Cleanup(func() {
		h.s.Stop()
		h.s.fetches.Wait()
	})
	return h
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	h.s.Start(context.Background())
	h.s.fetches.Wait()
}

func assertEvents(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(want) == 0 {
		want = nil
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func nowPlaying(t *testing.T, s *Session) string {
	t.Helper()
	st := s.Status()
	if st.NowPlaying == nil {
		return ""
	}
	return st.NowPlaying.MediaID
}

func TestPlayback_ImagesAdvanceAndWrap(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5), image("b", 5))
	h := newHarness(t, []models.Playlist{p}, newFakeCache("a", "b"))
	h.start(t)

	if got := nowPlaying(t, h.s); got != "a" {
		t.Fatalf("first item = %q, want a", got)
	}
	if h.s.State() != StatePlaying {
		t.Errorf("State() = %q, want playing", h.s.State())
	}
	assertEvents(t, h.notes.take(), "start:a")

	h.clk.Advance(5 * time.Second)
	if got := nowPlaying(t, h.s); got != "b" {
		t.Fatalf("after 5s item = %q, want b", got)
	}
	assertEvents(t, h.notes.take(), "end:a", "start:b")

	h.clk.Advance(5 * time.Second)
	if got := nowPlaying(t, h.s); got != "a" {
		t.Fatalf("after 10s item = %q, want a", got)
	}
	assertEvents(t, h.notes.take(), "end:b", "start:a")
}

func TestPlayback_StartEventPayload(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	h.notes.mu.Lock()
	defer h.notes.mu.Unlock()
	if len(h.notes.starts) != 1 {
		t.Fatalf("starts = %d, want 1", len(h.notes.starts))
	}
	want := models.PlaybackStart{
		DeviceID: "lobby-1", DeviceName: "Lobby", MediaID: "a", MediaName: "a.jpg", PlaylistID: "p1", StartedAt: t0,
	}
	if got := h.notes.starts[0]; got != want {
		t.Errorf("PLAYBACK_START = %+v, want %+v", got, want)
	}
}

func TestPlayback_DefaultImageDuration(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 0), image("b", 0))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	h.clk.Advance(9 * time.Second)
	if got := nowPlaying(t, h.s); got != "a" {
		t.Errorf("after 9s item = %q, want a", got)
	}
	h.clk.Advance(time.Second)
	if got := nowPlaying(t, h.s); got != "b" {
		t.Errorf("after 10s item = %q, want b", got)
	}
}

func TestPlayback_VideoAdvancesOnlyOnEnd(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", video("v"), image("a", 5))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)
	h.notes.take()

	h.clk.Advance(5 * time.Minute)
	if got := nowPlaying(t, h.s); got != "v" {
		t.Fatalf("stalled video replaced by %q", got)
	}
	assertEvents(t, h.notes.take())

	if err := h.s.VideoEnded("a"); !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("VideoEnded(a) error = %v, want ErrConflict", err)
	}
	if err := h.s.VideoEnded("v"); err != nil {
		t.Fatalf("VideoEnded(v) error = %v", err)
	}
	if got := nowPlaying(t, h.s); got != "a" {
		t.Errorf("after video end item = %q, want a", got)
	}
	assertEvents(t, h.notes.take(), "end:v", "start:a")
}

func TestPlayback_SkipsItemsWithoutMedia(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", missing("gone"), image("a", 5))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	if got := nowPlaying(t, h.s); got != "a" {
		t.Fatalf("first item = %q, want a", got)
	}
	h.clk.Advance(5 * time.Second)
	if got := nowPlaying(t, h.s); got != "a" {
		t.Errorf("after wrap item = %q, want a", got)
	}
	assertEvents(t, h.notes.take(), "start:a", "end:a", "start:a")
}

func TestPlayback_AllItemsInvalidStaysReady(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", missing("x"), missing("y"))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	if h.s.State() != StateReady {
		t.Fatalf("State() = %q, want ready", h.s.State())
	}
	h.clk.Advance(time.Minute)
	if h.s.State() != StateReady {
		t.Errorf("State() after 1m = %q, want ready", h.s.State())
	}
	assertEvents(t, h.notes.take())
	if st := h.s.Status(); st.PlaylistID != "p1" || st.NowPlaying != nil {
		t.Errorf("Status() = %+v", st)
	}
	// Only the three periodic timers remain armed.
	if n := h.clk.Pending(); n != 3 {
		t.Errorf("pending timers = %d, want 3", n)
	}
}

func TestStart_WithoutSnapshotIsReady(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.reg.set(nil, apperr.E(apperr.ErrNetworkUnavailable, "down"))
	h.start(t)

	st := h.s.Status()
	if st.State != StateReady || st.PlaylistID != "" || st.SnapshotAt != nil {
		t.Errorf("Status() = %+v", st)
	}
}

func TestStart_OfflineUsesSnapshot(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5))
	h := newHarness(t, []models.Playlist{p}, newFakeCache("a"))
	h.reg.set(nil, apperr.E(apperr.ErrNetworkUnavailable, "down"))
	h.start(t)

	if got := nowPlaying(t, h.s); got != "a" {
		t.Fatalf("offline start item = %q, want a", got)
	}
	h.clk.Advance(time.Minute)
	if h.s.State() != StatePlaying {
		t.Errorf("State() = %q after failed refreshes", h.s.State())
	}
	snap, err := h.store.LoadSnapshot()
	if err != nil || snap == nil || len(snap.Playlists) != 1 {
		t.Errorf("snapshot after failed refresh = %+v, %v", snap, err)
	}
}

func TestStart_UnreadableSnapshotIsAbsent(t *testing.T) {
	store := &brokenStore{}
	s := New(Config{DeviceID: "lobby-1", Location: time.UTC}, clock.NewFake(t0), &fakeRegistry{}, &recordingNotifier{}, store, newFakeCache())
	s.Start(context.Background())
	defer s.Stop()
	if s.State() != StateReady {
		t.Errorf("State() = %q, want ready", s.State())
	}
}

type brokenStore struct{}

func (brokenStore) LoadSnapshot() (*devicestore.Snapshot, error) {
	return nil, errors.New("corrupt value")
}
func (brokenStore) SaveSnapshot(*devicestore.Snapshot) error { return nil }
func (brokenStore) Reset() error                             { return nil }

func TestRefresh_PersistsAndSwitches(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.start(t)

	p := playlist("p1", "08:00", "20:00", image("a", 5))
	h.reg.set([]models.Playlist{p}, nil)
	if err := h.s.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	h.s.fetches.Wait()

	if got := nowPlaying(t, h.s); got != "a" {
		t.Errorf("item after refresh = %q, want a", got)
	}
	snap, err := h.store.LoadSnapshot()
	if err != nil || snap == nil || len(snap.Playlists) != 1 || !snap.FetchedAt.Equal(t0) {
		t.Errorf("stored snapshot = %+v, %v", snap, err)
	}
}

func TestRefresh_RemovalStopsPlayback(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 60))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)
	h.notes.take()

	h.reg.set([]models.Playlist{}, nil)
	if err := h.s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := h.s.Status()
	if st.State != StateReady || st.PlaylistID != "" || st.NowPlaying != nil {
		t.Errorf("Status() after removal = %+v", st)
	}
	assertEvents(t, h.notes.take(), "end:a")
}

func TestRefresh_EditedPlaylistRestarts(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5), image("b", 5))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)
	h.clk.Advance(5 * time.Second)
	h.notes.take()

	edited := playlist("p1", "08:00", "20:00", image("c", 5), image("b", 5))
	h.reg.set([]models.Playlist{edited}, nil)
	if err := h.s.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	h.s.fetches.Wait()
	if got := nowPlaying(t, h.s); got != "c" {
		t.Errorf("item after edit = %q, want c", got)
	}
	assertEvents(t, h.notes.take(), "end:b", "start:c")
}

func TestReevaluate_WindowEnds(t *testing.T) {
	p := playlist("p1", "11:00", "12:01", image("a", 600))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)
	h.notes.take()

	h.clk.Advance(50 * time.Second)
	if h.s.State() != StatePlaying {
		t.Fatalf("State() at 12:00:50 = %q", h.s.State())
	}
	h.clk.Advance(10 * time.Second)
	if h.s.State() != StateReady || h.s.Status().PlaylistID != "" {
		t.Errorf("Status() at 12:01 = %+v", h.s.Status())
	}
	assertEvents(t, h.notes.take(), "end:a")
}

func TestReevaluate_LaterStartWins(t *testing.T) {
	p1 := playlist("p1", "08:00", "20:00", image("a", 600))
	p2 := playlist("p2", "12:01", "13:00", image("b", 600), image("c", 600))
	h := newHarness(t, []models.Playlist{p1, p2}, nil)
	h.start(t)
	if h.s.Status().PlaylistID != "p1" {
		t.Fatalf("initial playlist = %q", h.s.Status().PlaylistID)
	}

	h.clk.Advance(time.Minute)
	h.s.fetches.Wait()
	st := h.s.Status()
	if st.PlaylistID != "p2" || st.NowPlaying == nil || st.NowPlaying.MediaID != "b" || st.NowPlaying.Index != 0 {
		t.Errorf("Status() after 12:01 = %+v", st)
	}
}

func TestPlaylistUpdated_RefreshesImmediately(t *testing.T) {
	p1 := playlist("p1", "08:00", "20:00", image("a", 600))
	h := newHarness(t, []models.Playlist{p1}, nil)
	h.start(t)

	p2 := playlist("p2", "11:00", "13:00", image("b", 600))
	h.reg.set([]models.Playlist{p1, p2}, nil)
	h.s.OnPlaylistUpdated(context.Background())
	h.s.fetches.Wait()

	if got := h.s.Status().PlaylistID; got != "p2" {
		t.Errorf("playlist after push = %q, want p2", got)
	}
}

func TestPrefetch_CachesActiveMedia(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5), image("b", 5), missing("x"))
	cache := newFakeCache()
	h := newHarness(t, []models.Playlist{p}, cache)
	h.s.Start(context.Background())

	h.s.fetches.Wait()
	st := h.s.Status()
	if st.CachedItems != 2 {
		t.Errorf("CachedItems = %d, want 2", st.CachedItems)
	}
	if st.NowPlaying == nil || !st.NowPlaying.Cached || st.NowPlaying.Source != "/cache/media_a.jpg" {
		t.Errorf("NowPlaying = %+v", st.NowPlaying)
	}

	// Cached media is not fetched again on the next evaluation.
	h.clk.Advance(10 * time.Second)
	h.s.fetches.Wait()
	cache.mu.Lock()
	defer cache.mu.Unlock()
	if len(cache.ensured) != 2 {
		t.Errorf("Ensure calls = %v, want 2", cache.ensured)
	}
}

func TestPrefetch_RemoteFallback(t *testing.T) {
	item := image("a", 5)
	item.Media.URL = ""
	p := playlist("p1", "08:00", "20:00", item)
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	st := h.s.Status()
	if st.NowPlaying == nil || st.NowPlaying.Cached {
		t.Fatalf("NowPlaying = %+v, want uncached", st.NowPlaying)
	}
	if h.s.State() != StatePlaying {
		t.Errorf("State() = %q, want playing", h.s.State())
	}
}

func TestHeartbeat_Schedule(t *testing.T) {
	h := newHarness(t, nil, nil)
	h.reg.heartbeatErr = apperr.E(apperr.ErrNetworkUnavailable, "down")
	h.start(t)

	h.clk.Advance(4 * time.Second)
	if n := h.reg.heartbeatCount(); n != 0 {
		t.Errorf("heartbeats before 5s = %d", n)
	}
	h.clk.Advance(time.Second)
	if n := h.reg.heartbeatCount(); n != 1 {
		t.Errorf("heartbeats at 5s = %d, want 1", n)
	}
	h.clk.Advance(60 * time.Second)
	if n := h.reg.heartbeatCount(); n != 3 {
		t.Errorf("heartbeats at 65s = %d, want 3", n)
	}
}

func TestConnectivityDoesNotGatePlayback(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5), image("b", 5))
	h := newHarness(t, []models.Playlist{p}, nil)
	h.start(t)

	h.s.OnConnected(context.Background())
	if !h.s.Online() {
		t.Error("Online() = false after connect")
	}
	h.s.OnDisconnected(context.Background())
	if h.s.Online() {
		t.Error("Online() = true after disconnect")
	}
	h.clk.Advance(5 * time.Second)
	if got := nowPlaying(t, h.s); got != "b" {
		t.Errorf("offline playback item = %q, want b", got)
	}
}

func TestReset(t *testing.T) {
	p := playlist("p1", "08:00", "20:00", image("a", 5))
	cache := newFakeCache("a")
	h := newHarness(t, []models.Playlist{p}, cache)
	if err := h.store.SaveIdentity(&devicestore.Identity{DeviceID: "lobby-1"}); err != nil {
		t.Fatal(err)
	}
	h.start(t)

	called := false
	h.s.OnDeregistered(func() { called = true })
	if err := h.s.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	if h.s.State() != StateDeregistered || h.s.Status().NowPlaying != nil {
		t.Errorf("Status() after reset = %+v", h.s.Status())
	}
	if !called {
		t.Error("deregistration callback not invoked")
	}
	if !cache.purged {
		t.Error("cache not purged")
	}
	if snap, _ := h.store.LoadSnapshot(); snap != nil {
		t.Error("snapshot survived reset")
	}
	if id, _ := h.store.LoadIdentity(); id != nil {
		t.Error("identity survived reset")
	}
	if n := h.clk.Pending(); n != 0 {
		t.Errorf("pending timers after reset = %d", n)
	}
	if err := h.s.Refresh(context.Background()); err == nil {
		t.Error("Refresh() after reset should fail")
	}
}

func TestRunWithContext_StopsTimers(t *testing.T) {
	h := newHarness(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.s.RunWithContext(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for h.clk.Pending() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never started")
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext() = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("RunWithContext did not return")
	}
	if n := h.clk.Pending(); n != 0 {
		t.Errorf("pending timers = %d, want 0", n)
	}
}
