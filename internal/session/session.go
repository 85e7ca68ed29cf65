// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/devicestore"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// State is the session's coarse state.
type State string

const (
	StateInitializing  State = "initializing"
	StateReady         State = "ready"
	StatePlaying       State = "playing"
	StateTransitioning State = "transitioning"
	StateDeregistered  State = "deregistered"
)

// Registry is the part of the registry API the session polls.
type Registry interface {
	Heartbeat(ctx context.Context, deviceID string) error
	AssignedPlaylists(ctx context.Context, deviceID string) ([]models.Playlist, error)
}

// Notifier carries playback events to the registry.
type Notifier interface {
	PlaybackStart(ctx context.Context, start models.PlaybackStart) error
	PlaybackEnd(ctx context.Context, end models.PlaybackEnd) error
}

// SnapshotStore persists the assignment snapshot. *devicestore.Store
// implements it.
type SnapshotStore interface {
	LoadSnapshot() (*devicestore.Snapshot, error)
	SaveSnapshot(snap *devicestore.Snapshot) error
	Reset() error
}

// MediaCache resolves media to local files. *mediacache.Cache implements it.
type MediaCache interface {
	Ensure(ctx context.Context, m *models.Media) (string, error)
	RebuildIndex(items []models.PlaylistItem) map[string]string
	Purge() error
}

// Config configures a Session.
type Config struct {
	DeviceID   string
	DeviceName string

	// Location is the zone playlist windows are evaluated in. Defaults to time.Local.
	Location *time.Location

	Reevaluate            time.Duration
	Refresh               time.Duration
	HeartbeatInitialDelay time.Duration
	Heartbeat             time.Duration
}

// DefaultConfig returns the standard player intervals.
func DefaultConfig() Config {
	return Config{
		Location:              time.Local,
		Reevaluate:            10 * time.Second,
		Refresh:               30 * time.Second,
		HeartbeatInitialDelay: 5 * time.Second,
		Heartbeat:             30 * time.Second,
	}
}

// Session is one device's playback runtime.
type Session struct {
	cfg      Config
	clk      clock.Clock
	registry Registry
	notifier Notifier
	store    SnapshotStore
	cache    MediaCache

	onDeregistered func()

	mu         sync.Mutex
	ctx        context.Context
	running    bool
	state      State
	online     bool
	playlists  []models.Playlist
	snapshotAt time.Time
	active     *models.Playlist
	items      []models.PlaylistItem
	index      int
	current    *models.PlaylistItem
	startedAt  time.Time
	local      map[string]string
	fetching   map[string]bool
	gen        uint64

	advanceTimer   clock.Timer
	reevalTimer    clock.Timer
	refreshTimer   clock.Timer
	heartbeatTimer clock.Timer

	fetches sync.WaitGroup
}

// New creates a Session. Zero intervals in cfg fall back to DefaultConfig.
// A nil clk uses the system clock.
func New(cfg Config, clk clock.Clock, registry Registry, notifier Notifier, store SnapshotStore, cache MediaCache) *Session {
	def := DefaultConfig()
	if cfg.Location == nil {
		cfg.Location = def.Location
	}
	if cfg.Reevaluate <= 0 {
		cfg.Reevaluate = def.Reevaluate
	}
	if cfg.Refresh <= 0 {
		cfg.Refresh = def.Refresh
	}
	if cfg.HeartbeatInitialDelay < 0 {
		cfg.HeartbeatInitialDelay = def.HeartbeatInitialDelay
	}
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = def.Heartbeat
	}
	if clk == nil {
		clk = clock.Real{}
	}
	s := &Session{
		cfg:      cfg,
		clk:      clk,
		registry: registry,
		notifier: notifier,
		store:    store,
		cache:    cache,
		ctx:      context.Background(),
		local:    make(map[string]string),
		fetching: make(map[string]bool),
	}
	s.setStateLocked(StateInitializing)
	return s
}

// OnDeregistered registers f to run after Reset completes.
func (s *Session) OnDeregistered(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDeregistered = f
}

// Start presents the offline-derived state and arms the timers. The first
// registry refresh runs in the background right after.
func (s *Session) Start(ctx context.Context) {
	snap := s.loadSnapshot(ctx)

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.ctx = ctx
	s.running = true
	if snap != nil {
		s.playlists = snap.Playlists
		s.snapshotAt = snap.FetchedAt
	}
	var out outbox
	s.evaluateLocked(&out)

	s.reevalTimer = s.clk.AfterFunc(s.cfg.Reevaluate, s.reevaluateTick)
	s.refreshTimer = s.clk.AfterFunc(0, s.refreshTick)
	s.heartbeatTimer = s.clk.AfterFunc(s.cfg.HeartbeatInitialDelay, s.heartbeatTick)
	state := s.state
	s.mu.Unlock()

	logging.Ctx(ctx).Info().Str("device_id", s.cfg.DeviceID).Str("state", string(state)).
		Int("playlists", len(snapshotPlaylists(snap))).Msg("Session started")
	s.emit(&out)
}

// Stop disarms every timer. Playback state is kept.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	s.stopTimersLocked()
}

// RunWithContext starts the session and blocks until ctx is canceled.
func (s *Session) RunWithContext(ctx context.Context) error {
	s.Start(ctx)
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

// Reset wipes the snapshot, identity, cache index and cached files and
// leaves the session Deregistered.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.running = false
	s.stopTimersLocked()
	s.gen++
	s.playlists = nil
	s.snapshotAt = time.Time{}
	s.active = nil
	s.items = nil
	s.index = 0
	s.current = nil
	s.local = make(map[string]string)
	s.setStateLocked(StateDeregistered)
	cb := s.onDeregistered
	s.mu.Unlock()

	var errs []error
	if err := s.store.Reset(); err != nil {
		errs = append(errs, err)
	}
	if err := s.cache.Purge(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Session reset incomplete")
		return err
	}

	logging.Ctx(ctx).Info().Str("device_id", s.cfg.DeviceID).Msg("Device deregistered")
	if cb != nil {
		cb()
	}
	return nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Online reports whether the push channel is connected.
func (s *Session) Online() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

func (s *Session) loadSnapshot(ctx context.Context) *devicestore.Snapshot {
	snap, err := s.store.LoadSnapshot()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Ignoring unreadable playlist snapshot")
		return nil
	}
	return snap
}

func (s *Session) setStateLocked(state State) {
	if s.state == state {
		return
	}
	s.state = state
	metrics.SetSessionState(string(state))
}

func (s *Session) stopTimersLocked() {
	for _, t := range []*clock.Timer{&s.advanceTimer, &s.reevalTimer, &s.refreshTimer, &s.heartbeatTimer} {
		if *t != nil {
			(*t).Stop()
			*t = nil
		}
	}
}

func snapshotPlaylists(snap *devicestore.Snapshot) []models.Playlist {
	if snap == nil {
		return nil
	}
	return snap.Playlists
}
