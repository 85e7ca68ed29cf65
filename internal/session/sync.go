// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package session

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/devicestore"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// Reevaluate re-resolves the active playlist against the snapshot and the
// current clock.
func (s *Session) Reevaluate() {
	s.mu.Lock()
	if s.state == StateDeregistered {
		s.mu.Unlock()
		return
	}
	var out outbox
	s.evaluateLocked(&out)
	s.mu.Unlock()
	s.emit(&out)
}

// Refresh replaces the snapshot with the registry's assignments and
// re-evaluates. On failure the existing snapshot stays authoritative.
func (s *Session) Refresh(ctx context.Context) error {
	if s.State() == StateDeregistered {
		return apperr.E(apperr.ErrInvalidCredential, "device is deregistered")
	}

	playlists, err := s.registry.AssignedPlaylists(ctx, s.cfg.DeviceID)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Playlist refresh skipped")
		return err
	}

	snap := &devicestore.Snapshot{Playlists: playlists, FetchedAt: s.clk.Now()}
	if err := s.store.SaveSnapshot(snap); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to persist playlist snapshot")
	}

	s.mu.Lock()
	if s.state == StateDeregistered {
		s.mu.Unlock()
		return nil
	}
	s.playlists = playlists
	s.snapshotAt = snap.FetchedAt
	var out outbox
	s.evaluateLocked(&out)
	s.mu.Unlock()

	logging.Ctx(ctx).Debug().Int("playlists", len(playlists)).Msg("Playlists refreshed")
	s.emit(&out)
	return nil
}

// Heartbeat reports liveness to the registry. Failures are logged only.
func (s *Session) Heartbeat(ctx context.Context) error {
	if err := s.registry.Heartbeat(ctx, s.cfg.DeviceID); err != nil {
		metrics.Heartbeats.WithLabelValues("failure").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("device_id", s.cfg.DeviceID).Msg("Heartbeat failed")
		return err
	}
	metrics.Heartbeats.WithLabelValues("success").Inc()
	return nil
}

func (s *Session) reevaluateTick() {
	s.Reevaluate()
	s.rearm(&s.reevalTimer, s.cfg.Reevaluate, s.reevaluateTick)
}

func (s *Session) refreshTick() {
	_ = s.Refresh(s.context())
	s.rearm(&s.refreshTimer, s.cfg.Refresh, s.refreshTick)
}

func (s *Session) heartbeatTick() {
	_ = s.Heartbeat(s.context())
	s.rearm(&s.heartbeatTimer, s.cfg.Heartbeat, s.heartbeatTick)
}

// rearm schedules the next run of a periodic timer unless the session has
// been stopped meanwhile.
func (s *Session) rearm(slot *clock.Timer, d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	*slot = s.clk.AfterFunc(d, f)
}

// OnConnected implements push.Handler.
func (s *Session) OnConnected(ctx context.Context) {
	s.setOnline(ctx, true)
}

// OnDisconnected implements push.Handler.
func (s *Session) OnDisconnected(ctx context.Context) {
	s.setOnline(ctx, false)
}

// OnPlaylistUpdated implements push.Handler by refreshing immediately.
func (s *Session) OnPlaylistUpdated(ctx context.Context) {
	logging.Ctx(ctx).Info().Str("device_id", s.cfg.DeviceID).Msg("Playlist update pushed")
	_ = s.Refresh(ctx)
}

func (s *Session) setOnline(ctx context.Context, online bool) {
	s.mu.Lock()
	changed := s.online != online
	s.online = online
	s.mu.Unlock()
	if changed {
		logging.Ctx(ctx).Info().Bool("online", online).Msg("Connectivity changed")
	}
}
