// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/schedule"
)

// RecentActivity returns the newest activity entries. A non-positive limit
// uses the configured default.
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = s.cfg.ActivityLimit
	}
	return s.activities.Recent(ctx, limit)
}

// Overview summarizes the fleet at the current time.
func (s *Service) Overview(ctx context.Context) (*models.Overview, error) {
	active, total, err := s.store.CountDevices(ctx)
	if err != nil {
		return nil, err
	}
	media, err := s.store.CountMedia(ctx)
	if err != nil {
		return nil, err
	}
	playlists, err := s.store.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	now := schedule.ClockOf(s.clock.Now().In(s.cfg.Location))

	metrics.DevicesOnline.Set(float64(active))
	return &models.Overview{
		Devices:         models.DeviceCounts{Active: active, Total: total},
		TotalMedia:      media,
		ActivePlaylists: schedule.CountActive(playlists, now),
	}, nil
}

// PlaybackLogs returns recorded playback intervals matching f.
func (s *Service) PlaybackLogs(ctx context.Context, f database.PlaybackLogFilter) ([]models.PlaybackLog, error) {
	return s.store.ListPlaybackLogs(ctx, f)
}

// SweepStale marks online devices whose last heartbeat is older than the
// stale threshold as offline, and announces each demotion.
func (s *Service) SweepStale(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.StaleAfter)
	changed, err := s.store.MarkStaleDevices(ctx, cutoff)
	metrics.RecordSweep(len(changed), err)
	if err != nil {
		return 0, fmt.Errorf("liveness sweep failed: %w", err)
	}
	for _, c := range changed {
		logging.Ctx(ctx).Info().Str("device_id", c.DeviceID).Time("last_seen", c.LastSeen).Msg("Device marked offline")
		s.publish(ctx, fanout.PushOnly(fanout.DeviceStatus(c), fanout.AnalyticsUpdated()))
	}
	return len(changed), nil
}
