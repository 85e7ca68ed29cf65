// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/models"
)

// CreatePlaylist stores a new playlist. Every referenced media id must exist.
func (s *Service) CreatePlaylist(ctx context.Context, req PlaylistRequest) (*models.Playlist, error) {
	if err := s.checkPlaylist(ctx, &req); err != nil {
		return nil, err
	}
	p := &models.Playlist{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Items:       req.items(),
		CreatedAt:   s.now(),
	}
	if err := s.store.CreatePlaylist(ctx, p); err != nil {
		return nil, err
	}
	logging.Ctx(ctx).Info().Str("playlist_id", p.ID).Str("name", p.Name).Msg("Playlist created")
	s.publish(ctx, fanout.PushOnly(fanout.AnalyticsUpdated()))
	return s.store.GetPlaylist(ctx, p.ID)
}

// UpdatePlaylist replaces a playlist's fields and items. Devices holding the
// playlist are told to refresh.
func (s *Service) UpdatePlaylist(ctx context.Context, id string, req PlaylistRequest) (*models.Playlist, error) {
	if err := s.checkPlaylist(ctx, &req); err != nil {
		return nil, err
	}
	p := &models.Playlist{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Items:       req.items(),
	}
	if err := s.store.UpdatePlaylist(ctx, p); err != nil {
		return nil, err
	}

	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("playlist_id", id).Msg("Failed to list devices for playlist update")
	}
	var affected []string
	for i := range devices {
		if devices[i].HasPlaylist(id) {
			affected = append(affected, devices[i].DeviceID)
		}
	}
	s.publish(ctx, fanout.PushOnly(refreshFrames(affected)...))
	return s.store.GetPlaylist(ctx, id)
}

// DeletePlaylist removes a playlist and its assignments.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	affected, err := s.store.DeletePlaylist(ctx, id)
	if err != nil {
		return err
	}
	logging.Ctx(ctx).Info().Str("playlist_id", id).Int("devices", len(affected)).Msg("Playlist deleted")
	s.publish(ctx, fanout.PushOnly(refreshFrames(affected)...))
	return nil
}

// GetPlaylist returns one expanded playlist.
func (s *Service) GetPlaylist(ctx context.Context, id string) (*models.Playlist, error) {
	return s.store.GetPlaylist(ctx, id)
}

// ListPlaylists returns every playlist expanded, newest first.
func (s *Service) ListPlaylists(ctx context.Context) ([]models.Playlist, error) {
	return s.store.ListPlaylists(ctx)
}

func (s *Service) checkPlaylist(ctx context.Context, req *PlaylistRequest) error {
	if err := validate(req); err != nil {
		return err
	}
	missing, err := s.store.MissingMedia(ctx, req.mediaIDs())
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return apperr.E(apperr.ErrNotFound, "media not found: %s", strings.Join(missing, ", "))
	}
	return nil
}

// refreshFrames builds a playlist-updated frame per device followed by
// analytics-updated.
func refreshFrames(deviceIDs []string) []fanout.Frame {
	frames := make([]fanout.Frame, 0, len(deviceIDs)+1)
	for _, id := range deviceIDs {
		frames = append(frames, fanout.PlaylistUpdated(id))
	}
	return append(frames, fanout.AnalyticsUpdated())
}
