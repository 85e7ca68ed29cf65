// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/marquee/internal/activity"
	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/auth"
	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// Store is the persistence the registry needs. *database.DB implements it.
type Store interface {
	CreateDevice(ctx context.Context, d *models.Device) error
	GetDevice(ctx context.Context, deviceID string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]models.Device, error)
	DeleteDevice(ctx context.Context, deviceID string) error
	TouchDevice(ctx context.Context, deviceID string, at time.Time) error
	MarkStaleDevices(ctx context.Context, cutoff time.Time) ([]models.DeviceStatusChange, error)
	CountDevices(ctx context.Context) (active, total int, err error)

	AddAssignments(ctx context.Context, deviceID string, playlistIDs []string) error
	RemoveAssignment(ctx context.Context, deviceID, playlistID string) error
	AssignedPlaylists(ctx context.Context, deviceID string) ([]models.Playlist, error)

	CreatePlaylist(ctx context.Context, p *models.Playlist) error
	UpdatePlaylist(ctx context.Context, p *models.Playlist) error
	DeletePlaylist(ctx context.Context, id string) ([]string, error)
	GetPlaylist(ctx context.Context, id string) (*models.Playlist, error)
	ListPlaylists(ctx context.Context) ([]models.Playlist, error)
	MissingPlaylists(ctx context.Context, ids []string) ([]string, error)
	MissingMedia(ctx context.Context, ids []string) ([]string, error)

	CreateMedia(ctx context.Context, m *models.Media) error
	ListMedia(ctx context.Context) ([]models.Media, error)
	CountMedia(ctx context.Context) (int, error)

	ListPlaybackLogs(ctx context.Context, f database.PlaybackLogFilter) ([]models.PlaybackLog, error)
}

// Config holds registry settings taken from the server configuration.
type Config struct {
	// PublicURL is the externally reachable base of the server, without a
	// trailing slash. Registration credentials and media URLs build on it.
	PublicURL      string
	UploadDir      string
	MaxUploadBytes int64

	// Location is the zone used to resolve active playlists for the overview.
	Location      *time.Location
	ActivityLimit int
	StaleAfter    time.Duration
}

// APIPrefix is appended to PublicURL in registration credentials.
const APIPrefix = "/api/v1"

// Service implements registry operations on top of a Store.
type Service struct {
	store      Store
	activities activity.Store
	registrar  *auth.Registrar
	bus        fanout.Publisher
	clock      clock.Clock
	cfg        Config
}

// NewService creates a Service. A nil clock uses the wall clock.
func NewService(store Store, activities activity.Store, registrar *auth.Registrar, bus fanout.Publisher, clk clock.Clock, cfg Config) *Service {
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.ActivityLimit <= 0 {
		cfg.ActivityLimit = activity.DefaultLimit
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 60 * time.Second
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	return &Service{
		store:      store,
		activities: activities,
		registrar:  registrar,
		bus:        bus,
		clock:      clk,
		cfg:        cfg,
	}
}

// publish hands n to the fan-out bus. It is called only after the primary
// mutation committed.
func (s *Service) publish(ctx context.Context, n *fanout.Notification) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(ctx, n)
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

// IssueRegistrationToken mints a registration credential on behalf of operator.
func (s *Service) IssueRegistrationToken(_ context.Context, operator string) (*models.RegistrationCredential, error) {
	token, expiresAt, err := s.registrar.Issue(operator)
	if err != nil {
		return nil, fmt.Errorf("failed to issue registration token: %w", err)
	}
	return &models.RegistrationCredential{
		APIURL:    s.cfg.PublicURL + APIPrefix,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Register creates a device using a registration token.
//
// The token is verified before the device id is looked up so callers
// without a credential learn nothing about existing ids. It is consumed only
// once the id is known to be free, so a conflicting attempt does not burn it.
func (s *Service) Register(ctx context.Context, token string, req RegisterRequest) (*models.Device, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.registrar.Verify(token); err != nil {
		return nil, err
	}

	_, err := s.store.GetDevice(ctx, req.DeviceID)
	switch {
	case err == nil:
		return nil, apperr.E(apperr.ErrConflict, "device %q is already registered", req.DeviceID)
	case !errors.Is(err, apperr.ErrNotFound):
		return nil, err
	}

	if _, err := s.registrar.Redeem(ctx, token, req.DeviceID); err != nil {
		return nil, err
	}

	now := s.now()
	dev := &models.Device{
		DeviceID:     req.DeviceID,
		Name:         req.Name,
		Location:     req.Location,
		Status:       models.DeviceOnline,
		LastSeen:     now,
		RegisteredAt: now,
		Playlists:    []string{},
	}
	if err := s.store.CreateDevice(ctx, dev); err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Info().Str("device_id", dev.DeviceID).Str("name", dev.Name).Msg("Device registered")
	metrics.DeviceStatusTransitions.WithLabelValues(string(models.DeviceOnline)).Inc()
	s.publish(ctx, fanout.WithActivity(models.ActivityDeviceRegistered, dev.DeviceID,
		fmt.Sprintf("Device registered: %s", dev.Name),
		fanout.AnalyticsUpdated()))
	return dev, nil
}

// Heartbeat records that deviceID is alive.
func (s *Service) Heartbeat(ctx context.Context, deviceID string) error {
	return s.store.TouchDevice(ctx, deviceID, s.now())
}

// GetDevice returns one device with its assignment list.
func (s *Service) GetDevice(ctx context.Context, deviceID string) (*models.Device, error) {
	return s.store.GetDevice(ctx, deviceID)
}

// ListDevices returns all devices, newest registration first.
func (s *Service) ListDevices(ctx context.Context) ([]models.Device, error) {
	return s.store.ListDevices(ctx)
}

// DeleteDevice removes a device and its assignments.
func (s *Service) DeleteDevice(ctx context.Context, deviceID string) error {
	dev, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteDevice(ctx, deviceID); err != nil {
		return err
	}
	s.publish(ctx, fanout.WithActivity(models.ActivityDeviceDeleted, deviceID,
		fmt.Sprintf("Device deleted: %s", dev.Name),
		fanout.AnalyticsUpdated()))
	return nil
}

// AssignPlaylists merges ids into the device's assignments. Ids already
// assigned are left in place.
func (s *Service) AssignPlaylists(ctx context.Context, deviceID string, req AssignRequest) (*models.Device, error) {
	if err := validate(&req); err != nil {
		return nil, err
	}
	ids := dedupe(req.PlaylistIDs)

	if _, err := s.store.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	missing, err := s.store.MissingPlaylists(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(missing) > 0 {
		return nil, apperr.E(apperr.ErrNotFound, "playlists not found: %s", strings.Join(missing, ", "))
	}

	if err := s.store.AddAssignments(ctx, deviceID, ids); err != nil {
		return nil, err
	}
	dev, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, fanout.WithActivity(models.ActivityPlaylistAssigned, deviceID,
		fmt.Sprintf("%d playlist(s) assigned to %s", len(ids), dev.Name),
		fanout.PlaylistUpdated(deviceID),
		fanout.AnalyticsUpdated()))
	return dev, nil
}

// RemovePlaylist unassigns playlistID from the device. Removing a playlist
// that is not assigned succeeds without change.
func (s *Service) RemovePlaylist(ctx context.Context, deviceID, playlistID string) error {
	dev, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}
	if !dev.HasPlaylist(playlistID) {
		return nil
	}
	if err := s.store.RemoveAssignment(ctx, deviceID, playlistID); err != nil {
		return err
	}
	s.publish(ctx, fanout.WithActivity(models.ActivityPlaylistRemoved, deviceID,
		fmt.Sprintf("Playlist removed from %s", dev.Name),
		fanout.PlaylistUpdated(deviceID)))
	return nil
}

// AssignedPlaylists returns the device's playlists with items and media expanded.
func (s *Service) AssignedPlaylists(ctx context.Context, deviceID string) ([]models.Playlist, error) {
	return s.store.AssignedPlaylists(ctx, deviceID)
}

// dedupe returns ids without repeats, keeping first occurrence order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
