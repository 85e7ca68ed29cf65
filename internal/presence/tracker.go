// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package presence tracks which push connections belong to which device and
// what each connection is currently playing.
//
// Two tables are kept: the presence table maps a device id to the set of
// connections bound to it, and session presence records map a connection id
// to its in-flight playback. A record is created by PLAYBACK_START and turned
// into a durable playback log by PLAYBACK_END, by the next PLAYBACK_START on
// the same connection, or by disconnect.
package presence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// storeTimeout bounds each persistence call made from a connection goroutine.
const storeTimeout = 10 * time.Second

// Store is the persistence the tracker needs.
type Store interface {
	TouchDevice(ctx context.Context, deviceID string, at time.Time) error
	SetDeviceStatus(ctx context.Context, deviceID string, status models.DeviceStatus) error
	InsertPlaybackLog(ctx context.Context, l *models.PlaybackLog) error
}

// record is a session presence record.
type record struct {
	deviceID string
	playback *models.PlaybackStart
}

// Tracker owns the presence table and session presence records.
type Tracker struct {
	store Store
	bus   fanout.Publisher
	clock clock.Clock

	mu      sync.Mutex
	conns   map[string]*record
	devices map[string]map[string]struct{}
}

// NewTracker creates a Tracker.
func NewTracker(store Store, bus fanout.Publisher, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Tracker{
		store:   store,
		bus:     bus,
		clock:   clk,
		conns:   make(map[string]*record),
		devices: make(map[string]map[string]struct{}),
	}
}

// DeviceOnline binds connID to deviceID and marks the device online.
// Unknown devices are logged and otherwise ignored.
func (t *Tracker) DeviceOnline(ctx context.Context, connID, deviceID string) error {
	if deviceID == "" {
		return apperr.E(apperr.ErrValidation, "deviceId is required")
	}
	now := t.clock.Now().UTC()

	t.mu.Lock()
	rec := t.recordLocked(connID)
	if rec.deviceID != "" && rec.deviceID != deviceID {
		t.unbindLocked(connID, rec.deviceID)
	}
	rec.deviceID = deviceID
	if t.devices[deviceID] == nil {
		t.devices[deviceID] = make(map[string]struct{})
	}
	t.devices[deviceID][connID] = struct{}{}
	t.mu.Unlock()

	if err := t.store.TouchDevice(ctx, deviceID, now); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			logging.Ctx(ctx).Warn().Str("device_id", deviceID).Str("conn_id", connID).
				Msg("DEVICE_ONLINE from unregistered device")
			return nil
		}
		return fmt.Errorf("mark device online: %w", err)
	}

	metrics.DeviceStatusTransitions.WithLabelValues(string(models.DeviceOnline)).Inc()
	logging.Ctx(ctx).Info().Str("device_id", deviceID).Str("conn_id", connID).Msg("Device online")

	t.bus.Publish(ctx, fanout.WithActivity(models.ActivityDeviceOnline, deviceID,
		fmt.Sprintf("Device %s came online", deviceID),
		fanout.DeviceStatus(models.DeviceStatusChange{DeviceID: deviceID, Status: models.DeviceOnline, LastSeen: now}),
		fanout.AnalyticsUpdated()))
	return nil
}

// PlaybackStart stores the in-flight playback for connID. A playback already
// in flight on the connection is finalized first. Timestamps come from the
// registry clock.
func (t *Tracker) PlaybackStart(ctx context.Context, connID string, start models.PlaybackStart) error {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	rec := t.recordLocked(connID)
	previous := rec.playback
	if start.DeviceID == "" {
		start.DeviceID = rec.deviceID
	}
	start.StartedAt = now
	rec.playback = &start
	t.mu.Unlock()

	if previous != nil {
		return t.finalize(ctx, previous, now)
	}
	return nil
}

// PlaybackEnd finalizes the in-flight playback on connID. Without one it is a
// no-op.
func (t *Tracker) PlaybackEnd(ctx context.Context, connID string) error {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	var playback *models.PlaybackStart
	if rec, ok := t.conns[connID]; ok {
		playback = rec.playback
		rec.playback = nil
	}
	t.mu.Unlock()

	if playback == nil {
		return nil
	}
	return t.finalize(ctx, playback, now)
}

// Disconnect finalizes any in-flight playback and, when connID was the last
// connection of its device, marks the device offline.
func (t *Tracker) Disconnect(ctx context.Context, connID string) error {
	now := t.clock.Now().UTC()

	t.mu.Lock()
	rec, ok := t.conns[connID]
	if !ok {
		t.mu.Unlock()
		return nil
	}
	delete(t.conns, connID)
	deviceID := rec.deviceID
	lastConn := false
	if deviceID != "" {
		lastConn = t.unbindLocked(connID, deviceID)
	}
	playback := rec.playback
	t.mu.Unlock()

	var errs []error
	if playback != nil {
		errs = append(errs, t.finalize(ctx, playback, now))
	}
	if lastConn {
		errs = append(errs, t.markOffline(ctx, deviceID, now))
	}
	return errors.Join(errs...)
}

func (t *Tracker) markOffline(ctx context.Context, deviceID string, now time.Time) error {
	if err := t.store.SetDeviceStatus(ctx, deviceID, models.DeviceOffline); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("mark device offline: %w", err)
	}

	metrics.DeviceStatusTransitions.WithLabelValues(string(models.DeviceOffline)).Inc()
	logging.Ctx(ctx).Info().Str("device_id", deviceID).Msg("Device offline")

	t.bus.Publish(ctx, fanout.WithActivity(models.ActivityDeviceOffline, deviceID,
		fmt.Sprintf("Device %s went offline", deviceID),
		fanout.DeviceStatus(models.DeviceStatusChange{DeviceID: deviceID, Status: models.DeviceOffline, LastSeen: now}),
		fanout.AnalyticsUpdated()))
	return nil
}

// finalize turns a playback descriptor into a durable playback log.
func (t *Tracker) finalize(ctx context.Context, p *models.PlaybackStart, end time.Time) error {
	if p.DeviceID == "" {
		logging.Ctx(ctx).Debug().Str("media_id", p.MediaID).Msg("Dropping playback without device")
		return nil
	}
	entry := &models.PlaybackLog{
		DeviceID:   p.DeviceID,
		DeviceName: p.DeviceName,
		MediaID:    p.MediaID,
		MediaName:  p.MediaName,
		PlaylistID: p.PlaylistID,
		StartedAt:  p.StartedAt,
		EndedAt:    end,
		Duration:   models.PlaybackSeconds(p.StartedAt, end),
	}
	if err := t.store.InsertPlaybackLog(ctx, entry); err != nil {
		return fmt.Errorf("record playback: %w", err)
	}
	return nil
}

// recordLocked returns the record for connID, creating it. Caller holds t.mu.
func (t *Tracker) recordLocked(connID string) *record {
	rec, ok := t.conns[connID]
	if !ok {
		rec = &record{}
		t.conns[connID] = rec
	}
	return rec
}

// unbindLocked removes connID from deviceID's connection set and reports
// whether it was the last one. Caller holds t.mu.
func (t *Tracker) unbindLocked(connID, deviceID string) bool {
	set := t.devices[deviceID]
	delete(set, connID)
	if len(set) == 0 {
		delete(t.devices, deviceID)
		return true
	}
	return false
}

// Connected reports whether deviceID has at least one bound connection.
func (t *Tracker) Connected(deviceID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.devices[deviceID]) > 0
}

// InFlight returns the playback in flight on connID, if any.
func (t *Tracker) InFlight(connID string) (models.PlaybackStart, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if rec, ok := t.conns[connID]; ok && rec.playback != nil {
		return *rec.playback, true
	}
	return models.PlaybackStart{}, false
}

// OnMessage routes a device frame from the push channel.
func (t *Tracker) OnMessage(ctx context.Context, connID, msgType string, data json.RawMessage) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	var err error
	switch msgType {
	case models.PushDeviceOnline:
		var msg models.DeviceOnlineMessage
		if err = decode(data, &msg); err == nil {
			err = t.DeviceOnline(ctx, connID, msg.DeviceID)
		}
	case models.PushPlaybackStart:
		var msg models.PlaybackStart
		if err = decode(data, &msg); err == nil {
			err = t.PlaybackStart(ctx, connID, msg)
		}
	case models.PushPlaybackEnd:
		err = t.PlaybackEnd(ctx, connID)
	default:
		logging.Ctx(ctx).Debug().Str("type", msgType).Str("conn_id", connID).Msg("Ignoring unknown push frame")
		return
	}
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("type", msgType).Str("conn_id", connID).Msg("Failed to handle push frame")
	}
}

// OnDisconnect handles connection teardown from the push channel.
func (t *Tracker) OnDisconnect(ctx context.Context, connID string) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := t.Disconnect(ctx, connID); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("conn_id", connID).Msg("Failed to handle disconnect")
	}
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperr.E(apperr.ErrValidation, "frame has no data")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Wrap(apperr.ErrValidation, err, "malformed frame data")
	}
	return nil
}
