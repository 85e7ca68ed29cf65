// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package session

import (
	"context"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
	"github.com/tomtom215/marquee/internal/schedule"
)

// outbox collects work decided under the lock and performed after it is
// released.
type outbox struct {
	events  []event
	fetches []*models.Media
}

// event is one playback notification; exactly one field is set.
type event struct {
	start *models.PlaybackStart
	end   *models.PlaybackEnd
}

func (o *outbox) end(e models.PlaybackEnd) {
	o.events = append(o.events, event{end: &e})
}

func (o *outbox) start(st models.PlaybackStart) {
	o.events = append(o.events, event{start: &st})
}

// emit sends queued playback events in order and starts queued fetches.
func (s *Session) emit(o *outbox) {
	ctx := s.context()
	for _, ev := range o.events {
		var err error
		if ev.start != nil {
			err = s.notifier.PlaybackStart(ctx, *ev.start)
		} else {
			err = s.notifier.PlaybackEnd(ctx, *ev.end)
		}
		if err != nil {
			logging.Ctx(ctx).Debug().Err(err).Msg("Playback event not delivered")
		}
	}
	for _, m := range o.fetches {
		s.fetches.Add(1)
		go s.prefetch(ctx, m)
	}
}

func (s *Session) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

// evaluateLocked re-resolves the active playlist against the snapshot and
// the clock and applies the result.
func (s *Session) evaluateLocked(out *outbox) {
	now := s.clk.Now().In(s.cfg.Location)
	next, ok := schedule.ResolveActive(s.playlists, schedule.ClockOf(now))

	switch {
	case !ok:
		if s.active != nil {
			logging.Info().Str("playlist_id", s.active.ID).Msg("No active playlist, stopping playback")
		}
		s.stopPlaybackLocked(out)
		s.active = nil
		s.items = nil
		s.local = make(map[string]string)
		s.setStateLocked(StateReady)
		return

	case s.active == nil || s.active.ID != next.ID || !sameItems(s.active.Items, next.Items):
		logging.Info().Str("playlist_id", next.ID).Str("name", next.Name).Msg("Switching playlist")
		s.stopPlaybackLocked(out)
		p := *next
		s.active = &p
		s.items = p.SortedItems()
		s.local = s.cache.RebuildIndex(s.items)
		s.playFromLocked(0, out)

	default:
		p := *next
		s.active = &p
	}
	s.queueMissingLocked(out)
}

// stopPlaybackLocked ends the in-flight item, if any, and disarms its timer.
func (s *Session) stopPlaybackLocked(out *outbox) {
	s.gen++
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	if s.current != nil {
		out.end(s.endEventLocked())
		s.current = nil
	}
	s.index = 0
}

// playFromLocked starts the first playable item at or after idx, wrapping
// once. Items without media are skipped without events. When nothing is
// playable the session settles in Ready.
func (s *Session) playFromLocked(idx int, out *outbox) {
	n := len(s.items)
	for i := 0; i < n; i++ {
		pos := (idx + i) % n
		item := s.items[pos]
		if item.Media == nil {
			continue
		}
		s.index = pos
		s.current = &s.items[pos]
		s.startedAt = s.clk.Now()
		s.setStateLocked(StatePlaying)
		metrics.PlaybackItems.Inc()
		out.start(models.PlaybackStart{
			DeviceID:   s.cfg.DeviceID,
			DeviceName: s.cfg.DeviceName,
			MediaID:    item.Media.ID,
			MediaName:  item.Media.OriginalName,
			PlaylistID: s.active.ID,
			StartedAt:  s.startedAt,
		})
		if item.Media.Type != models.MediaVideo {
			gen := s.gen
			s.advanceTimer = s.clk.AfterFunc(item.DisplayDuration(), func() { s.advance(gen) })
		}
		return
	}
	s.current = nil
	s.index = 0
	s.setStateLocked(StateReady)
}

// advance moves to the next item if the playback generation still matches.
func (s *Session) advance(gen uint64) {
	s.mu.Lock()
	if gen != s.gen || s.current == nil {
		s.mu.Unlock()
		return
	}
	var out outbox
	s.nextLocked(&out)
	s.mu.Unlock()
	s.emit(&out)
}

func (s *Session) nextLocked(out *outbox) {
	s.setStateLocked(StateTransitioning)
	s.gen++
	s.advanceTimer = nil
	out.end(s.endEventLocked())
	s.current = nil
	s.playFromLocked(s.index+1, out)
}

// VideoEnded reports that the renderer finished the video mediaID. It fails
// with ErrConflict unless that video is the current item.
func (s *Session) VideoEnded(mediaID string) error {
	s.mu.Lock()
	if s.current == nil || s.current.Media == nil || s.current.Media.ID != mediaID ||
		s.current.Media.Type != models.MediaVideo {
		s.mu.Unlock()
		return apperr.E(apperr.ErrConflict, "media %q is not the playing video", mediaID)
	}
	var out outbox
	s.nextLocked(&out)
	s.mu.Unlock()
	s.emit(&out)
	return nil
}

func (s *Session) endEventLocked() models.PlaybackEnd {
	return models.PlaybackEnd{
		DeviceID: s.cfg.DeviceID,
		MediaID:  s.current.Media.ID,
		EndedAt:  s.clk.Now(),
	}
}

// queueMissingLocked schedules background fetches for active media that is
// neither cached nor already being fetched.
func (s *Session) queueMissingLocked(out *outbox) {
	for _, item := range s.items {
		m := item.Media
		if m == nil {
			continue
		}
		if _, ok := s.local[m.ID]; ok || s.fetching[m.ID] {
			continue
		}
		s.fetching[m.ID] = true
		out.fetches = append(out.fetches, m)
	}
}

func (s *Session) prefetch(ctx context.Context, m *models.Media) {
	defer s.fetches.Done()
	path, err := s.cache.Ensure(ctx, m)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fetching, m.ID)
	if err != nil {
		logging.Ctx(ctx).Debug().Err(err).Str("media_id", m.ID).Msg("Media not cached yet, playing from remote URL")
		return
	}
	if s.active != nil && s.state != StateDeregistered {
		s.local[m.ID] = path
	}
}

// sameItems reports whether two item lists would play identically.
func sameItems(a, b []models.PlaylistItem) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].MediaID != b[i].MediaID || a[i].Duration != b[i].Duration || a[i].Order != b[i].Order {
			return false
		}
		am, bm := a[i].Media, b[i].Media
		if (am == nil) != (bm == nil) || (am != nil && (am.URL != bm.URL || am.Type != bm.Type)) {
			return false
		}
	}
	return true
}
