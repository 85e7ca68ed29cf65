// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/middleware"
	"github.com/tomtom215/marquee/internal/models"
)

// NowPlaying describes the current item for the renderer.
type NowPlaying struct {
	MediaID   string           `json:"mediaId"`
	MediaName string           `json:"mediaName"`
	Type      models.MediaType `json:"type"`
	// Source is the local file when cached, otherwise the remote URL.
	Source    string    `json:"source"`
	Cached    bool      `json:"cached"`
	Index     int       `json:"index"`
	Duration  int       `json:"duration,omitempty"`
	StartedAt time.Time `json:"startedAt"`
}

// Status is a point-in-time view of the session.
type Status struct {
	DeviceID     string      `json:"deviceId"`
	State        State       `json:"state"`
	Online       bool        `json:"online"`
	PlaylistID   string      `json:"playlistId,omitempty"`
	PlaylistName string      `json:"playlistName,omitempty"`
	Items        int         `json:"items"`
	CachedItems  int         `json:"cachedItems"`
	NowPlaying   *NowPlaying `json:"nowPlaying,omitempty"`
	SnapshotAt   *time.Time  `json:"snapshotAt,omitempty"`
}

// Status returns a consistent view of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		DeviceID: s.cfg.DeviceID,
		State:    s.state,
		Online:   s.online,
		Items:    len(s.items),
	}
	if !s.snapshotAt.IsZero() {
		at := s.snapshotAt
		st.SnapshotAt = &at
	}
	if s.active != nil {
		st.PlaylistID = s.active.ID
		st.PlaylistName = s.active.Name
	}
	for _, item := range s.items {
		if item.Media != nil {
			if _, ok := s.local[item.Media.ID]; ok {
				st.CachedItems++
			}
		}
	}
	if s.current != nil {
		m := s.current.Media
		np := &NowPlaying{
			MediaID:   m.ID,
			MediaName: m.OriginalName,
			Type:      m.Type,
			Source:    m.URL,
			Index:     s.index,
			StartedAt: s.startedAt,
		}
		if p, ok := s.local[m.ID]; ok {
			np.Source, np.Cached = p, true
		}
		if m.Type != models.MediaVideo {
			np.Duration = int(s.current.DisplayDuration() / time.Second)
		}
		st.NowPlaying = np
	}
	return st
}

type videoEndedRequest struct {
	MediaID string `json:"mediaId"`
}

// NewStatusHandler returns the loopback API the on-device renderer uses.
func NewStatusHandler(s *Session) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return middleware.RequestID(next.ServeHTTP) })

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, s.Status())
	})

	r.Post("/video-ended", func(w http.ResponseWriter, r *http.Request) {
		var req videoEndedRequest
		body, err := io.ReadAll(io.LimitReader(r.Body, 4<<10))
		if err == nil {
			err = json.Unmarshal(body, &req)
		}
		if err != nil || req.MediaID == "" {
			writeError(w, apperr.E(apperr.ErrValidation, "mediaId is required"))
			return
		}
		if err := s.VideoEnded(req.MediaID); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Status())
	})

	r.Post("/reset", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 30*time.Second)
		defer cancel()
		if err := s.Reset(ctx); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.Status())
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal status response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	msg := apperr.Message(err)
	var appErr *apperr.Error
	if status == http.StatusInternalServerError && !errors.As(err, &appErr) {
		msg = "internal error"
	}
	writeJSON(w, status, models.APIError{Code: apperr.Code(err), Message: msg})
}
