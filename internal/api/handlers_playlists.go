// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/marquee/internal/registry"
)

// ListPlaylists returns all playlists, expanded.
func (h *Handler) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	playlists, err := h.svc.ListPlaylists(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, playlists, start)
}

// GetPlaylist returns one playlist.
func (h *Handler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	p, err := h.svc.GetPlaylist(r.Context(), chi.URLParam(r, "playlistID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, p, start)
}

// CreatePlaylist creates a playlist.
func (h *Handler) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req registry.PlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.CreatePlaylist(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, p, start)
}

// UpdatePlaylist replaces a playlist.
func (h *Handler) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req registry.PlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	p, err := h.svc.UpdatePlaylist(r.Context(), chi.URLParam(r, "playlistID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, p, start)
}

// DeletePlaylist removes a playlist and its assignments.
func (h *Handler) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "playlistID")
	if err := h.svc.DeletePlaylist(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, map[string]string{"id": id}, start)
}
