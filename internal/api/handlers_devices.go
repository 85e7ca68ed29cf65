// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/auth"
	"github.com/tomtom215/marquee/internal/registry"
)

// IssueRegistrationToken mints a one-time device registration credential.
func (h *Handler) IssueRegistrationToken(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	cred, err := h.svc.IssueRegistrationToken(r.Context(), auth.OperatorName(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, cred, start)
}

// RegisterDevice registers a device using the registration token presented
// as a bearer credential.
func (h *Handler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	token, ok := auth.BearerToken(r)
	if !ok {
		respondError(w, r, apperr.E(apperr.ErrInvalidCredential, "registration token required"))
		return
	}
	var req registry.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	dev, err := h.svc.Register(r.Context(), token, req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondCreated(w, dev, start)
}

// ListDevices returns every registered device.
func (h *Handler) ListDevices(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	devices, err := h.svc.ListDevices(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, devices, start)
}

// GetDevice returns one device.
func (h *Handler) GetDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dev, err := h.svc.GetDevice(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, dev, start)
}

// DeleteDevice removes a device.
func (h *Handler) DeleteDevice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "deviceID")
	if err := h.svc.DeleteDevice(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, map[string]string{"deviceId": id}, start)
}

// Heartbeat records device liveness.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id := chi.URLParam(r, "deviceID")
	if err := h.svc.Heartbeat(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, map[string]string{"deviceId": id, "status": "online"}, start)
}

// DevicePlaylists returns the device's assigned playlists, fully expanded.
func (h *Handler) DevicePlaylists(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	playlists, err := h.svc.AssignedPlaylists(r.Context(), chi.URLParam(r, "deviceID"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, playlists, start)
}

// AssignPlaylists merges playlists into a device's assignments.
func (h *Handler) AssignPlaylists(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req registry.AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, r, err)
		return
	}
	dev, err := h.svc.AssignPlaylists(r.Context(), chi.URLParam(r, "deviceID"), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, dev, start)
}

// RemovePlaylist unassigns one playlist from a device.
func (h *Handler) RemovePlaylist(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	deviceID := chi.URLParam(r, "deviceID")
	if err := h.svc.RemovePlaylist(r.Context(), deviceID, chi.URLParam(r, "playlistID")); err != nil {
		respondError(w, r, err)
		return
	}
	dev, err := h.svc.GetDevice(r.Context(), deviceID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, dev, start)
}
