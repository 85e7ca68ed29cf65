// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/marquee/internal/database"
)

// Overview returns fleet counters.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ov, err := h.svc.Overview(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, ov, start)
}

// Activity returns the recent activity feed, newest first.
func (h *Handler) Activity(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	items, err := h.svc.RecentActivity(r.Context(), getIntParam(r, "limit", 0))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, items, start)
}

// Playback returns recorded playback intervals filtered by deviceId and since.
func (h *Handler) Playback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	since, err := getTimeParam(r, "since")
	if err != nil {
		respondError(w, r, err)
		return
	}
	logs, err := h.svc.PlaybackLogs(r.Context(), database.PlaybackLogFilter{
		DeviceID: r.URL.Query().Get("deviceId"),
		Since:    since,
		Limit:    getIntParam(r, "limit", database.DefaultPlaybackLogLimit),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, logs, start)
}
