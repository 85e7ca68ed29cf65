// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of the health check.
type HealthStatus struct {
	Status           string  `json:"status"`
	Database         bool    `json:"database"`
	WebSocketClients int     `json:"websocketClients"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// Health reports liveness and database reachability. It answers 503 when the
// database cannot be pinged.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := HealthStatus{
		Status:        "healthy",
		Database:      true,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if h.wsHub != nil {
		status.WebSocketClients = h.wsHub.GetClientCount()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			status.Status = "degraded"
			status.Database = false
			respondData(w, http.StatusServiceUnavailable, status, start)
			return
		}
	}
	respondSuccess(w, status, start)
}
