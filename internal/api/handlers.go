// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/registry"
	ws "github.com/tomtom215/marquee/internal/websocket"
)

// Pinger reports database reachability for the health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, push channel upgrade
//   - handlers_helpers.go: response and request helpers
//   - handlers_devices.go: registration, liveness, assignments
//   - handlers_playlists.go: playlist CRUD
//   - handlers_media.go: uploads and media listing
//   - handlers_analytics.go: overview, activity feed, playback logs
//   - handlers_health.go: health check
type Handler struct {
	svc       *registry.Service
	db        Pinger
	wsHub     *ws.Hub
	config    *config.Config
	startTime time.Time
}

// NewHandler creates a Handler.
//
// Example:
//
//	handler := api.NewHandler(svc, db, hub, cfg)
//	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddleware(nil))
//	http.ListenAndServe(":3000", router.SetupChi())
func NewHandler(svc *registry.Service, db Pinger, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		svc:       svc,
		db:        db,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// WebSocket upgrades the request to a push channel connection.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondErrorCode(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin admits clients without an Origin header (devices) and
// browsers whose origin is in the CORS allow list.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || h.config == nil {
		return true
	}
	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected: origin not allowed")
	return false
}
