// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/marquee/internal/auth"
	"github.com/tomtom215/marquee/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. A nil chiMW uses the default middleware config.
func NewRouter(handler *Handler, authMW *auth.Middleware, chiMW *ChiMiddleware) *Router {
	if chiMW == nil {
		chiMW = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, auth: authMW, chiMiddleware: chiMW}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws", router.handler.WebSocket)
	router.mountUploads(r)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(chiMiddleware(middleware.PrometheusMetrics))

		// Device-facing routes authenticate by registration token or not at all.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitDevice())
			r.Post("/devices/register", router.handler.RegisterDevice)
			r.Post("/devices/{deviceID}/heartbeat", router.handler.Heartbeat)
			r.Get("/devices/{deviceID}/playlists", router.handler.DevicePlaylists)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.auth.RequireOperator)

			r.Post("/devices/registration-token", router.handler.IssueRegistrationToken)
			r.Get("/devices", router.handler.ListDevices)
			r.Get("/devices/{deviceID}", router.handler.GetDevice)
			r.Delete("/devices/{deviceID}", router.handler.DeleteDevice)
			r.Post("/devices/{deviceID}/playlists", router.handler.AssignPlaylists)
			r.Delete("/devices/{deviceID}/playlists/{playlistID}", router.handler.RemovePlaylist)

			r.Get("/playlists", router.handler.ListPlaylists)
			r.Post("/playlists", router.handler.CreatePlaylist)
			r.Get("/playlists/{playlistID}", router.handler.GetPlaylist)
			r.Put("/playlists/{playlistID}", router.handler.UpdatePlaylist)
			r.Delete("/playlists/{playlistID}", router.handler.DeletePlaylist)

			r.Get("/media", router.handler.ListMedia)
			r.Post("/media", router.handler.UploadMedia)

			r.Get("/analytics/overview", router.handler.Overview)
			r.Get("/analytics/activity", router.handler.Activity)
			r.Get("/analytics/playback", router.handler.Playback)
		})
	})

	return r
}

// mountUploads serves uploaded media files. Directory listings are refused.
func (router *Router) mountUploads(r chi.Router) {
	if router.handler.svc == nil || router.handler.svc.UploadDir() == "" {
		return
	}
	fs := http.StripPrefix("/uploads/", http.FileServer(noDirFS{http.Dir(router.handler.svc.UploadDir())}))
	r.Get("/uploads/*", fs.ServeHTTP)
}

// noDirFS hides directories from http.FileServer.
type noDirFS struct {
	fs http.FileSystem
}

func (n noDirFS) Open(name string) (http.File, error) {
	f, err := n.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, errNotFile
	}
	return f, nil
}
