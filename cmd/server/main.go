// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/marquee/internal/activity"
	"github.com/tomtom215/marquee/internal/api"
	"github.com/tomtom215/marquee/internal/auth"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/database"
	"github.com/tomtom215/marquee/internal/fanout"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/presence"
	"github.com/tomtom215/marquee/internal/registry"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
	ws "github.com/tomtom215/marquee/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("public_url", cfg.Server.PublicURL).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting Marquee registry")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Registry stopped with error")
	}
	logging.Info().Msg("Registry stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	activities := activity.NewDuckDBStore(db.Conn())
	if err := activities.CreateTable(ctx); err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		return err
	}
	tracker, err := newJTITracker(cfg.Security.JTIStorePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := tracker.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing token tracker")
		}
	}()

	hub := ws.NewHub()
	bus, err := newBus(cfg, hub, activities)
	if err != nil {
		return err
	}

	loc, err := cfg.Registry.Location()
	if err != nil {
		return err
	}
	svc := registry.NewService(db, activities, auth.NewRegistrar(jwtManager, tracker), bus, nil, registry.Config{
		PublicURL:      cfg.Server.PublicURL,
		UploadDir:      cfg.Media.UploadDir,
		MaxUploadBytes: cfg.Media.MaxUploadBytes,
		Location:       loc,
		ActivityLimit:  cfg.Registry.ActivityLimit,
		StaleAfter:     cfg.Registry.StaleAfter,
	})
	hub.SetHandler(presence.NewTracker(db, bus, nil))

	handler := api.NewHandler(svc, db, hub, cfg)
	authMW := auth.NewMiddleware(jwtManager, cfg.Security.AuthMode, api.RespondError)
	router := api.NewRouter(handler, authMW, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		// Uploads and the WebSocket need longer than the request timeout.
		WriteTimeout: 0,
		IdleTimeout:  2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree("marquee-server", logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddDataService(services.NewSweeperService(registry.NewSweeper(svc, cfg.Registry.SweepInterval)))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddMessagingService(services.NewFanoutService(bus))
	tree.AddAPIService(services.NewHTTPServerService(server, shutdownTimeout))

	logging.Info().Str("addr", server.Addr).Msg("Registry listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop before the shutdown timeout")
	}
	return nil
}

// newJTITracker keeps redeemed registration token ids in badger when a
// path is configured and in memory otherwise.
func newJTITracker(path string) (auth.JTITracker, error) {
	if path == "" {
		logging.Warn().Msg("Registration token ids are kept in memory; redeemed tokens become valid again after a restart")
		return auth.NewMemoryJTITracker(), nil
	}
	return auth.OpenBadgerJTITracker(path)
}

// newBus wires the notification sinks. A NATS failure is logged and the
// registry runs without it.
func newBus(cfg *config.Config, hub *ws.Hub, activities activity.Store) (*fanout.Bus, error) {
	sinks := []fanout.Sink{fanout.NewHubSink(hub), fanout.NewActivitySink(activities)}
	if cfg.NATS.Enabled {
		natsSink, err := fanout.NewNATSSink(&cfg.NATS)
		if err != nil {
			logging.Warn().Err(err).Msg("NATS forwarding disabled")
		} else {
			sinks = append(sinks, natsSink)
		}
	}
	return fanout.NewBus(sinks...)
}
