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

	"github.com/tomtom215/marquee/internal/clock"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/devicestore"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/mediacache"
	"github.com/tomtom215/marquee/internal/push"
	"github.com/tomtom215/marquee/internal/registryclient"
	"github.com/tomtom215/marquee/internal/session"
	"github.com/tomtom215/marquee/internal/supervisor"
	"github.com/tomtom215/marquee/internal/supervisor/services"
)

const (
	shutdownTimeout = 5 * time.Second
	fetchTimeout    = 2 * time.Minute
)

func main() {
	cfg, err := config.LoadPlayer()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load player configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := devicestore.Open(cfg.Storage.StateDir())
	if err != nil {
		logging.Fatal().Err(err).Str("dir", cfg.Storage.StateDir()).Msg("Failed to open device store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing device store")
		}
	}()

	// Each pass runs until shutdown or until the device is reset, in which
	// case it goes back through registration.
	for ctx.Err() == nil {
		identity, err := ensureRegistered(ctx, cfg, store, nil)
		if errors.Is(err, errCredentialRequired) {
			// Block until shutdown rather than retrying.
			logging.Error().Err(err).Msg("New registration credential required, update the player config and restart")
			<-ctx.Done()
			break
		}
		if err != nil {
			break
		}
		if err := runAgent(ctx, cfg, store, identity); err != nil {
			logging.Error().Err(err).Msg("Player agent stopped with error")
			break
		}
	}
	logging.Info().Msg("Player stopped")
}

// runAgent plays as identity until ctx is canceled or the session is reset.
func runAgent(ctx context.Context, cfg *config.PlayerConfig, store *devicestore.Store, identity *devicestore.Identity) error {
	apiURL := identity.APIURL
	if cfg.Registration.APIURL != "" {
		apiURL = cfg.Registration.APIURL
	}
	client, err := registryclient.New(apiURL, cfg.Client.Timeout)
	if err != nil {
		return err
	}
	cache, err := mediacache.New(cfg.Storage.MediaDir(), mediacache.NewHTTPFetcher(fetchTimeout), store)
	if err != nil {
		return err
	}

	agentCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	notifier := &pushNotifier{}
	sess := session.New(session.Config{
		DeviceID:              identity.DeviceID,
		DeviceName:            identity.Name,
		Reevaluate:            cfg.Timers.Reevaluate,
		Refresh:               cfg.Timers.Refresh,
		HeartbeatInitialDelay: cfg.Timers.HeartbeatInitialDelay,
		Heartbeat:             cfg.Timers.Heartbeat,
	}, clock.Real{}, client, notifier, store, cache)
	notifier.Client = push.New(push.Config{
		URL:           client.PushURL(),
		DeviceID:      identity.DeviceID,
		ReconnectWait: cfg.Timers.ReconnectWait,
	}, sess)
	sess.OnDeregistered(cancel)

	tree, err := supervisor.NewSupervisorTree("marquee-player", logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: shutdownTimeout,
	})
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewSessionService(sess))
	tree.AddMessagingService(services.NewPushClientService(notifier.Client))
	if cfg.Status.Enabled {
		server := &http.Server{
			Addr:              cfg.Status.Listen,
			Handler:           session.NewStatusHandler(sess),
			ReadHeaderTimeout: 5 * time.Second,
		}
		tree.AddAPIService(services.NewNamedHTTPServerService("status-server", server, shutdownTimeout))
	}

	logging.Info().
		Str("device_id", identity.DeviceID).
		Str("api_url", client.BaseURL()).
		Str("status_listen", cfg.Status.Listen).
		Msg("Player agent started")

	if err := tree.Serve(agentCtx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if ctx.Err() == nil && sess.State() == session.StateDeregistered {
		logging.Warn().Str("device_id", identity.DeviceID).Msg("Device reset, returning to registration")
	}
	return nil
}

// pushNotifier lets the session be built before the push client that
// reports for it.
type pushNotifier struct {
	*push.Client
}
