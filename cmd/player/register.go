// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/devicestore"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/registryclient"
)

const registrationRetry = 30 * time.Second

// errCredentialRequired means retrying with the configured credential can
// never succeed. The operator must supply a new one and restart the player.
var errCredentialRequired = errors.New("new registration credential required")

// IdentityStore persists the device identity.
type IdentityStore interface {
	LoadIdentity() (*devicestore.Identity, error)
	SaveIdentity(id *devicestore.Identity) error
}

// Registrar redeems a registration token.
type Registrar interface {
	Register(ctx context.Context, token string, reg registryclient.Registration) error
}

// ensureRegistered returns the stored identity, registering first when
// there is none. Network failures are retried until ctx is done. A rejected
// or missing credential and a duplicate device id return
// errCredentialRequired. A nil registrar uses the registry client.
func ensureRegistered(ctx context.Context, cfg *config.PlayerConfig, store IdentityStore, registrar Registrar) (*devicestore.Identity, error) {
	identity, err := store.LoadIdentity()
	if err != nil {
		logging.Warn().Err(err).Msg("Stored identity unreadable, registering again")
	}
	if identity != nil {
		return identity, nil
	}

	for {
		identity, err = registerOnce(ctx, cfg, store, registrar)
		if err == nil {
			return identity, nil
		}
		if permanentRegistrationError(err) {
			return nil, fmt.Errorf("%w: %w", errCredentialRequired, err)
		}
		logging.Warn().Err(err).Dur("retry_in", registrationRetry).Msg("Device registration failed")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(registrationRetry):
		}
	}
}

func permanentRegistrationError(err error) bool {
	return errors.Is(err, apperr.ErrValidation) ||
		errors.Is(err, apperr.ErrInvalidCredential) ||
		errors.Is(err, apperr.ErrConflict)
}

// registerOnce redeems the configured credential once. A nil registrar
// builds a registry client from the configured API URL.
func registerOnce(ctx context.Context, cfg *config.PlayerConfig, store IdentityStore, registrar Registrar) (*devicestore.Identity, error) {
	if cfg.Registration.APIURL == "" || cfg.Registration.Token == "" {
		return nil, apperr.E(apperr.ErrValidation, "device is not registered and no registration credential is configured")
	}
	if registrar == nil {
		client, err := registryclient.New(cfg.Registration.APIURL, cfg.Client.Timeout)
		if err != nil {
			return nil, err
		}
		registrar = clientRegistrar{client}
	}

	reg := registryclient.Registration{
		DeviceID: cfg.Device.ID,
		Name:     cfg.Device.Name,
		Location: cfg.Device.Location,
	}
	if reg.DeviceID == "" {
		reg.DeviceID = uuid.NewString()
	}
	if reg.Name == "" {
		reg.Name = defaultDeviceName(reg.DeviceID)
	}

	if err := registrar.Register(ctx, cfg.Registration.Token, reg); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("device id %s is already registered: %w", reg.DeviceID, err)
		}
		return nil, err
	}

	identity := &devicestore.Identity{
		DeviceID:     reg.DeviceID,
		Name:         reg.Name,
		Location:     reg.Location,
		APIURL:       cfg.Registration.APIURL,
		RegisteredAt: time.Now().UTC(),
	}
	if err := store.SaveIdentity(identity); err != nil {
		return nil, fmt.Errorf("save identity: %w", err)
	}
	logging.Info().Str("device_id", identity.DeviceID).Str("name", identity.Name).Msg("Device registered")
	return identity, nil
}

func defaultDeviceName(deviceID string) string {
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	if len(deviceID) > 8 {
		deviceID = deviceID[:8]
	}
	return "display-" + deviceID
}

type clientRegistrar struct {
	client *registryclient.Client
}

func (r clientRegistrar) Register(ctx context.Context, token string, reg registryclient.Registration) error {
	_, err := r.client.Register(ctx, token, reg)
	return err
}
