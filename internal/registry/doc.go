// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package registry implements the server side of the fleet: device
registration and liveness, playlist and media management, assignments, the
fleet overview, and the stale-device sweep.

Every mutation follows the same shape. The primary change is committed to
the store first; only then is a fanout.Notification published describing the
push frames and activity entry that follow from it. Fan-out is best effort
and never rolls back a committed mutation. Devices that miss a push converge
on their next poll.

# Liveness

A device is online while it heartbeats or holds a bound push connection.
The Sweeper runs SweepStale on an interval and demotes devices whose
last_seen is older than the configured threshold. Demotion happens exactly
once per stale period because the store only selects devices still marked
online.

# Usage

	svc := registry.NewService(db, activities, registrar, bus, clock.Real{}, registry.Config{
		PublicURL: cfg.Server.PublicURL,
		UploadDir: cfg.Media.UploadDir,
	})
	dev, err := svc.Register(ctx, token, registry.RegisterRequest{DeviceID: "lobby-1", Name: "Lobby"})
*/
package registry
