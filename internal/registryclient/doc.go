// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package registryclient is the player's REST client for the registry.

Every call is bounded by the configured timeout and runs through a gobreaker
circuit breaker. Transport failures, 5xx responses and an open breaker all
surface as apperr.ErrNetworkUnavailable so the session can log them and try
again on its next tick. 4xx responses carry the registry's error code and are
mapped back onto the matching apperr kind.

Usage:

	c, err := registryclient.New("http://registry:3000/api/v1", 5*time.Second)
	dev, err := c.Register(ctx, token, registryclient.Registration{DeviceID: "lobby-1", Name: "Lobby"})
	playlists, err := c.AssignedPlaylists(ctx, "lobby-1")
*/
package registryclient
