// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package push is the player's side of the registry push channel.

The Client keeps one websocket connection to the registry's /ws endpoint open,
announcing the device with DEVICE_ONLINE every time it connects. Reconnect
attempts are paced by a golang.org/x/time/rate limiter so a registry outage
does not turn into a dial storm.

Inbound playlist-updated frames addressed to this device are handed to the
Handler; frames for other devices and everything else the registry broadcasts
are ignored. Outbound PLAYBACK_START and PLAYBACK_END are fire-and-forget: when
the channel is down they fail with apperr.ErrNetworkUnavailable and the caller
moves on.

Connectivity reported through OnConnected and OnDisconnected never gates
playback; it only feeds the device's online indicator.
*/
package push
