// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package websocket implements the registry side of the push channel.

Dashboards and devices connect to /ws and receive every broadcast frame:

	{"type": "playlist-updated", "data": {"deviceId": "lobby-1"}}
	{"type": "device-status", "data": {"deviceId": "lobby-1", "status": "offline", "lastSeen": "..."}}
	{"type": "activity", "data": {...}}
	{"type": "analytics-updated", "data": null}

Devices filter playlist-updated frames by their own id. Frames sent by a
device (DEVICE_ONLINE, PLAYBACK_START, PLAYBACK_END) are handed to the hub's
MessageHandler on the connection's read goroutine, so events from a single
connection are processed in order. "ping" is answered with "pong" without
involving the handler.

Architecture:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ Client1  │ Client2 │ Client3 │ ...
	└──────────┴─────────┴─────────┘

Each Client runs a read pump and a write pump. When the read pump exits the
client is unregistered and MessageHandler.OnDisconnect runs with the
connection id.

The hub is supervised: RunWithContext closes every client when its context
is canceled.
*/
package websocket
