// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Command player is the headless Marquee device agent.

On first boot it redeems the registration credential in its config and
stores the resulting identity. From then on it plays from the local
snapshot, refreshes assignments from the registry in the background,
caches media on disk and reports playback over the push channel. None of
that needs the network to be up.

The on-device renderer talks to the agent through the local status
server:

	GET  /status        current state and item
	POST /video-ended   {"mediaId": "..."} advances past a finished video
	POST /reset         wipes local state and returns to registration

# Environment

	REGISTRATION_API_URL=https://signage.example.com/api/v1
	REGISTRATION_TOKEN=<token from the dashboard>
	DEVICE_NAME="Lobby screen"
	DATA_DIR=/var/lib/marquee
	STATUS_LISTEN=127.0.0.1:8765
*/
package main
