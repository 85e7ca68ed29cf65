// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package supervisor runs Marquee's long-lived services under suture v4.

Both binaries build the same three-layer tree and differ only in what they
put into it:

	marquee-server
	├── data-layer
	│   └── liveness-sweeper
	├── messaging-layer
	│   ├── websocket-hub
	│   └── notification-fanout
	└── api-layer
	    └── http-server

	marquee-player
	├── data-layer
	├── messaging-layer
	│   ├── push-client
	│   └── device-session
	└── api-layer
	    └── status-server

A failed service is restarted inside its own layer. Repeated failures
within FailureDecay seconds push the layer into FailureBackoff.

# Return Values

	nil         service finished, not restarted
	error       service crashed, restarted
	ctx.Err()   shutdown requested

The DuckDB handle and the player's Badger store are not services. They are
opened before the tree starts and closed after it returns.

# Usage

	tree, err := supervisor.NewSupervisorTree("marquee-server", logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddDataService(services.NewSweeperService(sweeper))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
