// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package services adapts Marquee components to suture.Service.

Three lifecycle shapes are covered:

  - ListenAndServe/Shutdown (HTTPServerService): the registry API and the
    player status server.
  - RunWithContext (RunnerService): the WebSocket hub, the liveness sweeper,
    the push client and the device session.
  - Run/Close (FanoutService): the watermill notification bus.

Every wrapper implements fmt.Stringer so suture's log lines name the
service.
*/
package services
