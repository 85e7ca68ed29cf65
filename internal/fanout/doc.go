// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

/*
Package fanout delivers side effects of registry mutations.

A mutation commits first. The registry then publishes a Notification on an
in-process watermill GoChannel. Every Sink subscribes independently through
a watermill router handler:

  - HubSink broadcasts the push frames (and the activity) to websocket clients.
  - ActivitySink appends the activity to the activity store.
  - NATSSink forwards the notification to a NATS subject (build with -tags nats).

A failing sink is logged and counted; the message is still acked so nothing
is retried and the other sinks are unaffected. Devices heal missed pushes
through their periodic poll.
*/
package fanout
