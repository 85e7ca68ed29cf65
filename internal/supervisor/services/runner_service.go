// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import "context"

// ContextRunner is any component that runs until its context is canceled.
//
// Satisfied by *websocket.Hub, *registry.Sweeper, *push.Client and
// *session.Session.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService delegates Serve to RunWithContext.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewRunnerService wraps runner under the given log name.
func NewRunnerService(name string, runner ContextRunner) *RunnerService {
	return &RunnerService{runner: runner, name: name}
}

// NewWebSocketHubService wraps the server's WebSocket hub.
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return NewRunnerService("websocket-hub", hub)
}

// NewSweeperService wraps the registry liveness sweeper.
func NewSweeperService(sweeper ContextRunner) *RunnerService {
	return NewRunnerService("liveness-sweeper", sweeper)
}

// NewPushClientService wraps a player's push channel client.
func NewPushClientService(client ContextRunner) *RunnerService {
	return NewRunnerService("push-client", client)
}

// NewSessionService wraps a player's device session.
func NewSessionService(session ContextRunner) *RunnerService {
	return NewRunnerService("device-session", session)
}

// Serve implements suture.Service.
func (r *RunnerService) Serve(ctx context.Context) error {
	return r.runner.RunWithContext(ctx)
}

// String implements fmt.Stringer.
func (r *RunnerService) String() string {
	return r.name
}
