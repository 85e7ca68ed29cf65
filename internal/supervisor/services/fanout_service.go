// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package services

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/logging"
)

// Router is the lifecycle of the notification bus.
//
// Satisfied by *fanout.Bus.
type Router interface {
	Run(ctx context.Context) error
	Close() error
}

// FanoutService runs the notification bus and closes it on shutdown.
type FanoutService struct {
	router Router
}

// NewFanoutService wraps the notification bus.
func NewFanoutService(router Router) *FanoutService {
	return &FanoutService{router: router}
}

// Serve implements suture.Service.
func (f *FanoutService) Serve(ctx context.Context) error {
	runErr := f.router.Run(ctx)

	if err := f.router.Close(); err != nil {
		logging.Warn().Err(err).Msg("Closing notification bus")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if runErr != nil {
		return fmt.Errorf("notification fan-out failed: %w", runErr)
	}
	return nil
}

// String implements fmt.Stringer.
func (f *FanoutService) String() string {
	return "notification-fanout"
}
