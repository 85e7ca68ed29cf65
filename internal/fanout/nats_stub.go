// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

//go:build !nats

package fanout

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/config"
)

// NATSSink is a stub for non-NATS builds.
type NATSSink struct{}

// NewNATSSink returns an error in non-NATS builds.
func NewNATSSink(_ *config.NATSConfig) (*NATSSink, error) {
	return nil, fmt.Errorf("NATS support not enabled (build with -tags nats)")
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Handle implements Sink.
func (s *NATSSink) Handle(_ context.Context, _ *Notification) error {
	return fmt.Errorf("NATS support not enabled")
}

// Close is a no-op stub.
func (s *NATSSink) Close() error { return nil }
