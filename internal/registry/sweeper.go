// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registry

import (
	"context"
	"time"

	"github.com/tomtom215/marquee/internal/logging"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = 30 * time.Second

// Sweeper runs SweepStale on a fixed interval.
type Sweeper struct {
	svc      *Service
	interval time.Duration
}

// NewSweeper creates a Sweeper for svc.
func NewSweeper(svc *Service, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{svc: svc, interval: interval}
}

// RunWithContext sweeps until ctx is canceled. A failed sweep is logged and
// retried on the next tick.
func (sw *Sweeper) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", sw.interval).Msg("Liveness sweep started")
	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Liveness sweep stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := sw.svc.SweepStale(ctx); err != nil {
				logging.Warn().Err(err).Msg("Liveness sweep failed")
			}
		}
	}
}
