// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package fanout

import (
	"context"
	"fmt"

	"github.com/tomtom215/marquee/internal/activity"
	"github.com/tomtom215/marquee/internal/models"
)

// Broadcaster is the websocket hub's broadcast surface.
type Broadcaster interface {
	BroadcastJSON(messageType string, data interface{})
}

// HubSink pushes frames to every websocket client. The activity, when
// present, is broadcast ahead of the other frames.
type HubSink struct {
	hub Broadcaster
}

// NewHubSink creates a HubSink.
func NewHubSink(hub Broadcaster) *HubSink {
	return &HubSink{hub: hub}
}

// Name implements Sink.
func (s *HubSink) Name() string { return "hub" }

// Handle implements Sink.
func (s *HubSink) Handle(_ context.Context, n *Notification) error {
	if n.Activity != nil {
		s.hub.BroadcastJSON(models.PushActivity, n.Activity)
	}
	for _, f := range n.Push {
		if len(f.Data) == 0 {
			s.hub.BroadcastJSON(f.Type, nil)
			continue
		}
		s.hub.BroadcastJSON(f.Type, f.Data)
	}
	return nil
}

// ActivitySink appends activities to the activity store.
type ActivitySink struct {
	store activity.Store
}

// NewActivitySink creates an ActivitySink.
func NewActivitySink(store activity.Store) *ActivitySink {
	return &ActivitySink{store: store}
}

// Name implements Sink.
func (s *ActivitySink) Name() string { return "activity" }

// Handle implements Sink.
func (s *ActivitySink) Handle(ctx context.Context, n *Notification) error {
	if n.Activity == nil {
		return nil
	}
	if err := s.store.Save(ctx, n.Activity); err != nil {
		return fmt.Errorf("save activity %s: %w", n.Activity.ID, err)
	}
	return nil
}
