// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

// Sink delivers notifications to one destination.
type Sink interface {
	Name() string
	Handle(ctx context.Context, n *Notification) error
}

// Publisher is the registry's view of the bus.
type Publisher interface {
	Publish(ctx context.Context, n *Notification)
}

// Bus is the in-process fan-out bus.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
	logger watermill.LoggerAdapter
	now    func() time.Time
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus with one router handler per sink.
func NewBus(sinks ...Sink) (*Bus, error) {
	logger := logging.NewWatermillAdapter()

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 256,
	}, logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	for _, sink := range sinks {
		router.AddConsumerHandler("fanout_"+sink.Name(), Topic, pubsub, deliver(sink))
	}

	return &Bus{
		pubsub: pubsub,
		router: router,
		logger: logger,
		now:    time.Now,
	}, nil
}

// deliver adapts a sink to a watermill handler. Sink errors are logged and
// swallowed so the message is acked exactly once per sink.
func deliver(sink Sink) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		var n Notification
		if err := json.Unmarshal(msg.Payload, &n); err != nil {
			metrics.FanoutSinkErrors.WithLabelValues(sink.Name()).Inc()
			logging.Error().Err(err).Str("sink", sink.Name()).Str("message_uuid", msg.UUID).
				Msg("Dropping undecodable notification")
			return nil
		}
		if err := sink.Handle(msg.Context(), &n); err != nil {
			metrics.FanoutSinkErrors.WithLabelValues(sink.Name()).Inc()
			logging.Warn().Err(err).Str("sink", sink.Name()).Str("notification_id", n.ID).
				Msg("Fan-out sink failed")
		}
		return nil
	}
}

// Publish stamps and publishes n. Failures are logged; the caller's
// mutation has already committed.
func (b *Bus) Publish(ctx context.Context, n *Notification) {
	if n == nil {
		return
	}
	now := b.now().UTC()
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.PublishedAt.IsZero() {
		n.PublishedAt = now
	}
	if a := n.Activity; a != nil {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.Time.IsZero() {
			a.Time = now
		}
	}

	payload, err := json.Marshal(n)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to encode notification")
		return
	}

	msg := message.NewMessage(n.ID, payload)
	if cid := logging.CorrelationIDFromContext(ctx); cid != "" {
		msg.Metadata.Set("correlation_id", cid)
	}

	if err := b.pubsub.Publish(Topic, msg); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("notification_id", n.ID).Msg("Failed to publish notification")
		return
	}
	metrics.FanoutPublished.WithLabelValues(Topic).Inc()
}

// Run starts the sink handlers and blocks until ctx is canceled.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once every sink handler is subscribed.
func (b *Bus) Running() <-chan struct{} {
	return b.router.Running()
}

// Close stops the router and the GoChannel.
func (b *Bus) Close() error {
	routerErr := b.router.Close()
	if err := b.pubsub.Close(); err != nil {
		return err
	}
	return routerErr
}
