// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

//go:build nats

package fanout

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/config"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// unreachableSink returns a NATS sink pointed at a port nothing listens on.
// The connection is closed up front so publishes fail instead of sitting in
// the reconnect buffer.
func unreachableSink(t *testing.T) *NATSSink {
	t.Helper()
	sink, err := NewNATSSink(&config.NATSConfig{
		URL:           "nats://127.0.0.1:1",
		Subject:       "marquee.notifications.test",
		MaxReconnects: 0,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewNATSSink() error = %v", err)
	}
	_ = sink.publisher.Close()
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestNATSSink_HandleFailsWhenUnreachable(t *testing.T) {
	sink := unreachableSink(t)

	err := sink.Handle(context.Background(), PushOnly(AnalyticsUpdated()))
	if err == nil {
		t.Fatal("Handle() error = nil, want publish failure")
	}
	if !strings.Contains(err.Error(), "marquee.notifications.test") {
		t.Errorf("Handle() error = %v, want subject in message", err)
	}
}

func TestNATSSink_BreakerOpens(t *testing.T) {
	sink := unreachableSink(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := sink.Handle(ctx, PushOnly(AnalyticsUpdated()))
		if err == nil || errors.Is(err, gobreaker.ErrOpenState) {
			t.Fatalf("Handle() #%d error = %v, want publish failure", i, err)
		}
	}
	if err := sink.Handle(ctx, PushOnly(AnalyticsUpdated())); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Handle() after 5 failures error = %v, want ErrOpenState", err)
	}
}

func TestNATSSink_ClosedSink(t *testing.T) {
	sink := unreachableSink(t)
	if err := sink.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := sink.Handle(context.Background(), PushOnly(AnalyticsUpdated())); err == nil {
		t.Error("Handle() on closed sink error = nil")
	}
}

func TestBus_NATSFailureIsLoggedAndAcked(t *testing.T) {
	logs := &syncBuffer{}
	logging.Init(logging.Config{Level: "warn", Format: "json", Output: logs})
	t.Cleanup(func() {
		logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
	})

	sink := unreachableSink(t)
	healthy := newRecordingSink("healthy", nil)
	bus := startBus(t, sink, healthy)

	before := testutil.ToFloat64(metrics.FanoutSinkErrors.WithLabelValues("nats"))

	n := PushOnly(AnalyticsUpdated())
	bus.Publish(context.Background(), n)
	healthy.wait(t)

	deadline := time.Now().Add(5 * time.Second)
	for !strings.Contains(logs.String(), "Fan-out sink failed") {
		if time.Now().After(deadline) {
			t.Fatalf("sink failure not logged; logs:\n%s", logs.String())
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !strings.Contains(logs.String(), n.ID) {
		t.Errorf("log does not name notification %s", n.ID)
	}

	// An acked message is not redelivered, so the error count stays at one.
	time.Sleep(200 * time.Millisecond)
	after := testutil.ToFloat64(metrics.FanoutSinkErrors.WithLabelValues("nats"))
	if after-before != 1 {
		t.Errorf("nats sink errors delta = %v, want 1", after-before)
	}
}
