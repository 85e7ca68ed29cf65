// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubService counts starts and optionally fails its first runs.
type stubService struct {
	name     string
	starts   atomic.Int32
	failures int32
	started  chan struct{}
}

func newStub(name string, failures int32) *stubService {
	return &stubService{name: name, failures: failures, started: make(chan struct{}, 16)}
}

func (s *stubService) Serve(ctx context.Context) error {
	n := s.starts.Add(1)
	s.started <- struct{}{}
	if n <= s.failures {
		return errors.New("boom")
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *stubService) String() string { return s.name }

func waitStarted(t *testing.T, s *stubService) {
	t.Helper()
	select {
	case <-s.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not start", s.name)
	}
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree("", testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if got := tree.Config(); got != DefaultTreeConfig() {
		t.Errorf("Config() = %+v, want %+v", got, DefaultTreeConfig())
	}

	custom := TreeConfig{FailureThreshold: 2, FailureBackoff: time.Second}
	tree, _ = NewSupervisorTree("marquee-player", testLogger(), custom)
	got := tree.Config()
	if got.FailureThreshold != 2 || got.FailureBackoff != time.Second {
		t.Errorf("custom values overwritten: %+v", got)
	}
	if got.FailureDecay != 30 || got.ShutdownTimeout != 10*time.Second {
		t.Errorf("zero values not defaulted: %+v", got)
	}
}

func TestSupervisorTree_RunsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree("marquee-server", testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	data := newStub("sweeper", 0)
	msg := newStub("hub", 0)
	api := newStub("http", 0)
	tree.AddDataService(data)
	tree.AddMessagingService(msg)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	done := tree.ServeBackground(ctx)
	for _, s := range []*stubService{data, msg, api} {
		waitStarted(t, s)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}
	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("unstopped services: %v", report)
	}
}

func TestSupervisorTree_RestartsFailedService(t *testing.T) {
	tree, _ := NewSupervisorTree("marquee-player", testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	flaky := newStub("push-client", 2)
	steady := newStub("status-server", 0)
	tree.AddMessagingService(flaky)
	tree.AddAPIService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)

	for i := 0; i < 3; i++ {
		waitStarted(t, flaky)
	}
	waitStarted(t, steady)
	if got := steady.starts.Load(); got != 1 {
		t.Errorf("api layer restarted %d times because of messaging failures", got-1)
	}

	cancel()
	<-done
}

func TestSupervisorTree_RemoveMessagingService(t *testing.T) {
	tree, _ := NewSupervisorTree("marquee-player", testLogger(), TreeConfig{ShutdownTimeout: time.Second})
	svc := newStub("device-session", 0)
	token := tree.AddMessagingService(svc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := tree.ServeBackground(ctx)
	waitStarted(t, svc)

	if err := tree.RemoveMessagingService(token, time.Second); err != nil {
		t.Fatalf("RemoveMessagingService: %v", err)
	}
	cancel()
	<-done
	if got := svc.starts.Load(); got != 1 {
		t.Errorf("starts = %d, want 1", got)
	}
}
