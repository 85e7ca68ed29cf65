// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

// Package metrics holds the Prometheus collectors for the registry server and
// the player agent. Collectors are registered on the default registry at
// package init via promauto.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// Fleet Metrics
	DevicesOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_devices_online",
			Help: "Number of devices currently marked online",
		},
	)

	DeviceStatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_device_status_transitions_total",
			Help: "Total number of device status changes",
		},
		[]string{"status"},
	)

	LivenessSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_liveness_sweeps_total",
			Help: "Total number of liveness sweeps",
		},
		[]string{"result"}, // "ok", "error"
	)

	RegistrationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_registration_tokens_total",
			Help: "Registration token lifecycle events",
		},
		[]string{"event"}, // "issued", "redeemed", "rejected", "replayed"
	)

	// Fan-out Metrics
	FanoutPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_fanout_published_total",
			Help: "Total number of notifications published to the fan-out bus",
		},
		[]string{"topic"},
	)

	FanoutSinkErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_fanout_sink_errors_total",
			Help: "Total number of notifications a sink failed to handle",
		},
		[]string{"sink"},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Player Metrics
	MediaCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_media_cache_lookups_total",
			Help: "Media cache lookups by result",
		},
		[]string{"result"}, // "hit", "fetched", "failed"
	)

	MediaCacheBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_media_cache_downloaded_bytes_total",
			Help: "Total bytes downloaded into the media cache",
		},
	)

	MediaCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "marquee_media_cache_entries",
			Help: "Number of entries in the media cache index",
		},
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "marquee_session_state",
			Help: "1 for the player's current session state, 0 otherwise",
		},
		[]string{"state"},
	)

	PlaybackItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_playback_items_total",
			Help: "Total number of playlist items started",
		},
	)

	Heartbeats = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_heartbeats_total",
			Help: "Total number of device heartbeats sent",
		},
		[]string{"result"}, // "success", "failure"
	)

	RegistryClientRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marquee_registry_client_requests_total",
			Help: "Total number of player calls to the registry",
		},
		[]string{"operation", "result"},
	)

	PushReconnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "marquee_push_reconnects_total",
			Help: "Total number of push channel connection attempts",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version", "binary"},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordSweep records a liveness sweep and the number of devices it marked offline.
func RecordSweep(marked int, err error) {
	if err != nil {
		LivenessSweeps.WithLabelValues("error").Inc()
		return
	}
	LivenessSweeps.WithLabelValues("ok").Inc()
	if marked > 0 {
		DeviceStatusTransitions.WithLabelValues("offline").Add(float64(marked))
	}
}

// SessionStates lists every state label so SetSessionState can zero the others.
var SessionStates = []string{"initializing", "ready", "playing", "transitioning", "deregistered"}

// SetSessionState marks state as the current session state.
func SetSessionState(state string) {
	for _, s := range SessionStates {
		v := 0.0
		if s == state {
			v = 1
		}
		SessionState.WithLabelValues(s).Set(v)
	}
}
