// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package registryclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

// DefaultTimeout bounds each registry call when none is configured.
const DefaultTimeout = 5 * time.Second

const (
	breakerName  = "registry-api"
	maxErrorBody = 64 << 10
	apiSuffix    = "/api/v1"
)

// Registration is the body of a register call.
type Registration struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// Client talks to one registry.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker[[]byte]
}

// New creates a client for the registry API rooted at baseURL, e.g.
// "http://registry:3000/api/v1".
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, apperr.E(apperr.ErrValidation, "registry URL %q is not absolute", baseURL)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// Client errors are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, apperr.ErrNetworkUnavailable)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}, nil
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// PushURL returns the registry's push channel URL, derived from the API root.
func (c *Client) PushURL() string {
	u, _ := url.Parse(c.baseURL)
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), apiSuffix) + "/ws"
	u.RawQuery = ""
	return u.String()
}

// Register registers this device using a one-time registration token.
func (c *Client) Register(ctx context.Context, token string, reg Registration) (*models.Device, error) {
	body, err := json.Marshal(reg)
	if err != nil {
		return nil, fmt.Errorf("failed to encode registration: %w", err)
	}
	var dev models.Device
	if err := c.call(ctx, "register", http.MethodPost, "/devices/register", token, body, &dev); err != nil {
		return nil, err
	}
	return &dev, nil
}

// Heartbeat reports the device as alive.
func (c *Client) Heartbeat(ctx context.Context, deviceID string) error {
	return c.call(ctx, "heartbeat", http.MethodPost, "/devices/"+url.PathEscape(deviceID)+"/heartbeat", "", nil, nil)
}

// AssignedPlaylists fetches the device's authoritative assignment snapshot.
func (c *Client) AssignedPlaylists(ctx context.Context, deviceID string) ([]models.Playlist, error) {
	var playlists []models.Playlist
	if err := c.call(ctx, "playlists", http.MethodGet, "/devices/"+url.PathEscape(deviceID)+"/playlists", "", nil, &playlists); err != nil {
		return nil, err
	}
	if playlists == nil {
		playlists = []models.Playlist{}
	}
	return playlists, nil
}

// call runs one request through the breaker and decodes the envelope's data
// into out when out is non-nil.
func (c *Client) call(ctx context.Context, op, method, path, bearer string, body []byte, out interface{}) error {
	data, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, bearer, body)
	})
	if err != nil {
		result := "failure"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
			err = apperr.Wrap(apperr.ErrNetworkUnavailable, err, "registry unavailable")
			result = "rejected"
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
		}
		metrics.RegistryClientRequests.WithLabelValues(op, result).Inc()
		return err
	}
	metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	metrics.RegistryClientRequests.WithLabelValues(op, "success").Inc()

	if out == nil {
		return nil
	}
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return apperr.Wrap(apperr.ErrNetworkUnavailable, err, "malformed registry response")
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperr.Wrap(apperr.ErrNetworkUnavailable, err, "malformed registry response")
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body []byte) ([]byte, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrNetworkUnavailable, err, "%s %s failed", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrNetworkUnavailable, err, "failed to read registry response")
		}
		return data, nil
	}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return nil, responseError(resp.StatusCode, data)
}

// responseError maps a non-2xx registry response onto an apperr kind.
func responseError(status int, body []byte) error {
	var envelope models.APIResponse
	msg := http.StatusText(status)
	code := ""
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != nil {
		code = envelope.Error.Code
		msg = envelope.Error.Message
	}

	switch {
	case code == "NOT_FOUND" || (code == "" && status == http.StatusNotFound):
		return apperr.E(apperr.ErrNotFound, "%s", msg)
	case code == "CONFLICT" || (code == "" && status == http.StatusConflict):
		return apperr.E(apperr.ErrConflict, "%s", msg)
	case code == "INVALID_CREDENTIAL" || status == http.StatusUnauthorized:
		return apperr.E(apperr.ErrInvalidCredential, "%s", msg)
	case code == "VALIDATION_ERROR" || (code == "" && status == http.StatusBadRequest):
		return apperr.E(apperr.ErrValidation, "%s", msg)
	default:
		return apperr.E(apperr.ErrNetworkUnavailable, "registry returned status %d: %s", status, msg)
	}
}
