// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package push

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/marquee/internal/apperr"
	"github.com/tomtom215/marquee/internal/logging"
	"github.com/tomtom215/marquee/internal/metrics"
	"github.com/tomtom215/marquee/internal/models"
)

const (
	defaultReconnectWait = 5 * time.Second
	defaultPingInterval  = 30 * time.Second
	handshakeTimeout     = 10 * time.Second
	writeWait            = 10 * time.Second
	maxFrameSize         = 64 * 1024
)

// Handler receives push channel events. Calls come from the client's read
// goroutine, one at a time.
type Handler interface {
	OnConnected(ctx context.Context)
	OnDisconnected(ctx context.Context)
	OnPlaylistUpdated(ctx context.Context)
}

// Config configures a Client.
type Config struct {
	// URL is the registry push endpoint, e.g. ws://registry:3000/ws.
	URL string

	// DeviceID is announced on connect and used to filter playlist-updated.
	DeviceID string

	// ReconnectWait is the minimum spacing between dial attempts.
	ReconnectWait time.Duration

	// PingInterval is how often an application-level ping is sent.
	PingInterval time.Duration
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type outbound struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Client maintains the push connection.
type Client struct {
	cfg     Config
	handler Handler
	limiter *rate.Limiter
	dialer  *websocket.Dialer

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn
}

// New creates a Client. It does not connect until RunWithContext is called.
func New(cfg Config, handler Handler) *Client {
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = defaultReconnectWait
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		limiter: rate.NewLimiter(rate.Every(cfg.ReconnectWait), 1),
		dialer:  &websocket.Dialer{HandshakeTimeout: handshakeTimeout},
	}
}

// Connected reports whether the push channel is currently up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Send writes one frame. It fails with ErrNetworkUnavailable when the
// channel is down.
func (c *Client) Send(msgType string, data interface{}) error {
	payload, err := json.Marshal(outbound{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode %s frame: %w", msgType, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return apperr.E(apperr.ErrNetworkUnavailable, "push channel is not connected")
	}
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return apperr.Wrap(apperr.ErrNetworkUnavailable, err, "failed to set write deadline")
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return apperr.Wrap(apperr.ErrNetworkUnavailable, err, "failed to send %s", msgType)
	}
	return nil
}

// PlaybackStart announces that an item is about to be shown.
func (c *Client) PlaybackStart(_ context.Context, start models.PlaybackStart) error {
	return c.Send(models.PushPlaybackStart, start)
}

// PlaybackEnd announces that the current item finished.
func (c *Client) PlaybackEnd(_ context.Context, end models.PlaybackEnd) error {
	return c.Send(models.PushPlaybackEnd, end)
}

// RunWithContext connects and reconnects until ctx is canceled.
func (c *Client) RunWithContext(ctx context.Context) error {
	logger := logging.Ctx(ctx).With().Str("url", c.cfg.URL).Logger()
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		metrics.PushReconnects.Inc()

		conn, resp, err := c.dialer.DialContext(ctx, c.cfg.URL, nil)
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Debug().Err(err).Msg("Push channel dial failed")
			continue
		}

		logger.Info().Msg("Push channel connected")
		c.serve(ctx, conn)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Info().Msg("Push channel disconnected")
	}
}

// serve runs one connection until it drops or ctx is canceled.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxFrameSize)

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	done := make(chan struct{})
	announced := false
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.keepalive(ctx, conn, done)
	}()

	defer func() {
		close(done)
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		wg.Wait()
		if announced && c.handler != nil {
			c.handler.OnDisconnected(ctx)
		}
	}()

	if err := c.Send(models.PushDeviceOnline, models.DeviceOnlineMessage{DeviceID: c.cfg.DeviceID}); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("Failed to announce device")
		return
	}
	announced = true
	if c.handler != nil {
		c.handler.OnConnected(ctx)
	}

	readWait := 3 * c.cfg.PingInterval
	for {
		if err := conn.SetReadDeadline(time.Now().Add(readWait)); err != nil {
			return
		}
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Ctx(ctx).Debug().Err(err).Msg("Push channel read failed")
			}
			return
		}
		c.dispatch(ctx, payload)
	}
}

func (c *Client) dispatch(ctx context.Context, payload []byte) {
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Ignoring malformed push frame")
		return
	}
	if f.Type != models.PushPlaylistUpdated {
		return
	}
	var msg models.PlaylistUpdated
	if err := json.Unmarshal(f.Data, &msg); err != nil {
		logging.Ctx(ctx).Debug().Err(err).Msg("Ignoring malformed playlist-updated frame")
		return
	}
	if msg.DeviceID != c.cfg.DeviceID {
		return
	}
	if c.handler != nil {
		c.handler.OnPlaylistUpdated(ctx)
	}
}

// keepalive pings the registry and closes conn when ctx is canceled so the
// blocked read returns.
func (c *Client) keepalive(ctx context.Context, conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			c.mu.Lock()
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
			c.mu.Unlock()
			_ = conn.Close()
			return
		case <-ticker.C:
			if err := c.Send(models.PushPing, nil); err != nil {
				logging.Ctx(ctx).Debug().Err(err).Msg("Push ping failed")
				_ = conn.Close()
				return
			}
		}
	}
}
