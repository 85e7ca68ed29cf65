// Marquee - Digital Signage Fleet Coordination
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/marquee

package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/marquee/internal/models"
)

type recordedFrame struct {
	connID string
	typ    string
	data   string
}

type recordingHandler struct {
	mu          sync.Mutex
	frames      []recordedFrame
	disconnects []string
	notify      chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{notify: make(chan struct{}, 16)}
}

func (h *recordingHandler) OnMessage(_ context.Context, connID, msgType string, data json.RawMessage) {
	h.mu.Lock()
	h.frames = append(h.frames, recordedFrame{connID: connID, typ: msgType, data: string(data)})
	h.mu.Unlock()
	h.notify <- struct{}{}
}

func (h *recordingHandler) OnDisconnect(_ context.Context, connID string) {
	h.mu.Lock()
	h.disconnects = append(h.disconnects, connID)
	h.mu.Unlock()
	h.notify <- struct{}{}
}

func (h *recordingHandler) wait(t *testing.T) {
	t.Helper()
	select {
	case <-h.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for handler call")
	}
}

// startServer serves /ws backed by hub and returns a dial URL.
func startServer(t *testing.T, hub *Hub) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	var frame map[string]json.RawMessage
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("frame %s is not JSON: %v", data, err)
	}
	return frame
}

func TestClient_PingPong(t *testing.T) {
	hub := setupHub(t)
	conn := dial(t, startServer(t, hub))
	defer conn.Close()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}
	frame := readFrame(t, conn)
	if string(frame["type"]) != `"pong"` {
		t.Errorf("type = %s, want \"pong\"", frame["type"])
	}
}

func TestClient_BroadcastFrameShape(t *testing.T) {
	hub := setupHub(t)
	conn := dial(t, startServer(t, hub))
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.BroadcastJSON(models.PushPlaylistUpdated, map[string]string{"deviceId": "lobby-1"})

	frame := readFrame(t, conn)
	if string(frame["type"]) != `"playlist-updated"` {
		t.Errorf("type = %s", frame["type"])
	}
	if string(frame["data"]) != `{"deviceId":"lobby-1"}` {
		t.Errorf("data = %s", frame["data"])
	}
}

func TestClient_RoutesFramesAndDisconnect(t *testing.T) {
	hub := setupHub(t)
	handler := newRecordingHandler()
	hub.SetHandler(handler)
	conn := dial(t, startServer(t, hub))

	frames := []string{
		`{"type":"DEVICE_ONLINE","data":{"deviceId":"lobby-1"}}`,
		`not json`,
		`{"type":"PLAYBACK_END"}`,
	}
	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
	}
	handler.wait(t)
	handler.wait(t)

	_ = conn.Close()
	handler.wait(t)

	handler.mu.Lock()
	defer handler.mu.Unlock()
	if len(handler.frames) != 2 {
		t.Fatalf("frames = %+v, want 2", handler.frames)
	}
	if handler.frames[0].typ != models.PushDeviceOnline || handler.frames[0].data != `{"deviceId":"lobby-1"}` {
		t.Errorf("frames[0] = %+v", handler.frames[0])
	}
	if handler.frames[1].typ != models.PushPlaybackEnd {
		t.Errorf("frames[1] = %+v", handler.frames[1])
	}
	if len(handler.disconnects) != 1 || handler.disconnects[0] != handler.frames[0].connID {
		t.Errorf("disconnects = %v, want [%s]", handler.disconnects, handler.frames[0].connID)
	}
}
