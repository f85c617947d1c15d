package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"huntnav/internal/model"
)

func TestSyncWSHelloSubscribe(t *testing.T) {
	s := newTestServer(t)
	h := createHunt(t, s, threeStops)

	ts := httptest.NewServer(http.HandlerFunc(s.SyncWSHandler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/hunts/" + h.ID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	if err := conn.WriteJSON(wsMessage{Type: "hello", ID: "0"}); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var ack wsMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("read ack: %v", err)
	}
	if ack.Type != "hello_ack" || ack.ID != "0" {
		t.Fatalf("ack = %+v", ack)
	}
	var snap model.Hunt
	if err := json.Unmarshal(ack.Payload, &snap); err != nil || snap.ID != h.ID {
		t.Fatalf("snapshot = %+v err = %v", snap, err)
	}

	if err := conn.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	// give the read loop a beat to register the subscription
	time.Sleep(50 * time.Millisecond)
	s.publish(context.Background(), h.ID, "waypoint.claimed", map[string]any{"huntId": h.ID})

	var frame wsMessage
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if frame.Type != "event" || frame.ID != "1" {
		t.Fatalf("frame = %+v", frame)
	}
	var evt Event
	if err := json.Unmarshal(frame.Payload, &evt); err != nil || evt.Type != "waypoint.claimed" {
		t.Fatalf("event = %+v err = %v", evt, err)
	}

	if err := conn.WriteJSON(wsMessage{Type: "ping", ID: "2"}); err != nil {
		t.Fatalf("ping: %v", err)
	}
	var pong wsMessage
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != "pong" || pong.ID != "2" {
		t.Fatalf("pong = %+v", pong)
	}
}

func TestSyncWSRejectsUnknownHunt(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(http.HandlerFunc(s.SyncWSHandler))
	defer ts.Close()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/hunts/ghost"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		_ = conn.Close()
		t.Fatal("dial should fail for an unknown hunt")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("handshake response: %+v", resp)
	}
}
