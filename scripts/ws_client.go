// Package main runs a demo WebSocket client for hunt events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a hunt with a few waypoints
	body := []byte(`{"name":"ws demo","waypoints":[
		{"mapId":1,"x":0,"y":0,"label":"old oak"},
		{"mapId":1,"x":12,"y":5,"label":"river bend"},
		{"mapId":2,"x":3,"y":3,"label":"cliff cave"}]}`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/hunts", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var hunt struct {
		ID        string `json:"id"`
		Waypoints []struct {
			ID string `json:"id"`
		} `json:"waypoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hunt); err != nil {
		log.Fatal(err)
	}
	if hunt.ID == "" || len(hunt.Waypoints) == 0 {
		log.Fatal("no hunt returned")
	}
	log.Printf("Hunt ID: %s", hunt.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/hunts/" + hunt.ID}
	c, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatal("dial:", err)
	}
	defer func() { _ = c.Close() }()

	// hello -> hello_ack carries the hunt snapshot
	if err := c.WriteJSON(wsMessage{Type: "hello", ID: "0"}); err != nil {
		log.Fatal(err)
	}
	// subscribe to hunt events
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1"}); err != nil {
		log.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var m wsMessage
			if err := c.ReadJSON(&m); err != nil {
				log.Printf("read: %v", err)
				return
			}
			log.Printf("WS <- %s: %s", m.Type, string(m.Payload))
		}
	}()

	// Trigger events: optimize the route, then claim the first waypoint
	time.Sleep(500 * time.Millisecond)
	optReq, _ := http.NewRequest(http.MethodPost, base+"/v1/hunts/"+hunt.ID+"/optimize", bytes.NewReader([]byte("{}")))
	optReq.Header.Set("Content-Type", "application/json")
	_, _ = http.DefaultClient.Do(optReq)

	claim := fmt.Sprintf(`{"waypointId":%q}`, hunt.Waypoints[0].ID)
	clReq, _ := http.NewRequest(http.MethodPost, base+"/v1/hunts/"+hunt.ID+"/claims", bytes.NewReader([]byte(claim)))
	clReq.Header.Set("Content-Type", "application/json")
	clReq.Header.Set("X-Member-Id", "m_demo")
	_, _ = http.DefaultClient.Do(clReq)

	// Wait briefly to receive a few messages
	select {
	case <-time.After(2 * time.Second):
	case <-done:
	}
}
