package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"huntnav/internal/metrics"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(_ *http.Request) bool { return true }}

// wsMessage is one frame of the hunt sync protocol. ID correlates replies
// and event frames with the client message that started them.
type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SyncWSHandler handles GET /ws/hunts/{id}. Protocol: client sends hello,
// server replies hello_ack with a hunt snapshot; subscribe starts event
// frames; unsubscribe stops them. The server pings every 20s and drops the
// connection after 60s without traffic.
func (s *Server) SyncWSHandler(w http.ResponseWriter, r *http.Request) {
	huntID := strings.TrimPrefix(r.URL.Path, "/ws/hunts/")
	if huntID == "" || huntID == r.URL.Path || strings.Contains(huntID, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing hunt id", r.URL.Path)
		return
	}
	if _, err := s.Store.GetHunt(r.Context(), huntID); err != nil {
		writeStoreErr(w, err, "Get hunt failed", r.URL.Path)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer func() { _ = conn.Close() }()
	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	// gorilla allows a single concurrent writer; the keepalive and fanout
	// goroutines share the connection with the read loop's replies
	var wmu sync.Mutex
	write := func(v any) error {
		wmu.Lock()
		defer wmu.Unlock()
		return conn.WriteJSON(v)
	}

	subs := map[string]chan Event{}
	defer func() {
		for id, ch := range subs {
			s.Broker.Unsubscribe(huntID, ch)
			delete(subs, id)
		}
	}()

	keepaliveStarted := false
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		switch msg.Type {
		case "hello":
			h, err := s.Store.GetHunt(r.Context(), huntID)
			if err != nil {
				_ = write(wsMessage{Type: "error", ID: msg.ID, Payload: []byte(`{"message":"hunt not found"}`)})
				continue
			}
			payload, _ := json.Marshal(h)
			_ = write(wsMessage{Type: "hello_ack", ID: msg.ID, Payload: payload})
			if !keepaliveStarted {
				keepaliveStarted = true
				go func() {
					ticker := time.NewTicker(20 * time.Second)
					defer ticker.Stop()
					for range ticker.C {
						if err := write(wsMessage{Type: "ping"}); err != nil {
							return
						}
					}
				}()
			}
		case "ping":
			_ = write(wsMessage{Type: "pong", ID: msg.ID})
		case "subscribe":
			if _, ok := subs[msg.ID]; ok {
				continue
			}
			ch := s.Broker.Subscribe(huntID)
			subs[msg.ID] = ch
			go func(id string, c chan Event) {
				for evt := range c {
					payload, _ := json.Marshal(evt)
					if err := write(wsMessage{Type: "event", ID: id, Payload: payload}); err != nil {
						return
					}
				}
				_ = write(wsMessage{Type: "complete", ID: id})
			}(msg.ID, ch)
		case "unsubscribe":
			if ch, ok := subs[msg.ID]; ok {
				s.Broker.Unsubscribe(huntID, ch)
				delete(subs, msg.ID)
			}
		default:
			// ignore
		}
	}
}
