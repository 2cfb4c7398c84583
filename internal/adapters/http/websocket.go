package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/staymap/internal/adapters/nats"
	"github.com/samirrijal/staymap/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to catalog changes.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	City   string `json:"city"`   // city filter (optional, "" = all)
}

// WebSocketHandler returns a handler that relays catalog change notices to
// connected clients so open maps can refetch their markers. Notices carry a
// property ID and city, never a position.
// Clients send JSON: {"action":"subscribe","city":"Lisbon"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Debug("ws client connected", "remote", remoteAddr)

		if nc == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"events unavailable"}`))
			return
		}

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			data, err := natsadapter.EventJSON(msg.Data)
			if err != nil {
				slog.Warn("ws relay: undecodable event", "subject", msg.Subject, "error", err)
				return
			}
			_ = writeJSON(json.RawMessage(data))
		}

		// Every city until the client narrows the feed
		sub, err := nc.Subscribe(natsadapter.SubjectPropertyAll, relay)
		if err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}
		subs[natsadapter.SubjectPropertyAll] = sub

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject := natsadapter.SubjectPropertyAll
			if m.City != "" {
				subject = natsadapter.CitySubject(m.City)
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				// A city subscription narrows the default feed.
				if all, ok := subs[natsadapter.SubjectPropertyAll]; ok && subject != natsadapter.SubjectPropertyAll {
					_ = all.Unsubscribe()
					delete(subs, natsadapter.SubjectPropertyAll)
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Debug("ws client disconnected", "remote", remoteAddr)
	}
}
