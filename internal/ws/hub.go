package ws

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"

	"bridge-monitor/server/internal/metrics"
)

// Hub maintains the set of connected dashboard clients and broadcasts
// telemetry and alarm messages to all of them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			metrics.WSClients.Set(float64(len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				metrics.WSClients.Set(float64(len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer: drop the client, not the feed.
					delete(h.clients, client)
					close(client.send)
					metrics.WSClients.Set(float64(len(h.clients)))
				}
			}

		case <-ctx.Done():
			for client := range h.clients {
				close(client.send)
			}
			return
		}
	}
}

// add hands a client to the running hub. It reports false once the hub has
// shut down, so new connections are refused instead of blocking.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// remove never blocks: after shutdown the hub has already closed every
// client's send channel.
func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues a raw message for every connected client.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
	}
}

// PumpRedis forwards Redis pub/sub messages into the hub until the context
// is cancelled. Telemetry and alarm channels are tagged so the frontend can
// route them.
func (h *Hub) PumpRedis(ctx context.Context, sub *redis.PubSub) {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			kind := "telemetry"
			if len(msg.Channel) > 6 && msg.Channel[len(msg.Channel)-6:] == "alarms" {
				kind = "alarm"
			}
			framed, err := json.Marshal(map[string]interface{}{
				"type":    kind,
				"payload": json.RawMessage(msg.Payload),
			})
			if err != nil {
				log.Printf("ws: frame marshal failed: %v", err)
				continue
			}
			h.Broadcast(framed)

		case <-ctx.Done():
			return
		}
	}
}
