package websocket

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"im-messenger/internal/imtypes"
	"im-messenger/internal/logging"
)

// Hub maintains the set of connected UI subscribers and fans store changes
// out to all of them. All subscribers act for the same local identity.
type Hub struct {
	// Registered clients.
	clients map[*Client]struct{}

	// Encoded changes waiting to be broadcast.
	broadcast chan []byte

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Closed when Run returns.
	done chan struct{}

	log *zap.Logger
}

// NewHub creates a new Hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		log:        logging.OrNop(log),
	}
}

// Publish encodes a change and queues it for broadcast. It never blocks, so it
// can be passed directly to Store.Subscribe. Changes are dropped when the
// queue is full.
func (h *Hub) Publish(change imtypes.Change) {
	data, err := json.Marshal(change)
	if err != nil {
		h.log.Error("encode change failed", zap.String("kind", string(change.Kind)), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		h.log.Warn("hub broadcast queue full, dropping change",
			zap.String("kind", string(change.Kind)),
			zap.String("targetId", change.TargetID))
	}
}

// Run serves register, unregister and broadcast requests until ctx is done.
// On return every client's send channel is closed.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("websocket hub started")
	defer func() {
		for client := range h.clients {
			close(client.send)
			delete(h.clients, client)
		}
		close(h.done)
		h.log.Info("websocket hub stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.log.Debug("client registered", zap.String("clientId", client.ID), zap.Int("clients", len(h.clients)))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.log.Debug("client unregistered", zap.String("clientId", client.ID), zap.Int("clients", len(h.clients)))
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow subscriber: drop it rather than stall the others.
					h.log.Warn("client send buffer full, disconnecting", zap.String("clientId", client.ID))
					close(client.send)
					delete(h.clients, client)
				}
			}
		}
	}
}

// accept registers c, reporting false when the hub has stopped.
func (h *Hub) accept(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) release(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
