package websocket

import (
	"context"
	"time"

	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/pkg/metrics"

	"github.com/google/uuid"
)

// Hub tracks open playground sessions so they can be counted and closed on
// shutdown.
type Hub struct {
	// UserID -> open sessions (multi-tab)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	count      chan chan int
	done       chan struct{}

	logger logger.ILogger
}

func NewHub(log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     log,
	}
}

// Run owns the session map until ctx is done, then closes every session.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			metrics.PlaygroundSessions.Inc()
			h.logger.Info("WS", "Session opened", map[string]interface{}{"user_id": client.UserID.String()})

		case client := <-h.unregister:
			h.remove(client)

		case reply := <-h.count:
			n := 0
			for _, clients := range h.clients {
				n += len(clients)
			}
			reply <- n

		case <-ctx.Done():
			for _, clients := range h.clients {
				for _, c := range clients {
					c.close()
				}
			}
			h.drain()
			return
		}
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			metrics.PlaygroundSessions.Dec()
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
	}
	h.logger.Info("WS", "Session closed", map[string]interface{}{"user_id": client.UserID.String()})
}

// drain keeps accepting unregisters from sessions still winding down.
func (h *Hub) drain() {
	timeout := time.NewTimer(writeWait)
	defer timeout.Stop()
	for len(h.clients) > 0 {
		select {
		case client := <-h.unregister:
			h.remove(client)
		case <-timeout.C:
			return
		}
	}
}

func (h *Hub) add(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Count returns the number of open sessions, or 0 once Run has returned.
func (h *Hub) Count() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}
