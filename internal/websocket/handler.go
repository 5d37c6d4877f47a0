package websocket

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs a session on conn until the peer leaves or handle fails.
// It blocks, as the fiber websocket handler must.
func ServeWs(ctx context.Context, hub *Hub, conn *websocket.Conn, userID uuid.UUID, handle RequestHandler) {
	client := newClient(hub, conn, userID)
	if !hub.add(client) {
		conn.Close()
		return
	}

	go client.writePump()
	client.readPump(ctx, handle)
}
