package websocket

import (
	"ai-learnpath-be/internal/repository/memory"
	"ai-learnpath-be/internal/service"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs handles websocket requests from the peer.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID, userID uuid.UUID, agentService service.IAgentService, turns *memory.TurnRepository) {
	client := &Client{
		Hub:          hub,
		Conn:         c,
		SessionID:    sessionID,
		UserID:       userID,
		Send:         make(chan []byte, 256),
		agentService: agentService,
		turns:        turns,
	}
	client.Hub.register <- client

	// Allow collection of memory referenced by the caller by doing all work in
	// new goroutines.
	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
