package websocket

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/repository/memory"
	"ai-learnpath-be/internal/service"
	"ai-learnpath-be/pkg/agent/events"
	"ai-learnpath-be/pkg/store"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// Session this connection streams.
	SessionID uuid.UUID

	// Owner of the session.
	UserID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte

	agentService service.IAgentService
	turns        *memory.TurnRepository
}

// inboundFrame is the tagged union of everything a client may send: either
// a turn request (source set) or a cancel (action set).
type inboundFrame struct {
	Action string `json:"action"`
	dto.TurnRequest
}

// readPump pumps messages from the websocket connection to the hub.
func (c *Client) readPump() {
	defer func() {
		log.Printf("readPump exiting for session %s", c.SessionID)
		// A dropped connection aborts the run it started.
		c.cancelTurn()
		c.Hub.unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log.Printf("readPump started for session %s", c.SessionID)
	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			log.Printf("readPump error for session %s: %v", c.SessionID, err)
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error: %v", err)
			}
			break
		}

		var frame inboundFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("无法解析请求。")
			continue
		}

		if frame.Action == "cancel" {
			c.cancelTurn()
			continue
		}

		c.startTurn(&frame.TurnRequest)
	}
}

// startTurn launches one agent run for this session. A session runs at most
// one turn at a time; a second request while one is in flight is rejected.
func (c *Client) startTurn(req *dto.TurnRequest) {
	if req.Source == "" {
		c.sendError("缺少 source 字段。")
		return
	}

	if _, running := c.turns.Get(c.SessionID.String()); running {
		c.sendError("上一轮仍在进行中, 请稍候或取消。")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.turns.Save(&store.Turn{
		ID:        c.SessionID.String(),
		UserID:    c.UserID.String(),
		Message:   req.Message,
		Source:    req.Source,
		StartedAt: time.Now(),
		Cancel:    cancel,
	})

	go func() {
		defer func() {
			cancel()
			c.turns.Delete(c.SessionID.String())
		}()

		err := c.agentService.RunTurn(ctx, c.UserID, c.SessionID, req, c.Hub.Emitter(c.SessionID))
		if err != nil && ctx.Err() == nil {
			log.Printf("turn failed for session %s: %v", c.SessionID, err)
		}
	}()
}

func (c *Client) cancelTurn() {
	if turn, ok := c.turns.Get(c.SessionID.String()); ok && turn.Cancel != nil {
		turn.Cancel()
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(events.New(events.TypeError, map[string]interface{}{
		"message": message,
	}))
	select {
	case c.Send <- data:
	default:
	}
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		log.Printf("writePump exiting for session %s", c.SessionID)
		ticker.Stop()
		c.Conn.Close()
	}()

	log.Printf("writePump started for session %s", c.SessionID)
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One frame per event; every frame is a standalone JSON
			// envelope the client can decode without a stream parser.
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("writePump Ping error for session %s: %v", c.SessionID, err)
				return
			}
		}
	}
}
