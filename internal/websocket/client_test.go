package websocket

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"ai-learnpath-be/pkg/agent/events"

	gws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"
	fws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// Every event goes out as its own text frame so clients can decode each
// message as one JSON envelope, even when several events are queued.
func TestWritePumpOneFramePerEvent(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	sessionID := uuid.New()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Get("/ws", fws.New(func(conn *fws.Conn) {
		client := &Client{Hub: h, Conn: conn, SessionID: sessionID, Send: make(chan []byte, 16)}
		h.register <- client
		client.writePump()
	}))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go app.Listener(ln)
	defer app.Shutdown()

	conn, _, err := gws.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	waitFor(t, func() bool { return h.clientCount(sessionID) == 1 })

	for i := 0; i < 3; i++ {
		h.Send(sessionID, events.New(events.TypeDocumentToken, map[string]interface{}{"token": fmt.Sprintf("t%d", i)}))
	}

	for i := 0; i < 3; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		var evt events.Event
		if err := json.Unmarshal(data, &evt); err != nil {
			t.Fatalf("frame %d is not a single event envelope: %v", i, err)
		}
		if evt.Type != events.TypeDocumentToken {
			t.Errorf("frame %d type = %q, want %q", i, evt.Type, events.TypeDocumentToken)
		}
	}
}
