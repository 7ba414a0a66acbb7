package websocket

import (
	"testing"
	"time"

	"ai-learnpath-be/pkg/agent/events"

	"github.com/google/uuid"
)

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func (h *Hub) clientCount(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

// A client that never drains its Send channel gets dropped, and only the
// unregister path closes the channel. A second unregister of the same
// client must be a no-op rather than a double close.
func TestHubDropsSlowClientOnce(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	sessionID := uuid.New()
	client := &Client{Hub: h, SessionID: sessionID, Send: make(chan []byte)}
	h.register <- client
	waitFor(t, func() bool { return h.clientCount(sessionID) == 1 })

	h.Send(sessionID, events.New(events.TypeDone, nil))
	waitFor(t, func() bool { return h.clientCount(sessionID) == 0 })

	select {
	case _, ok := <-client.Send:
		if ok {
			t.Fatal("expected Send to be closed after unregister")
		}
	default:
		t.Fatal("Send still open after unregister")
	}

	// readPump enqueues its own unregister when the connection drops.
	h.unregister <- client
	h.Send(sessionID, events.New(events.TypeDone, nil))
	waitFor(t, func() bool { return h.clientCount(sessionID) == 0 })
}

func TestHubDeliversToRegisteredClient(t *testing.T) {
	h := NewHub(nil, nopLogger{})
	go h.Run()

	sessionID := uuid.New()
	client := &Client{Hub: h, SessionID: sessionID, Send: make(chan []byte, 8)}
	h.register <- client
	waitFor(t, func() bool { return h.clientCount(sessionID) == 1 })

	h.Emitter(sessionID).Emit(events.New(events.TypeDone, nil))

	select {
	case data := <-client.Send:
		if len(data) == 0 {
			t.Fatal("empty frame delivered")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no frame delivered")
	}
}
