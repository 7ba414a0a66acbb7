// Package events defines the lifecycle event vocabulary streamed to
// clients while an agent turn executes.
package events

// Event types, in rough emission order within a turn.
const (
	TypeThinking      = "thinking"
	TypeNodeStart     = "node_start"
	TypeNodeEnd       = "node_end"
	TypeToolStart     = "tool_start"
	TypeToolEnd       = "tool_end"
	TypeDocumentStart = "document_start"
	TypeDocumentToken = "document_token"
	TypeDocument      = "document"
	TypeRoadmap       = "roadmap"
	TypeEntities      = "entities"
	TypeFollowUps     = "follow_ups"
	TypeNavigation    = "navigation"
	TypeContent       = "content"
	TypeProgress      = "progress"
	TypeError         = "error"
	TypeDone          = "done"
)

// Event is the wire envelope pushed to the client channel.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func New(eventType string, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{Type: eventType, Data: data}
}

// Emitter pushes events toward the client. Implementations must preserve
// emission order; the core never waits for acknowledgment.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event Event)

func (f EmitterFunc) Emit(event Event) {
	f(event)
}
