package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "TURN_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent helps embed common logic if needed,
// strictly creating valid implementations is preferred though.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Domain event codes emitted by the agent pipeline.
const (
	TypeTurnCompleted   = "TURN_COMPLETED"
	TypeDocumentCreated = "DOCUMENT_CREATED"
	TypeRoadmapCreated  = "ROADMAP_CREATED"
)

func newBaseEvent(eventType string, data map[string]interface{}) BaseEvent {
	now := time.Now()
	// The payload carries its own timestamp so consumers on the far side of
	// the bus see emission time, not receipt time.
	data["occurred_at"] = now.Format(time.RFC3339Nano)
	return BaseEvent{Type: eventType, Data: data, OccurredAt: now}
}

func NewTurnCompletedEvent(sessionId, userId string, source string) Event {
	return newBaseEvent(TypeTurnCompleted, map[string]interface{}{
		"session_id": sessionId,
		"user_id":    userId,
		"source":     source,
	})
}

func NewDocumentCreatedEvent(sessionId, documentId, topic string, version int) Event {
	return newBaseEvent(TypeDocumentCreated, map[string]interface{}{
		"session_id":  sessionId,
		"document_id": documentId,
		"topic":       topic,
		"version":     version,
	})
}

func NewRoadmapCreatedEvent(sessionId, roadmapId, goal string, version int) Event {
	return newBaseEvent(TypeRoadmapCreated, map[string]interface{}{
		"session_id": sessionId,
		"roadmap_id": roadmapId,
		"goal":       goal,
		"version":    version,
	})
}
