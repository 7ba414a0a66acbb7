package store

import (
	"context"
	"time"
)

// Turn represents an in-flight agent run for a session. It lives only in
// memory: the registry is how the websocket layer enforces the one-turn-per-
// session rule and how a disconnect reaches the running pipeline.
type Turn struct {
	ID        string `json:"id"` // LearningSessionID
	UserID    string `json:"user_id"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	StartedAt time.Time

	// Cancel aborts the pipeline run bound to this turn.
	Cancel context.CancelFunc `json:"-"`
}
