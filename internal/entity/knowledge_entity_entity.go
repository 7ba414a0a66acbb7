package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntity is a named concept, unique per (session, name).
type KnowledgeEntity struct {
	Id        uuid.UUID
	SessionId uuid.UUID
	Name      string
	CreatedAt time.Time
}

// EntityLink ties an entity to the document that explains it.
type EntityLink struct {
	Id         uuid.UUID
	EntityId   uuid.UUID
	DocumentId uuid.UUID
	Relation   string
	Confidence float64
	CreatedAt  time.Time
}

const RelationExplains = "explains"
