package entity

import (
	"time"

	"github.com/google/uuid"
)

// Message status values. A placeholder is created the moment generation
// starts and either completed in place or deleted, never left generating.
const (
	MessageStatusGenerating = "generating"
	MessageStatusComplete   = "complete"
)

type Message struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	Role       string
	Content    string
	Source     string
	Status     string
	DocumentId *uuid.UUID
	// Metadata carries the intent result and routing decision that
	// produced this message.
	Metadata  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt *time.Time
	DeletedAt *time.Time
	IsDeleted bool
}

type FollowUp struct {
	Id         uuid.UUID
	SessionId  uuid.UUID
	DocumentId uuid.UUID
	Question   string
	Clicked    bool
	CreatedAt  time.Time
}
