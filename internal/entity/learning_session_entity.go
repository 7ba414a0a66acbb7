package entity

import (
	"time"

	"github.com/google/uuid"
)

// Agent activity status values persisted on a session.
const (
	AgentStatusIdle    = "idle"
	AgentStatusRunning = "running"
	AgentStatusError   = "error"
)

type LearningSession struct {
	Id                uuid.UUID
	UserId            uuid.UUID
	Title             string
	LearningGoal      string
	UserLevel         string
	CurrentDocumentId *uuid.UUID
	AgentStatus       string
	AgentStartedAt    *time.Time
	CreatedAt         time.Time
	UpdatedAt         *time.Time
	DeletedAt         *time.Time
	IsDeleted         bool
}
