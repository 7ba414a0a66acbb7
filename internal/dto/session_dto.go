package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	// Title may be empty; an untitled session takes the first generated
	// topic as its title.
	Title        string `json:"title" validate:"max=200"`
	LearningGoal string `json:"learning_goal"`
	UserLevel    string `json:"user_level"`
}

type CreateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowSessionResponse struct {
	Id                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	LearningGoal      string     `json:"learning_goal"`
	UserLevel         string     `json:"user_level"`
	CurrentDocumentId *uuid.UUID `json:"current_document_id"`
	AgentStatus       string     `json:"agent_status"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at"`
}

type SessionListItemResponse struct {
	Id           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	LearningGoal string    `json:"learning_goal"`
	AgentStatus  string    `json:"agent_status"`
	CreatedAt    time.Time `json:"created_at"`
}

type UpdateSessionRequest struct {
	Id           uuid.UUID
	Title        string `json:"title" validate:"required"`
	LearningGoal string `json:"learning_goal"`
	UserLevel    string `json:"user_level"`
}

type UpdateSessionResponse struct {
	Id uuid.UUID `json:"id"`
}
