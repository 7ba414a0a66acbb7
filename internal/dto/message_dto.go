package dto

import (
	"time"

	"github.com/google/uuid"
)

type MessageResponse struct {
	Id         uuid.UUID              `json:"id"`
	Role       string                 `json:"role"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	Status     string                 `json:"status"`
	DocumentId *uuid.UUID             `json:"document_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

type FollowUpResponse struct {
	Id         uuid.UUID `json:"id"`
	DocumentId uuid.UUID `json:"document_id"`
	Question   string    `json:"question"`
	Clicked    bool      `json:"clicked"`
}
