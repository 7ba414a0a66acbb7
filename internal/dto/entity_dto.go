package dto

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeEntityResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	// Documents that explain this entity, newest first.
	ExplainedBy []EntityLinkResponse `json:"explained_by"`
}

type EntityLinkResponse struct {
	DocumentId uuid.UUID `json:"document_id"`
	Relation   string    `json:"relation"`
	Confidence float64   `json:"confidence"`
}
