package dto

import (
	"time"

	"github.com/google/uuid"
)

type ShowDocumentResponse struct {
	Id               uuid.UUID  `json:"id"`
	SessionId        uuid.UUID  `json:"session_id"`
	Topic            string     `json:"topic"`
	Content          string     `json:"content"`
	Version          int        `json:"version"`
	CategoryPath     string     `json:"category_path"`
	Entities         []string   `json:"entities"`
	RoadmapId        *uuid.UUID `json:"roadmap_id"`
	MilestoneId      *int       `json:"milestone_id"`
	ParentDocumentId *uuid.UUID `json:"parent_document_id"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        *time.Time `json:"updated_at"`
}

// DocumentListItemResponse omits content so the sidebar tree stays cheap.
type DocumentListItemResponse struct {
	Id           uuid.UUID `json:"id"`
	Topic        string    `json:"topic"`
	Version      int       `json:"version"`
	CategoryPath string    `json:"category_path"`
	CreatedAt    time.Time `json:"created_at"`
}

type DocumentVersionResponse struct {
	Version       int       `json:"version"`
	Content       string    `json:"content"`
	ChangeSummary string    `json:"change_summary"`
	CreatedAt     time.Time `json:"created_at"`
}

// PublishEmbedDocumentMessage asks the background indexer to (re)compute a
// document's topic embedding.
type PublishEmbedDocumentMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
