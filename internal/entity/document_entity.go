package entity

import (
	"time"

	"github.com/google/uuid"
)

type Document struct {
	Id               uuid.UUID
	SessionId        uuid.UUID
	Topic            string
	Content          string
	Version          int
	CategoryPath     string
	Entities         []string
	RoadmapId        *uuid.UUID
	MilestoneId      *int
	ParentDocumentId *uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        *time.Time
	DeletedAt        *time.Time
	IsDeleted        bool
}

// DocumentVersion is an immutable snapshot taken on every content revision.
type DocumentVersion struct {
	Id            uuid.UUID
	DocumentId    uuid.UUID
	Version       int
	Content       string
	ChangeSummary string
	CreatedAt     time.Time
}
