package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Document struct {
	Id               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId        uuid.UUID       `gorm:"type:uuid;not null;index"`
	Topic            string          `gorm:"type:text;not null;index"`
	Content          string          `gorm:"type:text;not null"`
	Version          int             `gorm:"not null;default:1"`
	CategoryPath     string          `gorm:"type:text"`
	Entities         datatypes.JSON  `gorm:"type:jsonb"`
	TopicEmbedding   pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text uses 768 dimensions
	RoadmapId        *uuid.UUID      `gorm:"type:uuid;index"`
	MilestoneId      *int            `gorm:""`
	ParentDocumentId *uuid.UUID      `gorm:"type:uuid"`
	CreatedAt        time.Time       `gorm:"autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime"`
	DeletedAt        gorm.DeletedAt  `gorm:"index"`
}

func (Document) TableName() string {
	return "documents"
}

type DocumentVersion struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentId    uuid.UUID `gorm:"type:uuid;not null;index"`
	Version       int       `gorm:"not null"`
	Content       string    `gorm:"type:text;not null"`
	ChangeSummary string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}
