package model

import (
	"time"

	"github.com/google/uuid"
)

type KnowledgeEntity struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entity_session_name"`
	Name      string    `gorm:"type:text;not null;uniqueIndex:idx_entity_session_name"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

func (KnowledgeEntity) TableName() string {
	return "knowledge_entities"
}

type EntityLink struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EntityId   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entity_links_entity_document"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_entity_links_entity_document;index"`
	Relation   string    `gorm:"type:varchar(50);not null"`
	Confidence float64   `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (EntityLink) TableName() string {
	return "entity_links"
}
