package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Roadmap struct {
	Id              uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId       uuid.UUID      `gorm:"type:uuid;not null;index"`
	Goal            string         `gorm:"type:text;not null"`
	Milestones      datatypes.JSON `gorm:"type:jsonb;not null"`
	Mermaid         string         `gorm:"type:text"`
	Version         int            `gorm:"not null;default:1"`
	IsActive        bool           `gorm:"not null;default:true;index"`
	ParentRoadmapId *uuid.UUID     `gorm:"type:uuid"`
	CreatedAt       time.Time      `gorm:"autoCreateTime"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime"`
}

func (Roadmap) TableName() string {
	return "roadmaps"
}
