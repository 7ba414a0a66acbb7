package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LearningSession struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId            uuid.UUID      `gorm:"type:uuid;not null;index"` // User ownership for data isolation
	Title             string         `gorm:"type:text;not null"`
	LearningGoal      string         `gorm:"type:text"`
	UserLevel         string         `gorm:"type:varchar(50)"`
	CurrentDocumentId *uuid.UUID     `gorm:"type:uuid"`
	AgentStatus       string         `gorm:"type:varchar(20);not null;default:'idle'"`
	AgentStartedAt    *time.Time     `gorm:""`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
	DeletedAt         gorm.DeletedAt `gorm:"index"`
}

func (LearningSession) TableName() string {
	return "learning_sessions"
}
