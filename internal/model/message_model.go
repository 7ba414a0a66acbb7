package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Message struct {
	Id         uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  uuid.UUID      `gorm:"type:uuid;not null;index"`
	Role       string         `gorm:"type:varchar(50);not null"`
	Content    string         `gorm:"type:text;not null"`
	Source     string         `gorm:"type:varchar(20)"`
	Status     string         `gorm:"type:varchar(20);not null;default:'complete'"`
	DocumentId *uuid.UUID     `gorm:"type:uuid"`
	Metadata   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt  time.Time      `gorm:"autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime"`
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (Message) TableName() string {
	return "messages"
}

type FollowUp struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId  uuid.UUID `gorm:"type:uuid;not null;index"`
	DocumentId uuid.UUID `gorm:"type:uuid;not null;index"`
	Question   string    `gorm:"type:text;not null"`
	Clicked    bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (FollowUp) TableName() string {
	return "follow_ups"
}
