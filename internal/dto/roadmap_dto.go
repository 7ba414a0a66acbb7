package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-learnpath-be/internal/entity"
)

type ShowRoadmapResponse struct {
	Id         uuid.UUID                 `json:"id"`
	SessionId  uuid.UUID                 `json:"session_id"`
	Goal       string                    `json:"goal"`
	Milestones []entity.RoadmapMilestone `json:"milestones"`
	Mermaid    string                    `json:"mermaid"`
	Version    int                       `json:"version"`
	IsActive   bool                      `json:"is_active"`
	Progress   float64                   `json:"progress"`
	CreatedAt  time.Time                 `json:"created_at"`
}

type CompleteMilestoneRequest struct {
	MilestoneId int `json:"milestone_id" validate:"min=0"`
}

type CompleteMilestoneResponse struct {
	Id       uuid.UUID `json:"id"`
	Version  int       `json:"version"`
	Progress float64   `json:"progress"`
}
