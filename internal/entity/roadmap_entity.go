package entity

import (
	"time"

	"github.com/google/uuid"
)

type Roadmap struct {
	Id              uuid.UUID
	SessionId       uuid.UUID
	Goal            string
	Milestones      []RoadmapMilestone
	Mermaid         string
	Version         int
	IsActive        bool
	ParentRoadmapId *uuid.UUID
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

type RoadmapMilestone struct {
	Id          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Topics      []string `json:"topics"`
	Completed   bool     `json:"completed"`
}
