package mapper

import (
	"encoding/json"
	"time"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/model"
)

type RoadmapMapper struct{}

func NewRoadmapMapper() *RoadmapMapper {
	return &RoadmapMapper{}
}

func (m *RoadmapMapper) RoadmapToEntity(r *model.Roadmap) *entity.Roadmap {
	if r == nil {
		return nil
	}

	var updatedAt *time.Time
	if !r.UpdatedAt.IsZero() {
		t := r.UpdatedAt
		updatedAt = &t
	}

	var milestones []entity.RoadmapMilestone
	if len(r.Milestones) > 0 {
		_ = json.Unmarshal(r.Milestones, &milestones)
	}

	return &entity.Roadmap{
		Id:              r.Id,
		SessionId:       r.SessionId,
		Goal:            r.Goal,
		Milestones:      milestones,
		Mermaid:         r.Mermaid,
		Version:         r.Version,
		IsActive:        r.IsActive,
		ParentRoadmapId: r.ParentRoadmapId,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}

func (m *RoadmapMapper) RoadmapToModel(r *entity.Roadmap) *model.Roadmap {
	if r == nil {
		return nil
	}

	var updatedAt time.Time
	if r.UpdatedAt != nil {
		updatedAt = *r.UpdatedAt
	}

	milestones, err := json.Marshal(r.Milestones)
	if err != nil {
		milestones = []byte("[]")
	}

	return &model.Roadmap{
		Id:              r.Id,
		SessionId:       r.SessionId,
		Goal:            r.Goal,
		Milestones:      milestones,
		Mermaid:         r.Mermaid,
		Version:         r.Version,
		IsActive:        r.IsActive,
		ParentRoadmapId: r.ParentRoadmapId,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       updatedAt,
	}
}
