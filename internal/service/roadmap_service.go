// FILE: internal/service/roadmap_service.go
package service

import (
	"context"
	"fmt"
	"time"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IRoadmapService interface {
	GetActive(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ShowRoadmapResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowRoadmapResponse, error)
	CompleteMilestone(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.CompleteMilestoneRequest) (*dto.CompleteMilestoneResponse, error)
}

type roadmapService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewRoadmapService(uowFactory unitofwork.RepositoryFactory) IRoadmapService {
	return &roadmapService{
		uowFactory: uowFactory,
	}
}

func (s *roadmapService) ownsSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (bool, error) {
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

func (s *roadmapService) GetActive(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) (*dto.ShowRoadmapResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := s.ownsSession(ctx, uow, userId, sessionId)
	if err != nil || !owned {
		return nil, err
	}

	roadmap, err := uow.RoadmapRepository().GetActiveBySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if roadmap == nil {
		return nil, nil
	}

	return &dto.ShowRoadmapResponse{
		Id:         roadmap.Id,
		SessionId:  roadmap.SessionId,
		Goal:       roadmap.Goal,
		Milestones: roadmap.Milestones,
		Mermaid:    roadmap.Mermaid,
		Version:    roadmap.Version,
		IsActive:   roadmap.IsActive,
		Progress:   milestoneProgress(roadmap.Milestones),
		CreatedAt:  roadmap.CreatedAt,
	}, nil
}

func (s *roadmapService) GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.ShowRoadmapResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := s.ownsSession(ctx, uow, userId, sessionId)
	if err != nil || !owned {
		return nil, err
	}

	roadmaps, err := uow.RoadmapRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "version", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.ShowRoadmapResponse, 0)
	for _, roadmap := range roadmaps {
		result = append(result, &dto.ShowRoadmapResponse{
			Id:         roadmap.Id,
			SessionId:  roadmap.SessionId,
			Goal:       roadmap.Goal,
			Milestones: roadmap.Milestones,
			Mermaid:    roadmap.Mermaid,
			Version:    roadmap.Version,
			IsActive:   roadmap.IsActive,
			Progress:   milestoneProgress(roadmap.Milestones),
			CreatedAt:  roadmap.CreatedAt,
		})
	}

	return result, nil
}

func (s *roadmapService) CompleteMilestone(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.CompleteMilestoneRequest) (*dto.CompleteMilestoneResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := s.ownsSession(ctx, uow, userId, sessionId)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, nil
	}

	roadmap, err := uow.RoadmapRepository().GetActiveBySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}
	if roadmap == nil {
		return nil, nil
	}

	found := false
	for i := range roadmap.Milestones {
		if roadmap.Milestones[i].Id == req.MilestoneId {
			roadmap.Milestones[i].Completed = true
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("milestone %d not found in active roadmap", req.MilestoneId)
	}

	now := time.Now()
	roadmap.UpdatedAt = &now
	if err := uow.RoadmapRepository().Update(ctx, roadmap); err != nil {
		return nil, err
	}

	return &dto.CompleteMilestoneResponse{
		Id:       roadmap.Id,
		Version:  roadmap.Version,
		Progress: milestoneProgress(roadmap.Milestones),
	}, nil
}

// milestoneProgress is computed on read, never stored.
func milestoneProgress(milestones []entity.RoadmapMilestone) float64 {
	if len(milestones) == 0 {
		return 0
	}
	done := 0
	for _, m := range milestones {
		if m.Completed {
			done++
		}
	}
	return float64(done) / float64(len(milestones)) * 100
}
