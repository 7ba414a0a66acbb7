// FILE: internal/service/entity_service.go
package service

import (
	"context"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IEntityService interface {
	GetBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.KnowledgeEntityResponse, error)
}

type entityService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewEntityService(uowFactory unitofwork.RepositoryFactory) IEntityService {
	return &entityService{
		uowFactory: uowFactory,
	}
}

func (s *entityService) GetBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.KnowledgeEntityResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	entities, err := uow.EntityRepository().FindBySession(ctx, sessionId)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.KnowledgeEntityResponse, 0)
	for _, e := range entities {
		links, err := uow.EntityRepository().FindLinks(ctx, e.Id)
		if err != nil {
			return nil, err
		}

		linkRes := make([]dto.EntityLinkResponse, 0)
		for _, l := range links {
			linkRes = append(linkRes, dto.EntityLinkResponse{
				DocumentId: l.DocumentId,
				Relation:   l.Relation,
				Confidence: l.Confidence,
			})
		}

		result = append(result, &dto.KnowledgeEntityResponse{
			Id:          e.Id,
			Name:        e.Name,
			CreatedAt:   e.CreatedAt,
			ExplainedBy: linkRes,
		})
	}

	return result, nil
}
