// FILE: internal/service/document_service.go
package service

import (
	"context"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IDocumentService interface {
	GetBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.DocumentListItemResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error)
	GetVersions(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.DocumentVersionResponse, error)
	Search(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, topic string) ([]*dto.DocumentListItemResponse, error)
	GetFollowUps(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.FollowUpResponse, error)
}

type documentService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewDocumentService(uowFactory unitofwork.RepositoryFactory) IDocumentService {
	return &documentService{
		uowFactory: uowFactory,
	}
}

// ownsSession verifies the session belongs to the user before any
// document of it is exposed.
func (s *documentService) ownsSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (bool, error) {
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

func (s *documentService) GetBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.DocumentListItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := s.ownsSession(ctx, uow, userId, sessionId)
	if err != nil || !owned {
		return nil, err
	}

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	return toListItems(documents), nil
}

func (s *documentService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	owned, err := s.ownsSession(ctx, uow, userId, document.SessionId)
	if err != nil || !owned {
		return nil, err
	}

	return &dto.ShowDocumentResponse{
		Id:               document.Id,
		SessionId:        document.SessionId,
		Topic:            document.Topic,
		Content:          document.Content,
		Version:          document.Version,
		CategoryPath:     document.CategoryPath,
		Entities:         document.Entities,
		RoadmapId:        document.RoadmapId,
		MilestoneId:      document.MilestoneId,
		ParentDocumentId: document.ParentDocumentId,
		CreatedAt:        document.CreatedAt,
		UpdatedAt:        document.UpdatedAt,
	}, nil
}

func (s *documentService) GetVersions(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.DocumentVersionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	owned, err := s.ownsSession(ctx, uow, userId, document.SessionId)
	if err != nil || !owned {
		return nil, err
	}

	versions, err := uow.DocumentRepository().FindVersions(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DocumentVersionResponse, 0)
	for _, v := range versions {
		result = append(result, &dto.DocumentVersionResponse{
			Version:       v.Version,
			Content:       v.Content,
			ChangeSummary: v.ChangeSummary,
			CreatedAt:     v.CreatedAt,
		})
	}

	return result, nil
}

func (s *documentService) Search(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, topic string) ([]*dto.DocumentListItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	owned, err := s.ownsSession(ctx, uow, userId, sessionId)
	if err != nil || !owned {
		return nil, err
	}

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: sessionId},
		specification.ByTopicContains{Topic: topic},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	return toListItems(documents), nil
}

func (s *documentService) GetFollowUps(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.FollowUpResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: id})
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, nil
	}

	owned, err := s.ownsSession(ctx, uow, userId, document.SessionId)
	if err != nil || !owned {
		return nil, err
	}

	followUps, err := uow.FollowUpRepository().FindByDocument(ctx, id)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.FollowUpResponse, 0)
	for _, f := range followUps {
		result = append(result, &dto.FollowUpResponse{
			Id:         f.Id,
			DocumentId: f.DocumentId,
			Question:   f.Question,
			Clicked:    f.Clicked,
		})
	}

	return result, nil
}

func toListItems(documents []*entity.Document) []*dto.DocumentListItemResponse {
	result := make([]*dto.DocumentListItemResponse, 0)
	for _, d := range documents {
		result = append(result, &dto.DocumentListItemResponse{
			Id:           d.Id,
			Topic:        d.Topic,
			Version:      d.Version,
			CategoryPath: d.CategoryPath,
			CreatedAt:    d.CreatedAt,
		})
	}
	return result
}
