// FILE: internal/service/session_service.go
package service

import (
	"context"
	"time"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type ISessionService interface {
	GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.SessionListItemResponse, error)
	Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error)
	Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.UpdateSessionResponse, error)
	Archive(ctx context.Context, userId uuid.UUID, id uuid.UUID) error
	GetMessages(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.MessageResponse, error)
}

type sessionService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewSessionService(uowFactory unitofwork.RepositoryFactory) ISessionService {
	return &sessionService{
		uowFactory: uowFactory,
	}
}

func (s *sessionService) GetAll(ctx context.Context, userId uuid.UUID) ([]*dto.SessionListItemResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.SessionRepository().FindAll(ctx,
		specification.ByUserID{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.SessionListItemResponse, 0)
	for _, session := range sessions {
		result = append(result, &dto.SessionListItemResponse{
			Id:           session.Id,
			Title:        session.Title,
			LearningGoal: session.LearningGoal,
			AgentStatus:  session.AgentStatus,
			CreatedAt:    session.CreatedAt,
		})
	}

	return result, nil
}

func (s *sessionService) Create(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session := entity.LearningSession{
		Id:           uuid.New(),
		UserId:       userId,
		Title:        req.Title,
		LearningGoal: req.LearningGoal,
		UserLevel:    req.UserLevel,
		AgentStatus:  entity.AgentStatusIdle,
		CreatedAt:    time.Now(),
	}

	if err := uow.SessionRepository().Create(ctx, &session); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{
		Id: session.Id,
	}, nil
}

func (s *sessionService) Show(ctx context.Context, userId uuid.UUID, id uuid.UUID) (*dto.ShowSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	return &dto.ShowSessionResponse{
		Id:                session.Id,
		Title:             session.Title,
		LearningGoal:      session.LearningGoal,
		UserLevel:         session.UserLevel,
		CurrentDocumentId: session.CurrentDocumentId,
		AgentStatus:       session.AgentStatus,
		CreatedAt:         session.CreatedAt,
		UpdatedAt:         session.UpdatedAt,
	}, nil
}

func (s *sessionService) Update(ctx context.Context, userId uuid.UUID, req *dto.UpdateSessionRequest) (*dto.UpdateSessionResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: req.Id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	now := time.Now()
	session.Title = req.Title
	session.LearningGoal = req.LearningGoal
	if req.UserLevel != "" {
		session.UserLevel = req.UserLevel
	}
	session.UpdatedAt = &now

	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		return nil, err
	}

	return &dto.UpdateSessionResponse{
		Id: session.Id,
	}, nil
}

func (s *sessionService) Archive(ctx context.Context, userId uuid.UUID, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	// Check ownership
	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	return uow.SessionRepository().Archive(ctx, id)
}

func (s *sessionService) GetMessages(ctx context.Context, userId uuid.UUID, id uuid.UUID) ([]*dto.MessageResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	messages, err := uow.MessageRepository().FindAll(ctx,
		specification.BySessionID{SessionID: id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.MessageResponse, 0)
	for _, msg := range messages {
		result = append(result, &dto.MessageResponse{
			Id:         msg.Id,
			Role:       msg.Role,
			Content:    msg.Content,
			Source:     msg.Source,
			Status:     msg.Status,
			DocumentId: msg.DocumentId,
			Metadata:   msg.Metadata,
			CreatedAt:  msg.CreatedAt,
		})
	}

	return result, nil
}
