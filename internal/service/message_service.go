// FILE: internal/service/message_service.go
package service

import (
	"context"

	"ai-learnpath-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IMessageService interface {
	ClickFollowUp(ctx context.Context, id uuid.UUID) error
}

type messageService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewMessageService(uowFactory unitofwork.RepositoryFactory) IMessageService {
	return &messageService{
		uowFactory: uowFactory,
	}
}

func (s *messageService) ClickFollowUp(ctx context.Context, id uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.FollowUpRepository().MarkClicked(ctx, id)
}
