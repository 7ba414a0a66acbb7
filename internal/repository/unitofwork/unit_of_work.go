package unitofwork

import (
	"context"

	"ai-learnpath-be/internal/repository/contract"
)

type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	SessionRepository() contract.SessionRepository
	DocumentRepository() contract.DocumentRepository
	RoadmapRepository() contract.RoadmapRepository
	EntityRepository() contract.EntityRepository
	MessageRepository() contract.MessageRepository
	FollowUpRepository() contract.FollowUpRepository
}
