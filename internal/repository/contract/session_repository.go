package contract

import (
	"context"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"

	"github.com/google/uuid"
)

type SessionRepository interface {
	Create(ctx context.Context, session *entity.LearningSession) error
	Update(ctx context.Context, session *entity.LearningSession) error
	Archive(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningSession, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningSession, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SetAgentStatus writes the activity flag directly so the reset in a
	// deferred block cannot be lost to a stale entity snapshot.
	SetAgentStatus(ctx context.Context, id uuid.UUID, status string) error
}
