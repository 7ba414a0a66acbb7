package contract

import (
	"context"

	"ai-learnpath-be/internal/entity"

	"github.com/google/uuid"
)

type EntityRepository interface {
	// FindOrCreate looks an entity up by (session, name) and inserts it
	// when missing. Idempotent under concurrent post-processing.
	FindOrCreate(ctx context.Context, sessionId uuid.UUID, name string) (*entity.KnowledgeEntity, error)
	FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.KnowledgeEntity, error)
	Link(ctx context.Context, link *entity.EntityLink) error
	FindLinks(ctx context.Context, entityId uuid.UUID) ([]*entity.EntityLink, error)
}
