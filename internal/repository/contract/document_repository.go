package contract

import (
	"context"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	Create(ctx context.Context, document *entity.Document) error
	Update(ctx context.Context, document *entity.Document) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	CreateVersion(ctx context.Context, version *entity.DocumentVersion) error
	FindVersions(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentVersion, error)

	// SaveTopicEmbedding stores the topic vector used by semantic
	// navigation lookups.
	SaveTopicEmbedding(ctx context.Context, documentId uuid.UUID, embedding []float32) error
	// FindNearestByTopic returns documents of the session ordered by
	// cosine distance to the query vector.
	FindNearestByTopic(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*entity.Document, error)
}
