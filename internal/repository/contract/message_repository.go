package contract

import (
	"context"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"

	"github.com/google/uuid"
)

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	Update(ctx context.Context, message *entity.Message) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
}

type FollowUpRepository interface {
	CreateBatch(ctx context.Context, followUps []*entity.FollowUp) error
	// DeleteByDocument clears a document's follow-ups; regeneration
	// replaces them wholesale.
	DeleteByDocument(ctx context.Context, documentId uuid.UUID) error
	FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.FollowUp, error)
	MarkClicked(ctx context.Context, id uuid.UUID) error
}
