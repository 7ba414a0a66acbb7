package contract

import (
	"context"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"

	"github.com/google/uuid"
)

type RoadmapRepository interface {
	// CreateAndDeactivatePrevious inserts the roadmap as the session's
	// active one, flipping any previously active roadmap off in the same
	// transaction.
	CreateAndDeactivatePrevious(ctx context.Context, roadmap *entity.Roadmap) error
	Update(ctx context.Context, roadmap *entity.Roadmap) error
	GetActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Roadmap, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Roadmap, error)
}
