package implementation

import (
	"context"
	"errors"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/mapper"
	"ai-learnpath-be/internal/model"
	"ai-learnpath-be/internal/repository/contract"
	"ai-learnpath-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RoadmapRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RoadmapMapper
}

func NewRoadmapRepository(db *gorm.DB) contract.RoadmapRepository {
	return &RoadmapRepositoryImpl{
		db:     db,
		mapper: mapper.NewRoadmapMapper(),
	}
}

func (r *RoadmapRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *RoadmapRepositoryImpl) CreateAndDeactivatePrevious(ctx context.Context, roadmap *entity.Roadmap) error {
	m := r.mapper.RoadmapToModel(roadmap)
	m.IsActive = true

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Roadmap{}).
			Where("session_id = ? AND is_active = ?", m.SessionId, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return err
	}

	*roadmap = *r.mapper.RoadmapToEntity(m)
	return nil
}

func (r *RoadmapRepositoryImpl) Update(ctx context.Context, roadmap *entity.Roadmap) error {
	m := r.mapper.RoadmapToModel(roadmap)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*roadmap = *r.mapper.RoadmapToEntity(m)
	return nil
}

func (r *RoadmapRepositoryImpl) GetActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Roadmap, error) {
	var m model.Roadmap
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND is_active = ?", sessionId, true).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RoadmapToEntity(&m), nil
}

func (r *RoadmapRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Roadmap, error) {
	var models []*model.Roadmap
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Roadmap, len(models))
	for i, m := range models {
		entities[i] = r.mapper.RoadmapToEntity(m)
	}
	return entities, nil
}
