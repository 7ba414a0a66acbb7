package implementation

import (
	"context"
	"errors"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/mapper"
	"ai-learnpath-be/internal/model"
	"ai-learnpath-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type EntityRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.EntityMapper
}

func NewEntityRepository(db *gorm.DB) contract.EntityRepository {
	return &EntityRepositoryImpl{
		db:     db,
		mapper: mapper.NewEntityMapper(),
	}
}

func (r *EntityRepositoryImpl) FindOrCreate(ctx context.Context, sessionId uuid.UUID, name string) (*entity.KnowledgeEntity, error) {
	var m model.KnowledgeEntity

	err := r.db.WithContext(ctx).
		Where("session_id = ? AND name = ?", sessionId, name).
		First(&m).Error
	if err == nil {
		return r.mapper.EntityToEntity(&m), nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	m = model.KnowledgeEntity{SessionId: sessionId, Name: name}
	// Concurrent post-processing may race on the same name; the unique
	// index plus DoNothing keeps the insert idempotent.
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "name"}},
			DoNothing: true,
		}).
		Create(&m).Error
	if err != nil {
		return nil, err
	}

	if m.Id == uuid.Nil {
		// Lost the race; fetch the winner's row.
		if err := r.db.WithContext(ctx).
			Where("session_id = ? AND name = ?", sessionId, name).
			First(&m).Error; err != nil {
			return nil, err
		}
	}
	return r.mapper.EntityToEntity(&m), nil
}

func (r *EntityRepositoryImpl) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.KnowledgeEntity, error) {
	var models []*model.KnowledgeEntity
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Order("name ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.KnowledgeEntity, len(models))
	for i, m := range models {
		entities[i] = r.mapper.EntityToEntity(m)
	}
	return entities, nil
}

func (r *EntityRepositoryImpl) Link(ctx context.Context, link *entity.EntityLink) error {
	m := r.mapper.LinkToModel(link)
	// Post-processing re-links every entity on a document update; the
	// unique index plus DoNothing keeps one row per (entity, document).
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}, {Name: "document_id"}},
			DoNothing: true,
		}).
		Create(m).Error
	if err != nil {
		return err
	}
	*link = *r.mapper.LinkToEntity(m)
	return nil
}

func (r *EntityRepositoryImpl) FindLinks(ctx context.Context, entityId uuid.UUID) ([]*entity.EntityLink, error) {
	var models []*model.EntityLink
	err := r.db.WithContext(ctx).
		Where("entity_id = ?", entityId).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	links := make([]*entity.EntityLink, len(models))
	for i, m := range models {
		links[i] = r.mapper.LinkToEntity(m)
	}
	return links, nil
}
