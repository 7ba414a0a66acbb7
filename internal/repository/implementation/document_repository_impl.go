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
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type DocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentMapper
}

func NewDocumentRepository(db *gorm.DB) contract.DocumentRepository {
	return &DocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentMapper(),
	}
}

func (r *DocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentRepositoryImpl) Create(ctx context.Context, document *entity.Document) error {
	m := r.mapper.DocumentToModel(document)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.DocumentToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) Update(ctx context.Context, document *entity.Document) error {
	m := r.mapper.DocumentToModel(document)
	// Save would zero the embedding column; update named fields only.
	err := r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", m.Id).
		Updates(map[string]interface{}{
			"topic":         m.Topic,
			"content":       m.Content,
			"version":       m.Version,
			"category_path": m.CategoryPath,
			"entities":      m.Entities,
			"roadmap_id":    m.RoadmapId,
			"milestone_id":  m.MilestoneId,
		}).Error
	if err != nil {
		return err
	}
	return nil
}

func (r *DocumentRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	var m model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DocumentToEntity(&m), nil
}

func (r *DocumentRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	var models []*model.Document
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Document, len(models))
	for i, m := range models {
		entities[i] = r.mapper.DocumentToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Document{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *DocumentRepositoryImpl) CreateVersion(ctx context.Context, version *entity.DocumentVersion) error {
	m := r.mapper.VersionToModel(version)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*version = *r.mapper.VersionToEntity(m)
	return nil
}

func (r *DocumentRepositoryImpl) FindVersions(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentVersion, error) {
	var models []*model.DocumentVersion
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentId).
		Order("version ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.DocumentVersion, len(models))
	for i, m := range models {
		entities[i] = r.mapper.VersionToEntity(m)
	}
	return entities, nil
}

func (r *DocumentRepositoryImpl) SaveTopicEmbedding(ctx context.Context, documentId uuid.UUID, embedding []float32) error {
	return r.db.WithContext(ctx).
		Model(&model.Document{}).
		Where("id = ?", documentId).
		Update("topic_embedding", pgvector.NewVector(embedding)).Error
}

func (r *DocumentRepositoryImpl) FindNearestByTopic(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*entity.Document, error) {
	var models []*model.Document
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionId).
		Where("topic_embedding IS NOT NULL").
		Order(gorm.Expr("topic_embedding <=> ?", pgvector.NewVector(embedding))).
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	entities := make([]*entity.Document, len(models))
	for i, m := range models {
		entities[i] = r.mapper.DocumentToEntity(m)
	}
	return entities, nil
}
