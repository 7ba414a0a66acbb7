package mapper

import (
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/model"
)

type EntityMapper struct{}

func NewEntityMapper() *EntityMapper {
	return &EntityMapper{}
}

func (m *EntityMapper) EntityToEntity(e *model.KnowledgeEntity) *entity.KnowledgeEntity {
	if e == nil {
		return nil
	}
	return &entity.KnowledgeEntity{
		Id:        e.Id,
		SessionId: e.SessionId,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
	}
}

func (m *EntityMapper) EntityToModel(e *entity.KnowledgeEntity) *model.KnowledgeEntity {
	if e == nil {
		return nil
	}
	return &model.KnowledgeEntity{
		Id:        e.Id,
		SessionId: e.SessionId,
		Name:      e.Name,
		CreatedAt: e.CreatedAt,
	}
}

func (m *EntityMapper) LinkToEntity(l *model.EntityLink) *entity.EntityLink {
	if l == nil {
		return nil
	}
	return &entity.EntityLink{
		Id:         l.Id,
		EntityId:   l.EntityId,
		DocumentId: l.DocumentId,
		Relation:   l.Relation,
		Confidence: l.Confidence,
		CreatedAt:  l.CreatedAt,
	}
}

func (m *EntityMapper) LinkToModel(l *entity.EntityLink) *model.EntityLink {
	if l == nil {
		return nil
	}
	return &model.EntityLink{
		Id:         l.Id,
		EntityId:   l.EntityId,
		DocumentId: l.DocumentId,
		Relation:   l.Relation,
		Confidence: l.Confidence,
		CreatedAt:  l.CreatedAt,
	}
}
