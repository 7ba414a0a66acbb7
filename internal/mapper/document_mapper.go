package mapper

import (
	"encoding/json"
	"time"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) DocumentToEntity(d *model.Document) *entity.Document {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	var entities []string
	if len(d.Entities) > 0 {
		_ = json.Unmarshal(d.Entities, &entities)
	}

	return &entity.Document{
		Id:               d.Id,
		SessionId:        d.SessionId,
		Topic:            d.Topic,
		Content:          d.Content,
		Version:          d.Version,
		CategoryPath:     d.CategoryPath,
		Entities:         entities,
		RoadmapId:        d.RoadmapId,
		MilestoneId:      d.MilestoneId,
		ParentDocumentId: d.ParentDocumentId,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
		IsDeleted:        d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) DocumentToModel(d *entity.Document) *model.Document {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	var entities datatypes.JSON
	if d.Entities != nil {
		if raw, err := json.Marshal(d.Entities); err == nil {
			entities = raw
		}
	}

	return &model.Document{
		Id:               d.Id,
		SessionId:        d.SessionId,
		Topic:            d.Topic,
		Content:          d.Content,
		Version:          d.Version,
		CategoryPath:     d.CategoryPath,
		Entities:         entities,
		RoadmapId:        d.RoadmapId,
		MilestoneId:      d.MilestoneId,
		ParentDocumentId: d.ParentDocumentId,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        updatedAt,
		DeletedAt:        deletedAt,
	}
}

func (m *DocumentMapper) VersionToEntity(v *model.DocumentVersion) *entity.DocumentVersion {
	if v == nil {
		return nil
	}
	return &entity.DocumentVersion{
		Id:            v.Id,
		DocumentId:    v.DocumentId,
		Version:       v.Version,
		Content:       v.Content,
		ChangeSummary: v.ChangeSummary,
		CreatedAt:     v.CreatedAt,
	}
}

func (m *DocumentMapper) VersionToModel(v *entity.DocumentVersion) *model.DocumentVersion {
	if v == nil {
		return nil
	}
	return &model.DocumentVersion{
		Id:            v.Id,
		DocumentId:    v.DocumentId,
		Version:       v.Version,
		Content:       v.Content,
		ChangeSummary: v.ChangeSummary,
		CreatedAt:     v.CreatedAt,
	}
}
