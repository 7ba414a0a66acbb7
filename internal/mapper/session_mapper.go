package mapper

import (
	"encoding/json"
	"time"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SessionMapper struct{}

func NewSessionMapper() *SessionMapper {
	return &SessionMapper{}
}

// Session Mappers

func (m *SessionMapper) SessionToEntity(s *model.LearningSession) *entity.LearningSession {
	if s == nil {
		return nil
	}

	var deletedAt *time.Time
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !s.UpdatedAt.IsZero() {
		t := s.UpdatedAt
		updatedAt = &t
	}

	return &entity.LearningSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Title:             s.Title,
		LearningGoal:      s.LearningGoal,
		UserLevel:         s.UserLevel,
		CurrentDocumentId: s.CurrentDocumentId,
		AgentStatus:       s.AgentStatus,
		AgentStartedAt:    s.AgentStartedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
		IsDeleted:         s.DeletedAt.Valid,
	}
}

func (m *SessionMapper) SessionToModel(s *entity.LearningSession) *model.LearningSession {
	if s == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if s.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *s.DeletedAt, Valid: true}
	} else if s.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if s.UpdatedAt != nil {
		updatedAt = *s.UpdatedAt
	}

	return &model.LearningSession{
		Id:                s.Id,
		UserId:            s.UserId,
		Title:             s.Title,
		LearningGoal:      s.LearningGoal,
		UserLevel:         s.UserLevel,
		CurrentDocumentId: s.CurrentDocumentId,
		AgentStatus:       s.AgentStatus,
		AgentStartedAt:    s.AgentStartedAt,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         updatedAt,
		DeletedAt:         deletedAt,
	}
}

// Message Mappers

func (m *SessionMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}

	var deletedAt *time.Time
	if msg.DeletedAt.Valid {
		t := msg.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !msg.UpdatedAt.IsZero() {
		t := msg.UpdatedAt
		updatedAt = &t
	}

	var metadata map[string]interface{}
	if len(msg.Metadata) > 0 {
		_ = json.Unmarshal(msg.Metadata, &metadata)
	}

	return &entity.Message{
		Id:         msg.Id,
		SessionId:  msg.SessionId,
		Role:       msg.Role,
		Content:    msg.Content,
		Source:     msg.Source,
		Status:     msg.Status,
		DocumentId: msg.DocumentId,
		Metadata:   metadata,
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  msg.DeletedAt.Valid,
	}
}

func (m *SessionMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if msg.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *msg.DeletedAt, Valid: true}
	} else if msg.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if msg.UpdatedAt != nil {
		updatedAt = *msg.UpdatedAt
	}

	var metadata datatypes.JSON
	if msg.Metadata != nil {
		if raw, err := json.Marshal(msg.Metadata); err == nil {
			metadata = raw
		}
	}

	return &model.Message{
		Id:         msg.Id,
		SessionId:  msg.SessionId,
		Role:       msg.Role,
		Content:    msg.Content,
		Source:     msg.Source,
		Status:     msg.Status,
		DocumentId: msg.DocumentId,
		Metadata:   metadata,
		CreatedAt:  msg.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}

// FollowUp Mappers

func (m *SessionMapper) FollowUpToEntity(f *model.FollowUp) *entity.FollowUp {
	if f == nil {
		return nil
	}
	return &entity.FollowUp{
		Id:         f.Id,
		SessionId:  f.SessionId,
		DocumentId: f.DocumentId,
		Question:   f.Question,
		Clicked:    f.Clicked,
		CreatedAt:  f.CreatedAt,
	}
}

func (m *SessionMapper) FollowUpToModel(f *entity.FollowUp) *model.FollowUp {
	if f == nil {
		return nil
	}
	return &model.FollowUp{
		Id:         f.Id,
		SessionId:  f.SessionId,
		DocumentId: f.DocumentId,
		Question:   f.Question,
		Clicked:    f.Clicked,
		CreatedAt:  f.CreatedAt,
	}
}
