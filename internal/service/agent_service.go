// FILE: internal/service/agent_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-learnpath-be/internal/constant"
	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/pkg/logger"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"
	"ai-learnpath-be/pkg/agent"
	"ai-learnpath-be/pkg/agent/events"
	"ai-learnpath-be/pkg/agent/state"
	domainevents "ai-learnpath-be/pkg/events"
	pktNats "ai-learnpath-be/pkg/nats"

	"github.com/google/uuid"
)

type IAgentService interface {
	// RunTurn drives one full agent turn for a session, streaming lifecycle
	// events to the emitter and persisting every outcome.
	RunTurn(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.TurnRequest, emitter events.Emitter) error
}

type agentService struct {
	uowFactory       unitofwork.RepositoryFactory
	orchestrator     *agent.Orchestrator
	publisherService IPublisherService
	natsPublisher    *pktNats.Publisher
	logger           logger.ILogger
}

func NewAgentService(
	uowFactory unitofwork.RepositoryFactory,
	orchestrator *agent.Orchestrator,
	publisherService IPublisherService,
	natsPublisher *pktNats.Publisher,
	log logger.ILogger,
) IAgentService {
	return &agentService{
		uowFactory:       uowFactory,
		orchestrator:     orchestrator,
		publisherService: publisherService,
		natsPublisher:    natsPublisher,
		logger:           log,
	}
}

func (s *agentService) RunTurn(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.TurnRequest, emitter events.Emitter) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := uow.SessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionId)
	}
	if session.AgentStatus == entity.AgentStatusRunning {
		return fmt.Errorf("agent already running for session %s", sessionId)
	}

	if err := uow.SessionRepository().SetAgentStatus(ctx, sessionId, entity.AgentStatusRunning); err != nil {
		return err
	}
	// The reset must survive turn cancellation, so it runs on a fresh
	// context. A session stuck on "running" would lock the client out.
	defer func() {
		if err := uow.SessionRepository().SetAgentStatus(context.Background(), sessionId, entity.AgentStatusIdle); err != nil {
			s.logger.Error("agent", "failed to reset agent status", map[string]interface{}{
				"session_id": sessionId.String(),
				"error":      err.Error(),
			})
		}
	}()

	st, err := s.buildState(ctx, uow, session, req)
	if err != nil {
		return err
	}
	// The planner overwrites the active-roadmap pointer mid-run, so the
	// pre-run snapshot is captured here to detect revisions afterwards.
	prevRoadmap := st.ActiveRoadmap

	s.recordUserMessage(ctx, uow, st)
	placeholder := s.createPlaceholder(ctx, uow, st)

	runErr := s.orchestrator.Run(ctx, st, emitter)
	if runErr != nil {
		// Failed or cancelled turns never leave a generating stub behind.
		if placeholder != nil {
			if err := uow.MessageRepository().Delete(context.Background(), placeholder.Id); err != nil {
				s.logger.Error("agent", "failed to delete placeholder message", map[string]interface{}{
					"message_id": placeholder.Id.String(),
					"error":      err.Error(),
				})
			}
		}
		return runErr
	}

	s.persistOutcome(ctx, uow, session, st, placeholder, prevRoadmap)

	emitter.Emit(events.New(events.TypeProgress, map[string]interface{}{
		"stage": "persisted",
	}))

	s.publishDomainEvent(domainevents.NewTurnCompletedEvent(sessionId.String(), userId.String(), req.Source))
	return nil
}

// publishDomainEvent pushes an audit event onto the bus. Turns never fail
// on bus trouble.
func (s *agentService) publishDomainEvent(evt domainevents.Event) {
	if s.natsPublisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.natsPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("agent", "failed to publish domain event", map[string]interface{}{
			"event": evt.EventType(),
			"error": err.Error(),
		})
	}
}

// buildState snapshots the session context into a fresh per-turn state.
func (s *agentService) buildState(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.LearningSession, req *dto.TurnRequest) (*state.AgentState, error) {
	st := &state.AgentState{
		SessionID:    session.Id,
		UserID:       session.UserId,
		Source:       state.Source(req.Source),
		Message:      req.Message,
		CurrentDocID: session.CurrentDocumentId,
		UserLevel:    session.UserLevel,
	}

	if p := req.Payload; p != nil {
		switch st.Source {
		case state.SourceComment:
			st.Payload.Comment = &state.CommentPayload{
				SelectedText: p.SelectedText,
				Context:      p.SurroundingContext,
				DocumentID:   p.DocumentId,
			}
		case state.SourceEntity:
			st.Payload.Entity = &state.EntityPayload{Name: p.EntityName}
		case state.SourceFollowUp:
			st.Payload.FollowUp = &state.FollowUpPayload{IntentHint: state.IntentFollowUp}
			if st.Message == "" {
				st.Message = p.Question
			}
			if p.FollowUpId != nil {
				if err := uow.FollowUpRepository().MarkClicked(ctx, *p.FollowUpId); err != nil {
					s.logger.Warn("agent", "failed to mark follow-up clicked", map[string]interface{}{
						"follow_up_id": p.FollowUpId.String(),
						"error":        err.Error(),
					})
				}
			}
		}
	}

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.BySessionID{SessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: constant.AvailableDocsWindow, Offset: 0},
	)
	if err != nil {
		return nil, err
	}
	for i, d := range documents {
		ref := state.DocumentRef{ID: d.Id, Topic: d.Topic}
		if i < constant.RecentDocsWindow {
			st.RecentDocs = append(st.RecentDocs, ref)
		}
		st.AvailableDocs = append(st.AvailableDocs, ref)
	}

	// Preload the current document so an update_doc decision has something
	// to revise.
	if session.CurrentDocumentId != nil {
		current, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: *session.CurrentDocumentId})
		if err != nil {
			return nil, err
		}
		if current != nil {
			st.Document = toStateDocument(current)
		}
	}

	roadmap, err := uow.RoadmapRepository().GetActiveBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	if roadmap != nil {
		st.ActiveRoadmap = toStateRoadmap(roadmap)
	}

	entities, err := uow.EntityRepository().FindBySession(ctx, session.Id)
	if err != nil {
		return nil, err
	}
	for i, e := range entities {
		if i >= constant.LearnedTopicsWindow {
			break
		}
		st.LearnedTopics = append(st.LearnedTopics, e.Name)
	}

	return st, nil
}

func (s *agentService) recordUserMessage(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState) {
	msg := &entity.Message{
		Id:        uuid.New(),
		SessionId: st.SessionID,
		Role:      constant.MessageRoleUser,
		Content:   st.Message,
		Source:    string(st.Source),
		Status:    entity.MessageStatusComplete,
		CreatedAt: time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		s.logger.Error("agent", "failed to record user message", map[string]interface{}{
			"session_id": st.SessionID.String(),
			"error":      err.Error(),
		})
	}
}

func (s *agentService) createPlaceholder(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState) *entity.Message {
	msg := &entity.Message{
		Id:        uuid.New(),
		SessionId: st.SessionID,
		Role:      constant.MessageRoleModel,
		Source:    string(st.Source),
		Status:    entity.MessageStatusGenerating,
		CreatedAt: time.Now(),
	}
	if err := uow.MessageRepository().Create(ctx, msg); err != nil {
		s.logger.Error("agent", "failed to create placeholder message", map[string]interface{}{
			"session_id": st.SessionID.String(),
			"error":      err.Error(),
		})
		return nil
	}
	return msg
}

// persistOutcome commits each side effect of a successful turn on its own.
// A failed step is logged and skipped; the later steps still run.
func (s *agentService) persistOutcome(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.LearningSession, st *state.AgentState, placeholder *entity.Message, prevRoadmap *state.Roadmap) {
	var persistedRoadmapId *uuid.UUID
	if isNewRoadmapVersion(st, prevRoadmap) {
		persistedRoadmapId = s.persistRoadmap(ctx, uow, session, st)
	}

	var persistedDoc *entity.Document
	if st.Document != nil && !st.RoadmapOnly && st.NavigatedTo == nil && st.ChatReply == "" {
		persistedDoc = s.persistDocument(ctx, uow, st, persistedRoadmapId)
	}

	if persistedDoc != nil {
		s.persistEntities(ctx, uow, st, persistedDoc)
		s.persistFollowUps(ctx, uow, st, persistedDoc)
	}

	s.updateSession(ctx, uow, session, st, persistedDoc)
	s.completePlaceholder(ctx, uow, st, placeholder, persistedDoc)
}

// isNewRoadmapVersion filters out the pass-through case where the planner
// failed a modify and handed the unchanged active roadmap back.
func isNewRoadmapVersion(st *state.AgentState, prev *state.Roadmap) bool {
	if st.Roadmap == nil {
		return false
	}
	if st.Roadmap.ID == uuid.Nil || prev == nil {
		return true
	}
	return st.Roadmap.Version > prev.Version
}

func (s *agentService) persistRoadmap(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.LearningSession, st *state.AgentState) *uuid.UUID {
	milestones := make([]entity.RoadmapMilestone, 0, len(st.Roadmap.Milestones))
	for _, m := range st.Roadmap.Milestones {
		milestones = append(milestones, entity.RoadmapMilestone{
			Id:          m.ID,
			Title:       m.Title,
			Description: m.Description,
			Topics:      m.Topics,
		})
	}

	row := &entity.Roadmap{
		Id:         uuid.New(),
		SessionId:  session.Id,
		Goal:       st.Roadmap.Goal,
		Milestones: milestones,
		Mermaid:    st.Roadmap.Mermaid,
		Version:    st.Roadmap.Version,
		IsActive:   true,
		CreatedAt:  time.Now(),
	}
	// A non-zero id means the planner revised a persisted roadmap.
	// First roadmaps arrive with no id and get no parent.
	if st.Roadmap.ID != uuid.Nil {
		parentId := st.Roadmap.ID
		row.ParentRoadmapId = &parentId
	}

	if err := uow.RoadmapRepository().CreateAndDeactivatePrevious(ctx, row); err != nil {
		s.logger.Error("agent", "failed to persist roadmap", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
		return nil
	}

	st.Roadmap.ID = row.Id
	s.publishDomainEvent(domainevents.NewRoadmapCreatedEvent(session.Id.String(), row.Id.String(), row.Goal, row.Version))
	return &row.Id
}

func (s *agentService) persistDocument(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState, roadmapId *uuid.UUID) *entity.Document {
	doc := st.Document
	isUpdate := st.Decision != nil && st.Decision.Action == state.ActionUpdateDoc && doc.ID != uuid.Nil

	row := &entity.Document{
		Id:               doc.ID,
		SessionId:        st.SessionID,
		Topic:            doc.Topic,
		Content:          doc.Content,
		Version:          doc.Version,
		CategoryPath:     doc.CategoryPath,
		Entities:         doc.Entities,
		RoadmapId:        doc.RoadmapID,
		MilestoneId:      doc.MilestoneID,
		ParentDocumentId: doc.ParentDocID,
		CreatedAt:        time.Now(),
	}
	// A roadmap persisted this turn got its real ID only after the document
	// was generated, so the link is patched here.
	if roadmapId != nil && doc.MilestoneID != nil && (row.RoadmapId == nil || *row.RoadmapId == uuid.Nil) {
		row.RoadmapId = roadmapId
	}

	if isUpdate {
		now := time.Now()
		row.UpdatedAt = &now
		if err := uow.DocumentRepository().Update(ctx, row); err != nil {
			s.logger.Error("agent", "failed to update document", map[string]interface{}{
				"document_id": row.Id.String(),
				"error":       err.Error(),
			})
			return nil
		}
	} else {
		row.Id = uuid.New()
		doc.ID = row.Id
		if err := uow.DocumentRepository().Create(ctx, row); err != nil {
			s.logger.Error("agent", "failed to create document", map[string]interface{}{
				"session_id": st.SessionID.String(),
				"error":      err.Error(),
			})
			return nil
		}
	}

	version := &entity.DocumentVersion{
		Id:            uuid.New(),
		DocumentId:    row.Id,
		Version:       row.Version,
		Content:       row.Content,
		ChangeSummary: changeSummary(st, isUpdate),
		CreatedAt:     time.Now(),
	}
	if err := uow.DocumentRepository().CreateVersion(ctx, version); err != nil {
		s.logger.Error("agent", "failed to snapshot document version", map[string]interface{}{
			"document_id": row.Id.String(),
			"error":       err.Error(),
		})
	}

	msg := dto.PublishEmbedDocumentMessage{DocumentId: row.Id}
	msgJson, _ := json.Marshal(msg)
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		s.logger.Warn("agent", "failed to queue topic embedding", map[string]interface{}{
			"document_id": row.Id.String(),
			"error":       err.Error(),
		})
	}

	if !isUpdate {
		s.publishDomainEvent(domainevents.NewDocumentCreatedEvent(st.SessionID.String(), row.Id.String(), row.Topic, row.Version))
	}

	return row
}

func changeSummary(st *state.AgentState, isUpdate bool) string {
	if !isUpdate {
		return "初始版本"
	}
	// The generator logs its change summary as the content node entry.
	for i := len(st.Log) - 1; i >= 0; i-- {
		if st.Log[i].Node == "content" {
			return st.Log[i].Message
		}
	}
	return fmt.Sprintf("更新至 v%d", st.Document.Version)
}

func (s *agentService) persistEntities(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState, doc *entity.Document) {
	for _, name := range st.Document.Entities {
		e, err := uow.EntityRepository().FindOrCreate(ctx, st.SessionID, name)
		if err != nil {
			s.logger.Warn("agent", "failed to upsert entity", map[string]interface{}{
				"entity": name,
				"error":  err.Error(),
			})
			continue
		}

		link := &entity.EntityLink{
			Id:         uuid.New(),
			EntityId:   e.Id,
			DocumentId: doc.Id,
			Relation:   entity.RelationExplains,
			Confidence: 1.0,
			CreatedAt:  time.Now(),
		}
		if err := uow.EntityRepository().Link(ctx, link); err != nil {
			s.logger.Warn("agent", "failed to link entity", map[string]interface{}{
				"entity": name,
				"error":  err.Error(),
			})
		}
	}
}

func (s *agentService) persistFollowUps(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState, doc *entity.Document) {
	if len(st.FollowUps) == 0 {
		return
	}

	// Regeneration replaces a document's follow-ups wholesale; stale
	// questions must not pile up next to the new set.
	if err := uow.FollowUpRepository().DeleteByDocument(ctx, doc.Id); err != nil {
		s.logger.Warn("agent", "failed to clear stale follow-ups", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}

	rows := make([]*entity.FollowUp, 0, len(st.FollowUps))
	for _, q := range st.FollowUps {
		rows = append(rows, &entity.FollowUp{
			Id:         uuid.New(),
			SessionId:  st.SessionID,
			DocumentId: doc.Id,
			Question:   q,
			CreatedAt:  time.Now(),
		})
	}
	if err := uow.FollowUpRepository().CreateBatch(ctx, rows); err != nil {
		s.logger.Warn("agent", "failed to persist follow-ups", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
	}
}

func (s *agentService) updateSession(ctx context.Context, uow unitofwork.UnitOfWork, session *entity.LearningSession, st *state.AgentState, doc *entity.Document) {
	changed := false

	if doc != nil {
		id := doc.Id
		session.CurrentDocumentId = &id
		changed = true
	} else if st.NavigatedTo != nil {
		id := st.NavigatedTo.ID
		session.CurrentDocumentId = &id
		changed = true
	}

	if st.Roadmap != nil && session.LearningGoal == "" {
		session.LearningGoal = st.Roadmap.Goal
		changed = true
	}

	// Sessions created without a title pick one up from the first topic.
	if session.Title == "" && doc != nil {
		session.Title = doc.Topic
		changed = true
	}

	if !changed {
		return
	}

	now := time.Now()
	session.UpdatedAt = &now
	if err := uow.SessionRepository().Update(ctx, session); err != nil {
		s.logger.Error("agent", "failed to update session pointer", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
	}
}

func (s *agentService) completePlaceholder(ctx context.Context, uow unitofwork.UnitOfWork, st *state.AgentState, placeholder *entity.Message, doc *entity.Document) {
	if placeholder == nil {
		return
	}

	switch {
	case st.ChatReply != "":
		placeholder.Content = st.ChatReply
	case st.NavigatedTo != nil:
		placeholder.Content = fmt.Sprintf("已为你切换到文档「%s」。", st.NavigatedTo.Topic)
		id := st.NavigatedTo.ID
		placeholder.DocumentId = &id
	case doc != nil:
		placeholder.Content = fmt.Sprintf("已生成文档「%s」(v%d)。", doc.Topic, doc.Version)
		id := doc.Id
		placeholder.DocumentId = &id
	case st.RoadmapOnly && st.Roadmap != nil:
		placeholder.Content = fmt.Sprintf("学习路线图已更新至 v%d。", st.Roadmap.Version)
	default:
		placeholder.Content = "本轮处理已完成。"
	}

	placeholder.Status = entity.MessageStatusComplete
	placeholder.Metadata = turnMetadata(st)
	now := time.Now()
	placeholder.UpdatedAt = &now

	if err := uow.MessageRepository().Update(ctx, placeholder); err != nil {
		s.logger.Error("agent", "failed to complete placeholder message", map[string]interface{}{
			"message_id": placeholder.Id.String(),
			"error":      err.Error(),
		})
	}
}

// turnMetadata flattens the ephemeral classification and routing outputs
// onto the assistant message, the only place they are persisted.
func turnMetadata(st *state.AgentState) map[string]interface{} {
	meta := map[string]interface{}{}
	if st.Intent != nil {
		meta["intent"] = map[string]interface{}{
			"type":       st.Intent.Type,
			"target":     st.Intent.Target,
			"confidence": st.Intent.Confidence,
			"method":     st.Intent.Method,
		}
	}
	if st.Decision != nil {
		meta["decision"] = map[string]interface{}{
			"action":    st.Decision.Action,
			"mode":      st.Decision.Mode,
			"target":    st.Decision.Target,
			"reasoning": st.Decision.Reasoning,
		}
	}
	return meta
}

func toStateDocument(d *entity.Document) *state.Document {
	return &state.Document{
		ID:           d.Id,
		Topic:        d.Topic,
		Content:      d.Content,
		Version:      d.Version,
		CategoryPath: d.CategoryPath,
		Entities:     d.Entities,
		RoadmapID:    d.RoadmapId,
		MilestoneID:  d.MilestoneId,
		ParentDocID:  d.ParentDocumentId,
	}
}

func toStateRoadmap(r *entity.Roadmap) *state.Roadmap {
	milestones := make([]state.Milestone, 0, len(r.Milestones))
	for _, m := range r.Milestones {
		milestones = append(milestones, state.Milestone{
			ID:          m.Id,
			Title:       m.Title,
			Description: m.Description,
			Topics:      m.Topics,
		})
	}
	return &state.Roadmap{
		ID:         r.Id,
		Goal:       r.Goal,
		Milestones: milestones,
		Mermaid:    r.Mermaid,
		Version:    r.Version,
		IsActive:   r.IsActive,
	}
}
