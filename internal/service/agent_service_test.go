package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"testing"

	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/contract"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"
	"ai-learnpath-be/pkg/agent"
	"ai-learnpath-be/pkg/agent/events"
	"ai-learnpath-be/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

// scriptedLLM answers each pipeline stage by prompt marker, the same stub
// shape the orchestrator tests use.
type scriptedLLM struct {
	mu     sync.Mutex
	chunks []string
}

func (s *scriptedLLM) respond(prompt string) (string, error) {
	switch {
	case strings.Contains(prompt, "路由决策器"):
		return "", errors.New("router llm unavailable")
	case strings.Contains(prompt, "学习规划师"):
		return `{"goal": "掌握 Go", "milestones": [
			{"id": 0, "title": "语言基础", "topics": ["语法"]},
			{"id": 1, "title": "并发编程", "topics": ["goroutine"]}
		], "mermaid": "graph LR\n    M0 --> M1"}`, nil
	case strings.Contains(prompt, "技术实体"):
		return `{"entities": ["goroutine", "channel"]}`, nil
	case strings.Contains(prompt, "接下来可能想问"):
		return `{"questions": ["什么是 channel?", "如何避免泄漏?"]}`, nil
	case strings.Contains(prompt, "哪个里程碑"):
		return `{"milestone_id": 0}`, nil
	case strings.Contains(prompt, "寒暄"):
		return "你好! 想学点什么?", nil
	default:
		return "好的。", nil
	}
}

func (s *scriptedLLM) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	var joined strings.Builder
	for _, m := range history {
		joined.WriteString(m.Content)
		joined.WriteString("\n")
	}
	return s.respond(joined.String())
}

func (s *scriptedLLM) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return s.respond(prompt)
}

func (s *scriptedLLM) Stream(ctx context.Context, history []llm.Message, onToken llm.TokenFunc, opts ...llm.Option) (string, error) {
	chunks := s.chunks
	if len(chunks) == 0 {
		chunks = []string{"# 文档", "\n\n正文"}
	}
	var b strings.Builder
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if onToken != nil {
			if err := onToken(chunk); err != nil {
				return "", err
			}
		}
		b.WriteString(chunk)
	}
	return b.String(), nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Emit(e events.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

// fakeStore backs every repository fake with plain slices. Specifications
// are not interpreted; each fake returns what the flow under test needs.
type fakeStore struct {
	mu sync.Mutex

	session  *entity.LearningSession
	statuses []string

	documents []*entity.Document
	versions  []*entity.DocumentVersion
	updates   []*entity.Document

	roadmaps []*entity.Roadmap

	entities []*entity.KnowledgeEntity
	links    []*entity.EntityLink

	messages map[uuid.UUID]*entity.Message
	order    []uuid.UUID
	deleted  []uuid.UUID

	followUps []*entity.FollowUp
	clicked   []uuid.UUID
}

func newFakeStore(session *entity.LearningSession) *fakeStore {
	return &fakeStore{session: session, messages: map[uuid.UUID]*entity.Message{}}
}

type fakeUow struct{ store *fakeStore }

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) SessionRepository() contract.SessionRepository   { return &fakeSessionRepo{u.store} }
func (u *fakeUow) DocumentRepository() contract.DocumentRepository { return &fakeDocumentRepo{u.store} }
func (u *fakeUow) RoadmapRepository() contract.RoadmapRepository   { return &fakeRoadmapRepo{u.store} }
func (u *fakeUow) EntityRepository() contract.EntityRepository     { return &fakeEntityRepo{u.store} }
func (u *fakeUow) MessageRepository() contract.MessageRepository   { return &fakeMessageRepo{u.store} }
func (u *fakeUow) FollowUpRepository() contract.FollowUpRepository { return &fakeFollowUpRepo{u.store} }

type fakeFactory struct{ store *fakeStore }

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &fakeUow{store: f.store}
}

type fakeSessionRepo struct{ store *fakeStore }

func (r *fakeSessionRepo) Create(ctx context.Context, s *entity.LearningSession) error { return nil }

func (r *fakeSessionRepo) Update(ctx context.Context, s *entity.LearningSession) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.session = s
	return nil
}

func (r *fakeSessionRepo) Archive(ctx context.Context, id uuid.UUID) error { return nil }

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.LearningSession, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.session, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.LearningSession, error) {
	return nil, nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return 0, nil
}

func (r *fakeSessionRepo) SetAgentStatus(ctx context.Context, id uuid.UUID, status string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.statuses = append(r.store.statuses, status)
	r.store.session.AgentStatus = status
	return nil
}

type fakeDocumentRepo struct{ store *fakeStore }

func (r *fakeDocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.documents = append(r.store.documents, d)
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.updates = append(r.store.updates, d)
	return nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if len(r.store.documents) == 0 {
		return nil, nil
	}
	return r.store.documents[0], nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.documents, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	return int64(len(r.store.documents)), nil
}

func (r *fakeDocumentRepo) CreateVersion(ctx context.Context, v *entity.DocumentVersion) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.versions = append(r.store.versions, v)
	return nil
}

func (r *fakeDocumentRepo) FindVersions(ctx context.Context, documentId uuid.UUID) ([]*entity.DocumentVersion, error) {
	return r.store.versions, nil
}

func (r *fakeDocumentRepo) SaveTopicEmbedding(ctx context.Context, documentId uuid.UUID, embedding []float32) error {
	return nil
}

func (r *fakeDocumentRepo) FindNearestByTopic(ctx context.Context, sessionId uuid.UUID, embedding []float32, limit int) ([]*entity.Document, error) {
	return nil, nil
}

type fakeRoadmapRepo struct{ store *fakeStore }

func (r *fakeRoadmapRepo) CreateAndDeactivatePrevious(ctx context.Context, roadmap *entity.Roadmap) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.roadmaps {
		existing.IsActive = false
	}
	r.store.roadmaps = append(r.store.roadmaps, roadmap)
	return nil
}

func (r *fakeRoadmapRepo) Update(ctx context.Context, roadmap *entity.Roadmap) error { return nil }

func (r *fakeRoadmapRepo) GetActiveBySession(ctx context.Context, sessionId uuid.UUID) (*entity.Roadmap, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, rm := range r.store.roadmaps {
		if rm.IsActive {
			return rm, nil
		}
	}
	return nil, nil
}

func (r *fakeRoadmapRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Roadmap, error) {
	return r.store.roadmaps, nil
}

type fakeEntityRepo struct{ store *fakeStore }

func (r *fakeEntityRepo) FindOrCreate(ctx context.Context, sessionId uuid.UUID, name string) (*entity.KnowledgeEntity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, e := range r.store.entities {
		if e.Name == name {
			return e, nil
		}
	}
	e := &entity.KnowledgeEntity{Id: uuid.New(), SessionId: sessionId, Name: name}
	r.store.entities = append(r.store.entities, e)
	return e, nil
}

func (r *fakeEntityRepo) FindBySession(ctx context.Context, sessionId uuid.UUID) ([]*entity.KnowledgeEntity, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	return r.store.entities, nil
}

func (r *fakeEntityRepo) Link(ctx context.Context, link *entity.EntityLink) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.links = append(r.store.links, link)
	return nil
}

func (r *fakeEntityRepo) FindLinks(ctx context.Context, entityId uuid.UUID) ([]*entity.EntityLink, error) {
	return r.store.links, nil
}

type fakeMessageRepo struct{ store *fakeStore }

func (r *fakeMessageRepo) Create(ctx context.Context, m *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages[m.Id] = m
	r.store.order = append(r.store.order, m.Id)
	return nil
}

func (r *fakeMessageRepo) Update(ctx context.Context, m *entity.Message) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.messages[m.Id] = m
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	delete(r.store.messages, id)
	r.store.deleted = append(r.store.deleted, id)
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Message, error) {
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	return nil, nil
}

type fakeFollowUpRepo struct{ store *fakeStore }

func (r *fakeFollowUpRepo) CreateBatch(ctx context.Context, followUps []*entity.FollowUp) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.followUps = append(r.store.followUps, followUps...)
	return nil
}

func (r *fakeFollowUpRepo) DeleteByDocument(ctx context.Context, documentId uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.followUps[:0]
	for _, f := range r.store.followUps {
		if f.DocumentId != documentId {
			kept = append(kept, f)
		}
	}
	r.store.followUps = kept
	return nil
}

func (r *fakeFollowUpRepo) FindByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.FollowUp, error) {
	return r.store.followUps, nil
}

func (r *fakeFollowUpRepo) MarkClicked(ctx context.Context, id uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.clicked = append(r.store.clicked, id)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *recordingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func newTestAgentService(store *fakeStore, chunks []string) (IAgentService, *recordingPublisher) {
	orchestrator := agent.NewOrchestrator(&scriptedLLM{chunks: chunks}, nil, log.New(&strings.Builder{}, "", 0))
	pub := &recordingPublisher{}
	svc := NewAgentService(&fakeFactory{store: store}, orchestrator, pub, nil, nopLogger{})
	return svc, pub
}

func testSession() *entity.LearningSession {
	return &entity.LearningSession{
		Id:          uuid.New(),
		UserId:      uuid.New(),
		Title:       "测试会话",
		AgentStatus: entity.AgentStatusIdle,
	}
}

func (s *fakeStore) assistantMessage() *entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.order {
		m, ok := s.messages[id]
		if ok && m.Role == "model" {
			return m
		}
	}
	return nil
}

func TestRunTurnChitchatCompletesPlaceholder(t *testing.T) {
	session := testSession()
	store := newFakeStore(session)
	svc, _ := newTestAgentService(store, nil)
	rec := &eventRecorder{}

	err := svc.RunTurn(context.Background(), session.UserId, session.Id,
		&dto.TurnRequest{Source: "chat", Message: "你好"}, rec)

	assert.NoError(t, err)
	assert.Equal(t, []string{entity.AgentStatusRunning, entity.AgentStatusIdle}, store.statuses)
	assert.True(t, rec.has(events.TypeDone))

	// User message plus assistant placeholder; nothing generated.
	assert.Len(t, store.order, 2)
	assert.Empty(t, store.documents)
	assert.Empty(t, store.roadmaps)

	reply := store.assistantMessage()
	assert.NotNil(t, reply)
	assert.Equal(t, entity.MessageStatusComplete, reply.Status)
	assert.Equal(t, "你好! 想学点什么?", reply.Content)
	assert.Contains(t, reply.Metadata, "intent")
}

func TestRunTurnFirstTopicPersistsRoadmapAndDocument(t *testing.T) {
	session := testSession()
	store := newFakeStore(session)
	svc, pub := newTestAgentService(store, []string{"# Go 入门", "\n\n从语法开始。"})
	rec := &eventRecorder{}

	err := svc.RunTurn(context.Background(), session.UserId, session.Id,
		&dto.TurnRequest{Source: "chat", Message: "我想学 Go"}, rec)

	assert.NoError(t, err)
	assert.Equal(t, []string{entity.AgentStatusRunning, entity.AgentStatusIdle}, store.statuses)

	if assert.Len(t, store.roadmaps, 1) {
		assert.Equal(t, 1, store.roadmaps[0].Version)
		assert.True(t, store.roadmaps[0].IsActive)
		assert.Nil(t, store.roadmaps[0].ParentRoadmapId)
	}

	if assert.Len(t, store.documents, 1) {
		doc := store.documents[0]
		assert.NotEqual(t, uuid.Nil, doc.Id)
		assert.Equal(t, 1, doc.Version)
		if assert.NotNil(t, doc.RoadmapId) {
			assert.Equal(t, store.roadmaps[0].Id, *doc.RoadmapId)
		}
	}

	// One immutable snapshot per written document.
	if assert.Len(t, store.versions, 1) {
		assert.Equal(t, "初始版本", store.versions[0].ChangeSummary)
	}

	assert.ElementsMatch(t, []string{"goroutine", "channel"}, entityNames(store.entities))
	assert.Len(t, store.links, 2)
	assert.Len(t, store.followUps, 2)

	// The session now points at the new document and carries the goal.
	if assert.NotNil(t, store.session.CurrentDocumentId) {
		assert.Equal(t, store.documents[0].Id, *store.session.CurrentDocumentId)
	}
	assert.Equal(t, "掌握 Go", store.session.LearningGoal)

	// The document was queued for topic embedding.
	assert.Len(t, pub.payloads, 1)
}

func TestRunTurnUpdateReplacesFollowUps(t *testing.T) {
	session := testSession()
	docId := uuid.New()
	session.CurrentDocumentId = &docId

	store := newFakeStore(session)
	store.documents = append(store.documents, &entity.Document{
		Id:        docId,
		SessionId: session.Id,
		Topic:     "Go 并发",
		Content:   "# Go 并发\n\n旧内容。",
		Version:   1,
	})
	store.followUps = append(store.followUps,
		&entity.FollowUp{Id: uuid.New(), SessionId: session.Id, DocumentId: docId, Question: "旧问题一?"},
		&entity.FollowUp{Id: uuid.New(), SessionId: session.Id, DocumentId: docId, Question: "旧问题二?"},
	)

	svc, _ := newTestAgentService(store, []string{"# Go 并发\n\n", "加了更多例子。"})
	rec := &eventRecorder{}

	err := svc.RunTurn(context.Background(), session.UserId, session.Id,
		&dto.TurnRequest{Source: "chat", Message: "太抽象了, 看不懂"}, rec)

	assert.NoError(t, err)
	assert.Len(t, store.updates, 1)

	// Regeneration replaces the document's follow-ups wholesale.
	assert.Len(t, store.followUps, 2)
	for _, f := range store.followUps {
		assert.Equal(t, docId, f.DocumentId)
		assert.NotContains(t, f.Question, "旧问题")
	}
}

func TestRunTurnRejectsConcurrentRun(t *testing.T) {
	session := testSession()
	session.AgentStatus = entity.AgentStatusRunning
	store := newFakeStore(session)
	svc, _ := newTestAgentService(store, nil)

	err := svc.RunTurn(context.Background(), session.UserId, session.Id,
		&dto.TurnRequest{Source: "chat", Message: "你好"}, &eventRecorder{})

	assert.Error(t, err)
	assert.Empty(t, store.statuses)
	assert.Empty(t, store.order)
}

func TestRunTurnCancellationDeletesPlaceholderAndResetsStatus(t *testing.T) {
	session := testSession()
	store := newFakeStore(session)
	svc, _ := newTestAgentService(store, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.RunTurn(ctx, session.UserId, session.Id,
		&dto.TurnRequest{Source: "chat", Message: "我想学 Go"}, &eventRecorder{})

	assert.ErrorIs(t, err, context.Canceled)

	// The generating stub must not survive an aborted turn, and the
	// status reset must run even though the turn context is dead.
	assert.Len(t, store.deleted, 1)
	assert.Nil(t, store.assistantMessage())
	assert.Equal(t, []string{entity.AgentStatusRunning, entity.AgentStatusIdle}, store.statuses)
	assert.Empty(t, store.documents)
}

func TestRunTurnFollowUpMarksClicked(t *testing.T) {
	session := testSession()
	store := newFakeStore(session)
	svc, _ := newTestAgentService(store, nil)

	followUpId := uuid.New()
	err := svc.RunTurn(context.Background(), session.UserId, session.Id,
		&dto.TurnRequest{
			Source: "follow_up",
			Payload: &dto.TurnPayload{
				FollowUpId: &followUpId,
				Question:   "什么是 channel?",
			},
		}, &eventRecorder{})

	assert.NoError(t, err)
	assert.Equal(t, []uuid.UUID{followUpId}, store.clicked)
}

func entityNames(entities []*entity.KnowledgeEntity) []string {
	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	return names
}
