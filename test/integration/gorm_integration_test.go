package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-learnpath-be/internal/entity"
	"ai-learnpath-be/internal/repository/specification"
	"ai-learnpath-be/internal/repository/unitofwork"
	"ai-learnpath-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.SessionRepository())
	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.RoadmapRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)
	t.Log("Successfully connected to DB and initialized UnitOfWork Factory")

	// Verify Data Access (implies columns exist)
	t.Run("Check Session Repository", func(t *testing.T) {
		count, err := uow.SessionRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Session count: %d", count)
	})

	t.Run("Check Document Repository", func(t *testing.T) {
		count, err := uow.DocumentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Document count: %d", count)
	})

	t.Run("Check Transactional Document Version", func(t *testing.T) {
		userId := uuid.New()

		session := &entity.LearningSession{
			Id:          uuid.New(),
			UserId:      userId,
			Title:       "Integration Test Session " + uuid.New().String(),
			AgentStatus: entity.AgentStatusIdle,
		}

		err := uow.SessionRepository().Create(context.Background(), session)
		assert.NoError(t, err)

		// Transaction Test
		ctx := context.Background()
		err = uow.Begin(ctx)
		assert.NoError(t, err)
		defer uow.Rollback()

		doc := &entity.Document{
			Id:        uuid.New(),
			SessionId: session.Id,
			Topic:     "Goroutine 基础",
			Content:   "# Goroutine 基础\n\n占位内容。",
			Version:   1,
		}

		err = uow.DocumentRepository().Create(ctx, doc)
		assert.NoError(t, err)

		version := &entity.DocumentVersion{
			Id:            uuid.New(),
			DocumentId:    doc.Id,
			Version:       1,
			Content:       doc.Content,
			ChangeSummary: "初始版本",
		}

		err = uow.DocumentRepository().CreateVersion(ctx, version)
		assert.NoError(t, err)

		err = uow.Commit()
		assert.NoError(t, err)

		t.Log("Successfully created Document with Version in Transaction")
	})

	t.Run("Check Roadmap Revision Chain", func(t *testing.T) {
		ctx := context.Background()

		session := &entity.LearningSession{
			Id:          uuid.New(),
			UserId:      uuid.New(),
			Title:       "Roadmap Test Session " + uuid.New().String(),
			AgentStatus: entity.AgentStatusIdle,
		}
		err := uow.SessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		first := &entity.Roadmap{
			Id:        uuid.New(),
			SessionId: session.Id,
			Goal:      "学习 Go 并发编程",
			Version:   1,
			IsActive:  true,
			Milestones: []entity.RoadmapMilestone{
				{Id: 1, Title: "基础语法", Topics: []string{"变量", "函数"}},
			},
		}
		err = uow.RoadmapRepository().CreateAndDeactivatePrevious(ctx, first)
		assert.NoError(t, err)

		second := &entity.Roadmap{
			Id:              uuid.New(),
			SessionId:       session.Id,
			Goal:            first.Goal,
			Version:         2,
			IsActive:        true,
			ParentRoadmapId: &first.Id,
			Milestones:      first.Milestones,
		}
		err = uow.RoadmapRepository().CreateAndDeactivatePrevious(ctx, second)
		assert.NoError(t, err)

		active, err := uow.RoadmapRepository().GetActiveBySession(ctx, session.Id)
		assert.NoError(t, err)
		assert.Equal(t, second.Id, active.Id)
		assert.Equal(t, 2, active.Version)

		history, err := uow.RoadmapRepository().FindAll(ctx, specification.BySessionID{SessionID: session.Id})
		assert.NoError(t, err)
		assert.Len(t, history, 2)

		t.Log("Roadmap revision chain persisted with a single active version")
	})

	t.Run("Check Entity Link Upsert", func(t *testing.T) {
		ctx := context.Background()

		session := &entity.LearningSession{
			Id:          uuid.New(),
			UserId:      uuid.New(),
			Title:       "Entity Link Test Session " + uuid.New().String(),
			AgentStatus: entity.AgentStatusIdle,
		}
		err := uow.SessionRepository().Create(ctx, session)
		assert.NoError(t, err)

		doc := &entity.Document{
			Id:        uuid.New(),
			SessionId: session.Id,
			Topic:     "Channel 基础",
			Content:   "# Channel 基础\n\n占位内容。",
			Version:   1,
		}
		err = uow.DocumentRepository().Create(ctx, doc)
		assert.NoError(t, err)

		ent, err := uow.EntityRepository().FindOrCreate(ctx, session.Id, "channel")
		assert.NoError(t, err)

		// Linking the same (entity, document) twice must leave one row;
		// post-processing re-links on every document update.
		for i := 0; i < 2; i++ {
			err = uow.EntityRepository().Link(ctx, &entity.EntityLink{
				EntityId:   ent.Id,
				DocumentId: doc.Id,
				Relation:   entity.RelationExplains,
				Confidence: 1,
			})
			assert.NoError(t, err)
		}

		links, err := uow.EntityRepository().FindLinks(ctx, ent.Id)
		assert.NoError(t, err)
		assert.Len(t, links, 1)
	})
}
