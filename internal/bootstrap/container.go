package bootstrap

import (
	"context"
	stdlog "log"

	"ai-learnpath-be/internal/config"
	"ai-learnpath-be/internal/constant"
	"ai-learnpath-be/internal/controller"
	"ai-learnpath-be/internal/handler"
	"ai-learnpath-be/internal/pkg/logger"
	"ai-learnpath-be/internal/repository/memory"
	"ai-learnpath-be/internal/repository/unitofwork"
	"ai-learnpath-be/internal/service"
	"ai-learnpath-be/internal/websocket"
	"ai-learnpath-be/pkg/agent"
	"ai-learnpath-be/pkg/embedding"
	"ai-learnpath-be/pkg/llm/factory"

	pktNats "ai-learnpath-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	SessionController  controller.ISessionController
	DocumentController controller.IDocumentController
	RoadmapController  controller.IRoadmapController
	EntityController   controller.IEntityController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// WebSockets & Agent
	AgentHandler *handler.AgentHandler
	WebSocketHub *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Services
	// Initialize Embedding Provider based on Config
	embeddingProvider := embedding.NewOllamaProvider(
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.EmbeddingModel,
	)
	stdlog.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)

	// Initialize LLM Provider based on Config
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.HuggingFaceAPIKey,
	)
	if err != nil {
		stdlog.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	stdlog.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// Initialize In-Memory Turn Registry
	turnRepo := memory.NewTurnRepository()

	// 2.5 Infrastructure (Moved up for dependency injection)
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		stdlog.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		stdlog.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		stdlog.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		stdlog.Printf("[WARN] Failed to connect to Redis: %v", err)
		rdb = nil
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/agent_stream.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	publisherService := service.NewPublisherService(constant.EmbedDocumentTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		constant.EmbedDocumentTopic,
		uowFactory,
		embeddingProvider, // Injected
	)

	// Agent pipeline
	navigator := service.NewVectorNavigator(uowFactory, embeddingProvider)
	orchestrator := agent.NewOrchestrator(llmProvider, navigator, stdlog.Default())
	orchestrator.DisableLLMIntent = cfg.Ai.DisableLLMIntent

	sessionService := service.NewSessionService(uowFactory)
	documentService := service.NewDocumentService(uowFactory)
	roadmapService := service.NewRoadmapService(uowFactory)
	entityService := service.NewEntityService(uowFactory)
	messageService := service.NewMessageService(uowFactory)

	agentService := service.NewAgentService(
		uowFactory,
		orchestrator,
		publisherService,
		natsPub,
		sysLogger,
	)

	// Audit trail worker
	if natsSub != nil {
		activityService := service.NewActivityService(natsSub, sysLogger)
		go activityService.Start()
	}

	// Handler
	agentHandler := handler.NewAgentHandler(agentService, sessionService, wsHub, turnRepo, wsLogger)

	// 4. Controllers
	// Note: We return the container with public fields for the server to register
	return &Container{
		AgentHandler: agentHandler,
		WebSocketHub: wsHub,

		SessionController:  controller.NewSessionController(sessionService),
		DocumentController: controller.NewDocumentController(documentService),
		RoadmapController:  controller.NewRoadmapController(roadmapService),
		EntityController:   controller.NewEntityController(entityService, messageService),

		ConsumerService: consumerService,
	}
}
