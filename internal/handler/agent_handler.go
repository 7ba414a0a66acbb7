package handler

import (
	"os"

	"ai-learnpath-be/internal/pkg/logger"
	"ai-learnpath-be/internal/repository/memory"
	"ai-learnpath-be/internal/service"
	internalWS "ai-learnpath-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AgentHandler upgrades websocket connections onto a learning session's
// event stream and feeds inbound frames into the agent service.
type AgentHandler struct {
	agentService   service.IAgentService
	sessionService service.ISessionService
	hub            *internalWS.Hub
	turns          *memory.TurnRepository
	logger         logger.ILogger
}

func NewAgentHandler(
	agentService service.IAgentService,
	sessionService service.ISessionService,
	hub *internalWS.Hub,
	turns *memory.TurnRepository,
	log logger.ILogger,
) *AgentHandler {
	return &AgentHandler{
		agentService:   agentService,
		sessionService: sessionService,
		hub:            hub,
		turns:          turns,
		logger:         log,
	}
}

// ServeWs handles websocket requests from the peer.
func (h *AgentHandler) ServeWs(c *fiber.Ctx) error {
	// 1. Get Token source
	// Priority 1: Query Param (Browser standard)
	tokenStr := c.Query("token")

	// Priority 2: Authorization Header (Tooling/Non-browser standard)
	if tokenStr == "" {
		authHeader := c.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			tokenStr = authHeader[7:]
		}
	}

	userID, err := h.resolveUser(tokenStr)
	if err != nil {
		h.logger.Warn("AgentHandler", "Invalid token in WS handshake", map[string]interface{}{"error": err.Error()})
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	}

	sessionID, err := uuid.Parse(c.Params("sessionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	// The stream is scoped by ownership: a foreign session just does not
	// exist for this user.
	session, err := h.sessionService.Show(c.Context(), userID, sessionID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Session not found"})
	}

	// Upgrade via Fiber WebSocket Middleware
	if websocket.IsWebSocketUpgrade(c) {
		return websocket.New(func(conn *websocket.Conn) {
			h.logger.Info("AgentHandler", "Starting WebSocket session", map[string]interface{}{"session_id": sessionID, "user_id": userID})
			internalWS.ServeWs(h.hub, conn, sessionID, userID, h.agentService, h.turns)
			h.logger.Info("AgentHandler", "WebSocket session ended", map[string]interface{}{"session_id": sessionID})
		})(c)
	}
	return fiber.ErrUpgradeRequired
}

// resolveUser parses the JWT, falling back to the fixed development
// identity when no token is presented, mirroring the HTTP middleware.
func (h *AgentHandler) resolveUser(tokenStr string) (uuid.UUID, error) {
	if tokenStr == "" {
		devID := os.Getenv("DEV_USER_ID")
		if devID == "" {
			devID = "00000000-0000-0000-0000-000000000001"
		}
		return uuid.Parse(devID)
	}

	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid token claims")
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "Token missing user_id")
	}

	return uuid.Parse(userIDStr)
}

// RegisterRoutes registers the websocket route.
func (h *AgentHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/ws/session/:sessionId", h.ServeWs)
}
