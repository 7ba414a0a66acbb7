package controller

import (
	"ai-learnpath-be/internal/dto"
	"ai-learnpath-be/internal/pkg/serverutils"
	"ai-learnpath-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IRoadmapController interface {
	RegisterRoutes(r fiber.Router)
	GetActive(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	CompleteMilestone(ctx *fiber.Ctx) error
}

type roadmapController struct {
	service service.IRoadmapService
}

func NewRoadmapController(service service.IRoadmapService) IRoadmapController {
	return &roadmapController{service: service}
}

func (c *roadmapController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/roadmap/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("session/:sessionId", c.GetActive)
	h.Get("session/:sessionId/history", c.GetHistory)
	h.Put("session/:sessionId/milestone", c.CompleteMilestone)
}

func (c *roadmapController) GetActive(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	sessionId, _ := uuid.Parse(ctx.Params("sessionId"))

	res, err := c.service.GetActive(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "No active roadmap")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get active roadmap", res))
}

func (c *roadmapController) GetHistory(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	sessionId, _ := uuid.Parse(ctx.Params("sessionId"))

	res, err := c.service.GetHistory(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get roadmap history", res))
}

func (c *roadmapController) CompleteMilestone(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	sessionId, _ := uuid.Parse(ctx.Params("sessionId"))

	var req dto.CompleteMilestoneRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CompleteMilestone(ctx.Context(), userId, sessionId, &req)
	if err != nil {
		return err
	}
	if res == nil {
		return fiber.NewError(fiber.StatusNotFound, "No active roadmap")
	}

	return ctx.JSON(serverutils.SuccessResponse("Success complete milestone", res))
}
