package controller

import (
	"ai-learnpath-be/internal/pkg/serverutils"
	"ai-learnpath-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IEntityController interface {
	RegisterRoutes(r fiber.Router)
	GetBySession(ctx *fiber.Ctx) error
	ClickFollowUp(ctx *fiber.Ctx) error
}

type entityController struct {
	entityService  service.IEntityService
	messageService service.IMessageService
}

func NewEntityController(entityService service.IEntityService, messageService service.IMessageService) IEntityController {
	return &entityController{
		entityService:  entityService,
		messageService: messageService,
	}
}

func (c *entityController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/entity/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Get("session/:sessionId", c.GetBySession)
	h.Put("follow-up/:id/click", c.ClickFollowUp)
}

func (c *entityController) GetBySession(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)
	sessionId, _ := uuid.Parse(ctx.Params("sessionId"))

	res, err := c.entityService.GetBySession(ctx.Context(), userId, sessionId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session entities", res))
}

func (c *entityController) ClickFollowUp(ctx *fiber.Ctx) error {
	id, _ := uuid.Parse(ctx.Params("id"))

	if err := c.messageService.ClickFollowUp(ctx.Context(), id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success mark follow-up clicked", nil))
}
