package controller

import (
	"errors"

	"startup-hunter-be/internal/dto"
	"startup-hunter-be/internal/pkg/serverutils"
	"startup-hunter-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IPipelineController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	GetHistory(ctx *fiber.Ctx) error
	StopServer(ctx *fiber.Ctx) error
	DeleteSession(ctx *fiber.Ctx) error
	StopAllServers(ctx *fiber.Ctx) error
}

type pipelineController struct {
	service   service.IPipelineService
	jwtSecret string
}

func NewPipelineController(service service.IPipelineService, jwtSecret string) IPipelineController {
	return &pipelineController{service: service, jwtSecret: jwtSecret}
}

func (c *pipelineController) RegisterRoutes(r fiber.Router) {
	r.Use(serverutils.OptionalJwtMiddleware(c.jwtSecret))
	r.Post("/chat", c.Chat)
	r.Get("/sessions/:id", c.GetSession)
	r.Get("/sessions/:id/history", c.GetHistory)
	r.Delete("/sessions/:id/server", c.StopServer)
	r.Delete("/sessions/:id", c.DeleteSession)
	r.Delete("/servers", c.StopAllServers)
}

func (c *pipelineController) Chat(ctx *fiber.Ctx) error {
	var req dto.ChatRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	if req.Stage == dto.ChatStageInput && req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "message is required for stage input")
	}

	res, err := c.service.Chat(ctx.UserContext(), serverutils.UserID(ctx), &req)
	if err != nil {
		var failure *service.StageFailure
		if errors.As(err, &failure) {
			code := serverutils.StageStatus(failure.Err)
			return ctx.Status(code).JSON(serverutils.ErrorResponseWithData(code, failure.Err.Message, fiber.Map{
				"session_id": failure.SessionId,
				"step":       failure.Err.Step,
				"kind":       failure.Err.Kind,
			}))
		}
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse(res.Message, res))
}

func (c *pipelineController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *pipelineController) GetHistory(ctx *fiber.Ctx) error {
	res, err := c.service.GetHistory(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session history", res))
}

func (c *pipelineController) StopServer(ctx *fiber.Ctx) error {
	res, err := c.service.StopServer(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse("Success stop server", res))
}

func (c *pipelineController) DeleteSession(ctx *fiber.Ctx) error {
	if err := c.service.DeleteSession(ctx.UserContext(), ctx.Params("id")); err != nil {
		return err
	}
	return ctx.JSON(serverutils.SuccessResponse[any]("Session deleted", nil))
}

func (c *pipelineController) StopAllServers(ctx *fiber.Ctx) error {
	res := c.service.StopAllServers(ctx.UserContext())
	return ctx.JSON(serverutils.SuccessResponse("Success stop all servers", res))
}
