package controller

import (
	"startup-hunter-be/internal/dto"

	"github.com/gofiber/fiber/v2"
)

type HealthController struct {
	version string
}

func NewHealthController(version string) *HealthController {
	return &HealthController{version: version}
}

func (c *HealthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Health)
}

func (c *HealthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.HealthResponse{Status: "ok", Service: "Startup Hunter API", Version: c.version})
}
