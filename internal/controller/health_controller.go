package controller

import (
	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Health(ctx *fiber.Ctx) error
	Ready(ctx *fiber.Ctx) error
	Live(ctx *fiber.Ctx) error
}

type healthController struct {
	healthService service.IHealthService
}

func NewHealthController(healthService service.IHealthService) IHealthController {
	return &healthController{
		healthService: healthService,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/health")
	h.Get("", c.Health)
	h.Get("ready", c.Ready)
	h.Get("live", c.Live)
}

func (c *healthController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(c.healthService.Check(ctx.UserContext()))
}

func (c *healthController) Ready(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.ProbeResponse{Status: "ready"})
}

func (c *healthController) Live(ctx *fiber.Ctx) error {
	return ctx.JSON(dto.ProbeResponse{Status: "alive"})
}
