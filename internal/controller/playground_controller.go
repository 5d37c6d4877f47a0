package controller

import (
	"context"
	"encoding/json"

	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/internal/pkg/serverutils"
	"ai-platform-be/internal/service"
	internalWS "ai-platform-be/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type IPlaygroundController interface {
	RegisterRoutes(r fiber.Router)
	Chat(ctx *fiber.Ctx) error
	ChatSocket(ctx *fiber.Ctx) error
	Models(ctx *fiber.Ctx) error
	Presets(ctx *fiber.Ctx) error
}

type playgroundController struct {
	playgroundService service.IPlaygroundService
	hub               *internalWS.Hub
	defaultProvider   string
	defaultModel      string
	logger            logger.ILogger
}

// NewPlaygroundController fills in defaultModel only for requests that target
// defaultProvider; other providers pick their own default model.
func NewPlaygroundController(
	playgroundService service.IPlaygroundService,
	hub *internalWS.Hub,
	defaultProvider string,
	defaultModel string,
	log logger.ILogger,
) IPlaygroundController {
	return &playgroundController{
		playgroundService: playgroundService,
		hub:               hub,
		defaultProvider:   defaultProvider,
		defaultModel:      defaultModel,
		logger:            log,
	}
}

func (c *playgroundController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/playground")
	h.Post("chat", c.Chat)
	h.Get("ws/chat", c.ChatSocket)
	h.Get("models", c.Models)
	h.Get("presets", c.Presets)
}

func (c *playgroundController) withDefaults(req *dto.PlaygroundChatRequest) {
	if req.Provider == "" {
		req.Provider = c.defaultProvider
	}
	if req.Model == "" && req.Provider == c.defaultProvider {
		req.Model = c.defaultModel
	}
}

func (c *playgroundController) Chat(ctx *fiber.Ctx) error {
	req := dto.NewPlaygroundChatRequest("", "")
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}
	c.withDefaults(&req)

	res, err := c.playgroundService.Chat(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success chat", res))
}

// ChatSocket streams one answer per inbound chat request. Any failure is
// reported as an error frame and ends the session.
func (c *playgroundController) ChatSocket(ctx *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(ctx) {
		return fiber.ErrUpgradeRequired
	}

	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	return websocket.New(func(conn *websocket.Conn) {
		internalWS.ServeWs(context.Background(), c.hub, conn, userId, c.handleSocketRequest)
	})(ctx)
}

func (c *playgroundController) handleSocketRequest(ctx context.Context, client *internalWS.Client, payload []byte) error {
	fail := func(err error) error {
		client.Emit(dto.PlaygroundStreamEvent{Type: "error", Error: err.Error()})
		return err
	}

	req := dto.NewPlaygroundChatRequest("", "")
	if err := json.Unmarshal(payload, &req); err != nil {
		return fail(fiber.NewError(fiber.StatusBadRequest, "invalid request"))
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return fail(err)
	}
	c.withDefaults(&req)

	err := c.playgroundService.Stream(ctx, req, func(ev dto.PlaygroundStreamEvent) error {
		return client.Emit(ev)
	})
	if err != nil {
		c.logger.Warn("PLAYGROUND", "Socket stream failed", map[string]interface{}{
			"user_id": client.UserID.String(),
			"error":   err.Error(),
		})
		return fail(err)
	}
	return nil
}

func (c *playgroundController) Models(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success list models", c.playgroundService.Models()))
}

func (c *playgroundController) Presets(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Success list presets", c.playgroundService.Presets()))
}
