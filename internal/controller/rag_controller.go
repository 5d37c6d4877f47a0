package controller

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/pkg/logger"
	"ai-platform-be/internal/pkg/serverutils"
	"ai-platform-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRAGController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	QueryStream(ctx *fiber.Ctx) error
	Search(ctx *fiber.Ctx) error
}

type ragController struct {
	ragService service.IRAGService
	logger     logger.ILogger
}

func NewRAGController(ragService service.IRAGService, log logger.ILogger) IRAGController {
	return &ragController{
		ragService: ragService,
		logger:     log,
	}
}

func (c *ragController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag")
	h.Post("query", c.Query)
	h.Post("query/stream", c.QueryStream)
	h.Post("search", c.Search)
}

func (c *ragController) parseQuery(ctx *fiber.Ctx) (dto.RAGQueryRequest, error) {
	req := dto.NewRAGQueryRequest()
	if err := ctx.BodyParser(&req); err != nil {
		return req, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return req, err
	}
	return req, nil
}

func (c *ragController) Query(ctx *fiber.Ctx) error {
	req, err := c.parseQuery(ctx)
	if err != nil {
		return err
	}

	res, err := c.ragService.Query(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success query", res))
}

// QueryStream answers with server-sent events, one JSON event per data line,
// terminated by "data: [DONE]".
func (c *ragController) QueryStream(ctx *fiber.Ctx) error {
	req, err := c.parseQuery(ctx)
	if err != nil {
		return err
	}

	// the body writer runs after this handler returns
	streamCtx, cancel := context.WithCancel(context.WithoutCancel(ctx.UserContext()))
	events, err := c.ragService.QueryStream(streamCtx, req)
	if err != nil {
		cancel()
		return err
	}

	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	ctx.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()

		for ev := range events {
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if err := writeEvent(w, string(data)); err != nil {
				c.logger.Warn("RAG", "Stream client went away", map[string]interface{}{"error": err.Error()})
				cancel()
				for range events {
				}
				return
			}
		}
		writeEvent(w, "[DONE]")
	})
	return nil
}

func writeEvent(w *bufio.Writer, data string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return w.Flush()
}

func (c *ragController) Search(ctx *fiber.Ctx) error {
	req := dto.NewSearchRequest()
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ragService.Search(ctx.UserContext(), req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success search", res))
}
