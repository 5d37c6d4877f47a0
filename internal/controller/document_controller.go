package controller

import (
	"encoding/json"
	"io"

	"ai-platform-be/internal/dto"
	"ai-platform-be/internal/pkg/apperror"
	"ai-platform-be/internal/pkg/serverutils"
	"ai-platform-be/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type IDocumentController interface {
	RegisterRoutes(r fiber.Router)
	Upload(ctx *fiber.Ctx) error
	List(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Delete(ctx *fiber.Ctx) error
}

type documentController struct {
	documentService service.IDocumentService
}

func NewDocumentController(documentService service.IDocumentService) IDocumentController {
	return &documentController{
		documentService: documentService,
	}
}

func (c *documentController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/rag/documents")
	h.Post("", c.Upload)
	h.Get("", c.List)
	h.Get(":id", c.Show)
	h.Delete(":id", c.Delete)
}

// Upload expects a multipart "file" part. collection_name comes from the
// query string or a form field; metadata is an optional JSON object field.
func (c *documentController) Upload(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	collectionName := ctx.Query("collection_name")
	if collectionName == "" {
		collectionName = ctx.FormValue("collection_name")
	}
	if collectionName == "" {
		return apperror.New(apperror.ErrValidation, "collection_name is required")
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return apperror.New(apperror.ErrValidation, "file is required")
	}

	metadata := map[string]interface{}{}
	if raw := ctx.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			return apperror.New(apperror.ErrValidation, "metadata must be a JSON object")
		}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}

	res, err := c.documentService.Process(ctx.UserContext(), dto.ProcessDocumentInput{
		FileBytes:      data,
		Filename:       fileHeader.Filename,
		ContentType:    fileHeader.Header.Get("Content-Type"),
		CollectionName: collectionName,
		UserId:         userId,
		Metadata:       metadata,
	})
	if err != nil {
		if res != nil {
			// the row exists in failed state; hand it back with the reason
			return ctx.Status(fiber.StatusUnprocessableEntity).
				JSON(serverutils.ErrorResponseWithData(fiber.StatusUnprocessableEntity, err.Error(), res))
		}
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success process document", res))
}

func (c *documentController) List(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	var req dto.ListDocumentsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return apperror.New(apperror.ErrValidation, "invalid query parameters")
	}

	res, err := c.documentService.List(ctx.UserContext(), userId, req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success list documents", res))
}

func (c *documentController) Show(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.New(apperror.ErrValidation, "invalid document id")
	}

	res, err := c.documentService.Get(ctx.UserContext(), userId, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document", res))
}

func (c *documentController) Delete(ctx *fiber.Ctx) error {
	userId, err := serverutils.UserID(ctx)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(ctx.Params("id"))
	if err != nil {
		return apperror.New(apperror.ErrValidation, "invalid document id")
	}

	if err := c.documentService.Delete(ctx.UserContext(), userId, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete document", nil))
}
