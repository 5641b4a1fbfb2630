package controller

import (
	"contract-review-be/internal/dto"
	"contract-review-be/internal/pkg/serverutils"
	"contract-review-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ISignatureController serves the owner side of the signing lifecycle:
// drafts, templates, sending and acting for a recipient in person.
type ISignatureController interface {
	RegisterRoutes(r fiber.Router)
	CreateDocument(ctx *fiber.Ctx) error
	GetAllDocuments(ctx *fiber.Ctx) error
	ShowDocument(ctx *fiber.Ctx) error
	UpdateDraft(ctx *fiber.Ctx) error
	Send(ctx *fiber.Ctx) error
	RecipientAct(ctx *fiber.Ctx) error
	ReissueSession(ctx *fiber.Ctx) error
	AuditTrail(ctx *fiber.Ctx) error
	CreateTemplate(ctx *fiber.Ctx) error
	GetAllTemplates(ctx *fiber.Ctx) error
	CreateFromTemplate(ctx *fiber.Ctx) error
}

type signatureController struct {
	service   service.ILifecycleService
	jwtSecret string
}

func NewSignatureController(service service.ILifecycleService, jwtSecret string) ISignatureController {
	return &signatureController{service: service, jwtSecret: jwtSecret}
}

func (c *signatureController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/signature/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))

	h.Post("/templates", c.CreateTemplate)
	h.Get("/templates", c.GetAllTemplates)
	h.Post("/templates/:id/documents", c.CreateFromTemplate)

	h.Post("/documents", c.CreateDocument)
	h.Get("/documents", c.GetAllDocuments)
	h.Get("/documents/:id", c.ShowDocument)
	h.Put("/documents/:id", c.UpdateDraft)
	h.Post("/documents/:id/send", c.Send)
	h.Get("/documents/:id/audit", c.AuditTrail)
	h.Post("/documents/:id/recipients/:recipientId/actions", c.RecipientAct)
	h.Post("/documents/:id/recipients/:recipientId/reissue", c.ReissueSession)
}

func (c *signatureController) CreateDocument(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateDocument(ctx.Context(), actor, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create document", dto.NewDocumentResponse(res)))
}

func (c *signatureController) GetAllDocuments(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListDocuments(ctx.Context(), actor, ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get all documents", dto.NewDocumentResponses(res)))
}

func (c *signatureController) ShowDocument(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.GetDocument(ctx.Context(), actor, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show document", dto.NewDocumentResponse(res)))
}

func (c *signatureController) UpdateDraft(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateDraftRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateDraft(ctx.Context(), actor, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update draft", dto.NewDocumentResponse(res)))
}

func (c *signatureController) Send(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.Send(ctx.Context(), actor, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document sent", dto.NewDocumentResponse(res)))
}

func (c *signatureController) RecipientAct(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}
	recipientId, err := serverutils.ParamUUID(ctx, "recipientId")
	if err != nil {
		return err
	}

	var req dto.RecipientActRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.RecipientAct(ctx.Context(), actor, id, recipientId, service.RecipientAction(req.Action), req.Reason)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Recipient action recorded", dto.NewDocumentResponse(res)))
}

func (c *signatureController) ReissueSession(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}
	recipientId, err := serverutils.ParamUUID(ctx, "recipientId")
	if err != nil {
		return err
	}

	if err := c.service.ReissueSession(ctx.Context(), actor, id, recipientId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Signing link reissued", nil))
}

func (c *signatureController) AuditTrail(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	res, err := c.service.AuditTrail(ctx.Context(), actor, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get audit trail", dto.NewAuditEventResponses(res)))
}

func (c *signatureController) CreateTemplate(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateTemplate(ctx.Context(), actor, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create template", dto.NewTemplateResponse(res)))
}

func (c *signatureController) GetAllTemplates(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.ListTemplates(ctx.Context(), actor)
	if err != nil {
		return err
	}

	out := make([]dto.TemplateResponse, 0, len(res))
	for _, t := range res {
		out = append(out, dto.NewTemplateResponse(t))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all templates", out))
}

func (c *signatureController) CreateFromTemplate(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.CreateFromTemplateRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateFromTemplate(ctx.Context(), actor, id, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create document from template", dto.NewDocumentResponse(res)))
}
