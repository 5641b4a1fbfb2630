package controller

import (
	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/serverutils"
	"contract-review-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

const accessCodeHeader = "X-Access-Code"

// ISigningController is the recipient side. Routes are public: the signing
// token in the path is the credential.
type ISigningController interface {
	RegisterRoutes(r fiber.Router)
	Open(ctx *fiber.Ctx) error
	CompleteField(ctx *fiber.Ctx) error
	Sign(ctx *fiber.Ctx) error
	Decline(ctx *fiber.Ctx) error
	UpdateCursor(ctx *fiber.Ctx) error
}

type signingController struct {
	service service.ILifecycleService
}

func NewSigningController(service service.ILifecycleService) ISigningController {
	return &signingController{service: service}
}

func (c *signingController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/signing/v1/:token")
	h.Post("/open", c.Open)
	h.Put("/fields/:fieldId", c.CompleteField)
	h.Post("/sign", c.Sign)
	h.Post("/decline", c.Decline)
	h.Put("/cursor", c.UpdateCursor)
}

// sessionActor carries only the origin. The lifecycle resolves the token
// to a recipient before anything is recorded.
func sessionActor(ctx *fiber.Ctx) (token, accessCode string, actor entity.Actor) {
	return ctx.Params("token"), ctx.Get(accessCodeHeader), entity.Actor{Origin: serverutils.Origin(ctx)}
}

func (c *signingController) Open(ctx *fiber.Ctx) error {
	token, accessCode, actor := sessionActor(ctx)

	var req dto.OpenSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}
	if req.AccessCode != "" {
		accessCode = req.AccessCode
	}

	res, err := c.service.OpenSession(ctx.Context(), actor, token, accessCode)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Signing session opened", dto.NewSigningSessionResponse(res.Session, res.Document)))
}

func (c *signingController) CompleteField(ctx *fiber.Ctx) error {
	token, accessCode, actor := sessionActor(ctx)
	fieldId, err := serverutils.ParamUUID(ctx, "fieldId")
	if err != nil {
		return err
	}

	var req dto.CompleteFieldRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CompleteField(ctx.Context(), actor, token, accessCode, fieldId, req.Value)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Field completed", dto.NewSigningSessionResponse(res.Session, res.Document)))
}

func (c *signingController) Sign(ctx *fiber.Ctx) error {
	token, accessCode, actor := sessionActor(ctx)

	res, err := c.service.SignWithSession(ctx.Context(), actor, token, accessCode)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document signed", dto.NewSigningSessionResponse(res.Session, res.Document)))
}

func (c *signingController) Decline(ctx *fiber.Ctx) error {
	token, accessCode, actor := sessionActor(ctx)

	var req dto.DeclineRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.DeclineWithSession(ctx.Context(), actor, token, accessCode, req.Reason)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Document declined", dto.NewSigningSessionResponse(res.Session, res.Document)))
}

func (c *signingController) UpdateCursor(ctx *fiber.Ctx) error {
	token, accessCode, actor := sessionActor(ctx)

	var req dto.CursorRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateCursor(ctx.Context(), actor, token, accessCode, req.Page)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Cursor updated", dto.NewSigningSessionResponse(res.Session, res.Document)))
}
