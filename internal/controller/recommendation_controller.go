package controller

import (
	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/serverutils"
	"contract-review-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IRecommendationController interface {
	RegisterRoutes(r fiber.Router)
	Apply(ctx *fiber.Ctx) error
	Reject(ctx *fiber.Ctx) error
}

type recommendationController struct {
	service   service.IRecommendationService
	jwtSecret string
}

func NewRecommendationController(service service.IRecommendationService, jwtSecret string) IRecommendationController {
	return &recommendationController{service: service, jwtSecret: jwtSecret}
}

func (c *recommendationController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/recommendation/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("/:id/apply", c.Apply)
	h.Post("/:id/reject", c.Reject)
}

func (c *recommendationController) Apply(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.ApplyRecommendationRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Apply(ctx.Context(), actor, id, entity.ModificationType(req.ModificationType), req.HighlightColor)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Recommendation applied", dto.NewAppliedRecommendationResponse(res)))
}

func (c *recommendationController) Reject(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if err := c.service.Reject(ctx.Context(), actor, id); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Recommendation rejected", nil))
}
