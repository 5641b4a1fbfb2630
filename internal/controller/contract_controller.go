package controller

import (
	"contract-review-be/internal/dto"
	"contract-review-be/internal/pkg/serverutils"
	"contract-review-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IContractController interface {
	RegisterRoutes(r fiber.Router)
	Create(ctx *fiber.Ctx) error
	GetAll(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	UpdateContent(ctx *fiber.Ctx) error
	Analyze(ctx *fiber.Ctx) error
	AuditTrail(ctx *fiber.Ctx) error
}

type contractController struct {
	service   service.IContractService
	jobs      service.IAnalysisJobPublisher
	jwtSecret string
}

func NewContractController(service service.IContractService, jobs service.IAnalysisJobPublisher, jwtSecret string) IContractController {
	return &contractController{
		service:   service,
		jobs:      jobs,
		jwtSecret: jwtSecret,
	}
}

func (c *contractController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/contract/v1")
	h.Use(serverutils.JwtMiddleware(c.jwtSecret))
	h.Post("", c.Create)
	h.Get("", c.GetAll)
	h.Get("/:id", c.Show)
	h.Put("/:id/content", c.UpdateContent)
	h.Post("/:id/analyze", c.Analyze)
	h.Get("/:id/audit", c.AuditTrail)
}

func (c *contractController) Create(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	var req dto.CreateContractRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Create(ctx.Context(), actor, &req)
	if err != nil {
		return err
	}

	return ctx.Status(fiber.StatusCreated).JSON(serverutils.SuccessResponse("Success create contract", dto.NewContractResponse(res)))
}

func (c *contractController) GetAll(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}

	res, err := c.service.List(ctx.Context(), actor, ctx.QueryInt("limit", 20), ctx.QueryInt("offset", 0))
	if err != nil {
		return err
	}

	out := make([]dto.ContractResponse, 0, len(res))
	for _, contract := range res {
		out = append(out, dto.NewContractResponse(contract))
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get all contracts", out))
}

func (c *contractController) Show(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	detail, err := c.service.Get(ctx.Context(), actor, id)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success show contract", dto.ContractDetailResponse{
		ContractResponse: dto.NewContractResponse(detail.Contract),
		RiskAssessments:  dto.NewRiskAssessmentResponses(detail.RiskAssessments),
		Recommendations:  dto.NewRecommendationResponses(detail.Recommendations),
		Applied:          dto.NewAppliedRecommendationResponses(detail.Applied),
	}))
}

func (c *contractController) UpdateContent(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	var req dto.UpdateContractContentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}
	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.UpdateContent(ctx.Context(), actor, id, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success update contract content", dto.NewContractResponse(res)))
}

// Analyze only queues the run. Ownership is checked up front so a stranger
// cannot fill the queue; the worker checks again when the job runs.
func (c *contractController) Analyze(ctx *fiber.Ctx) error {
	actor, err := serverutils.OwnerActor(ctx)
	if err != nil {
		return err
	}
	id, err := serverutils.ParamUUID(ctx, "id")
	if err != nil {
		return err
	}

	if _, err := c.service.Get(ctx.Context(), actor, id); err != nil {
		return err
	}
	if err := c.jobs.Enqueue(ctx.Context(), actor, id); err != nil {
		return err
	}

	return ctx.Status(fiber.StatusAccepted).JSON(serverutils.SuccessResponse("Analysis queued", dto.AnalysisQueuedResponse{
		ContractId: id,
		Status:     "queued",
	}))
}

func (c *contractController) AuditTrail(ctx *fiber.Ctx) error {
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
