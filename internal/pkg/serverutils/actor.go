package serverutils

import (
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func Origin(ctx *fiber.Ctx) entity.Origin {
	return entity.Origin{
		IPAddress: ctx.IP(),
		Client:    ctx.Get(fiber.HeaderUserAgent),
	}
}

// OwnerActor builds the actor for routes behind JwtMiddleware.
func OwnerActor(ctx *fiber.Ctx) (entity.Actor, error) {
	userIdStr, _ := ctx.Locals("user_id").(string)
	userId, err := uuid.Parse(userIdStr)
	if err != nil {
		return entity.Actor{}, apperror.ErrForbidden
	}
	return entity.UserActor(userId, Origin(ctx)), nil
}

// ParamUUID parses a path parameter as a UUID.
func ParamUUID(ctx *fiber.Ctx, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(ctx.Params(name))
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
