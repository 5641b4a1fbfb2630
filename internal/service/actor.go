package service

import (
	"strings"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

// authorizeOwner lets the system actor through and otherwise requires the
// acting user to own the resource.
func authorizeOwner(actor entity.Actor, ownerId uuid.UUID) error {
	if actor.Kind == entity.ActorSystem {
		return nil
	}
	if actor.Kind == entity.ActorUser && actor.Id == ownerId {
		return nil
	}
	return apperror.ErrForbidden
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
