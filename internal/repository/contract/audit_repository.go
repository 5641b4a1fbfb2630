package contract

import (
	"context"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

// AuditEventRepository is append-only. Append fails with
// apperror.ErrDuplicate when (subject, sequence) is already taken.
type AuditEventRepository interface {
	Append(ctx context.Context, e *entity.AuditEvent) error
	FindLastBySubject(ctx context.Context, subjectId uuid.UUID) (*entity.AuditEvent, error)
	FindBySubject(ctx context.Context, subjectId uuid.UUID) ([]*entity.AuditEvent, error)
}
