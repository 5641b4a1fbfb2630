package contract

import (
	"context"
	"time"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

// SignatureDocumentRepository persists the document aggregate (fields and
// recipients included). Update is a compare-and-swap on Version.
type SignatureDocumentRepository interface {
	Create(ctx context.Context, doc *entity.SignatureDocument) error
	Update(ctx context.Context, doc *entity.SignatureDocument) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SignatureDocument, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.SignatureDocument, error)
	FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) ([]*entity.SignatureDocument, error)
	FindExpiring(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error)
}

type SignatureTemplateRepository interface {
	Create(ctx context.Context, t *entity.SignatureTemplate) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SignatureTemplate, error)
	FindByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.SignatureTemplate, error)
}

type SigningSessionRepository interface {
	Create(ctx context.Context, s *entity.SigningSession) error
	Update(ctx context.Context, s *entity.SigningSession) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SigningSession, error)
	FindByTokenHash(ctx context.Context, tokenHash string) (*entity.SigningSession, error)
	FindActiveByRecipient(ctx context.Context, documentId, recipientId uuid.UUID) (*entity.SigningSession, error)
	FindActiveByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.SigningSession, error)
}
