package contract

import (
	"context"
	"time"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

// ContractRepository.Update is a compare-and-swap on Version: it fails with
// apperror.ErrStaleWrite when the stored version differs and bumps Version
// on success.
type ContractRepository interface {
	Create(ctx context.Context, c *entity.Contract) error
	Update(ctx context.Context, c *entity.Contract) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error)
	FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) ([]*entity.Contract, error)
	FindStaleAnalyzing(ctx context.Context, startedBefore time.Time) ([]*entity.Contract, error)
}

type RiskAssessmentRepository interface {
	CreateBulk(ctx context.Context, assessments []*entity.RiskAssessment) error
	DeleteByContractID(ctx context.Context, contractId uuid.UUID) error
	FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.RiskAssessment, error)
}

type RecommendationRepository interface {
	CreateBulk(ctx context.Context, recommendations []*entity.Recommendation) error
	Update(ctx context.Context, r *entity.Recommendation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Recommendation, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Recommendation, error)
	FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.Recommendation, error)
	DeleteByContractID(ctx context.Context, contractId uuid.UUID) error
}

type AppliedRecommendationRepository interface {
	Create(ctx context.Context, a *entity.AppliedRecommendation) error
	FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.AppliedRecommendation, error)
	FindByRecommendationID(ctx context.Context, recommendationId uuid.UUID) (*entity.AppliedRecommendation, error)
}
