package unitofwork

import (
	"context"

	"contract-review-be/internal/repository/contract"
)

// UnitOfWork groups repository calls into one transaction. Repositories
// obtained before Begin run outside the transaction.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	// BeginSnapshot starts a read-only transaction that sees one consistent
	// snapshot for all of its reads.
	BeginSnapshot(ctx context.Context) error
	Commit() error
	Rollback() error

	ContractRepository() contract.ContractRepository
	RiskAssessmentRepository() contract.RiskAssessmentRepository
	RecommendationRepository() contract.RecommendationRepository
	AppliedRecommendationRepository() contract.AppliedRecommendationRepository

	SignatureDocumentRepository() contract.SignatureDocumentRepository
	SignatureTemplateRepository() contract.SignatureTemplateRepository
	SigningSessionRepository() contract.SigningSessionRepository
	AuditEventRepository() contract.AuditEventRepository
}
