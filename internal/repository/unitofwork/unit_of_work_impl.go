package unitofwork

import (
	"context"
	"database/sql"
	"fmt"

	"contract-review-be/internal/repository/contract"
	"contract-review-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) BeginSnapshot(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	tx := u.db.WithContext(ctx).Begin(&sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if tx.Error != nil {
		return tx.Error
	}
	u.tx = tx
	return nil
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ContractRepository() contract.ContractRepository {
	return implementation.NewContractRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RiskAssessmentRepository() contract.RiskAssessmentRepository {
	return implementation.NewRiskAssessmentRepository(u.getDB())
}

func (u *UnitOfWorkImpl) RecommendationRepository() contract.RecommendationRepository {
	return implementation.NewRecommendationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AppliedRecommendationRepository() contract.AppliedRecommendationRepository {
	return implementation.NewAppliedRecommendationRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SignatureDocumentRepository() contract.SignatureDocumentRepository {
	return implementation.NewSignatureDocumentRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SignatureTemplateRepository() contract.SignatureTemplateRepository {
	return implementation.NewSignatureTemplateRepository(u.getDB())
}

func (u *UnitOfWorkImpl) SigningSessionRepository() contract.SigningSessionRepository {
	return implementation.NewSigningSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) AuditEventRepository() contract.AuditEventRepository {
	return implementation.NewAuditEventRepository(u.getDB())
}
