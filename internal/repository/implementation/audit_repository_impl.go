package implementation

import (
	"context"
	"errors"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/mapper"
	"contract-review-be/internal/model"
	"contract-review-be/internal/repository/contract"
	"contract-review-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuditEventRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AuditMapper
}

func NewAuditEventRepository(db *gorm.DB) contract.AuditEventRepository {
	return &AuditEventRepositoryImpl{
		db:     db,
		mapper: mapper.NewAuditMapper(),
	}
}

func (r *AuditEventRepositoryImpl) Append(ctx context.Context, e *entity.AuditEvent) error {
	return translateError(r.db.WithContext(ctx).Create(r.mapper.ToModel(e)).Error)
}

func (r *AuditEventRepositoryImpl) FindLastBySubject(ctx context.Context, subjectId uuid.UUID) (*entity.AuditEvent, error) {
	var m model.AuditEvent
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySubjectID{SubjectID: subjectId},
		specification.OrderBy{Field: "sequence", Desc: true},
	)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *AuditEventRepositoryImpl) FindBySubject(ctx context.Context, subjectId uuid.UUID) ([]*entity.AuditEvent, error) {
	var models []*model.AuditEvent
	query := applySpecifications(r.db.WithContext(ctx),
		specification.BySubjectID{SubjectID: subjectId},
		specification.OrderBy{Field: "sequence"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}
