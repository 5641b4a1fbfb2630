package implementation

import (
	"context"
	"errors"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/mapper"
	"contract-review-be/internal/model"
	"contract-review-be/internal/repository/contract"
	"contract-review-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContractMapper
}

func NewContractRepository(db *gorm.DB) contract.ContractRepository {
	return &ContractRepositoryImpl{
		db:     db,
		mapper: mapper.NewContractMapper(),
	}
}

func (r *ContractRepositoryImpl) Create(ctx context.Context, c *entity.Contract) error {
	if c.Version == 0 {
		c.Version = 1
	}
	m := r.mapper.ToModel(c)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	*c = *r.mapper.ToEntity(m)
	return nil
}

func (r *ContractRepositoryImpl) Update(ctx context.Context, c *entity.Contract) error {
	m := r.mapper.ToModel(c)
	m.Version = c.Version + 1
	if err := casUpdate(r.db.WithContext(ctx), m, c.Id, c.Version); err != nil {
		return err
	}
	c.Version = m.Version
	return nil
}

func (r *ContractRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Contract, error) {
	var m model.Contract
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *ContractRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *ContractRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.findOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
}

func (r *ContractRepositoryImpl) FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) ([]*entity.Contract, error) {
	var models []*model.Contract
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByOwner{OwnerID: ownerId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *ContractRepositoryImpl) FindStaleAnalyzing(ctx context.Context, startedBefore time.Time) ([]*entity.Contract, error) {
	var models []*model.Contract
	query := applySpecifications(r.db.WithContext(ctx), specification.AnalyzingSince{Before: startedBefore})
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

type RiskAssessmentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContractMapper
}

func NewRiskAssessmentRepository(db *gorm.DB) contract.RiskAssessmentRepository {
	return &RiskAssessmentRepositoryImpl{db: db, mapper: mapper.NewContractMapper()}
}

func (r *RiskAssessmentRepositoryImpl) CreateBulk(ctx context.Context, assessments []*entity.RiskAssessment) error {
	if len(assessments) == 0 {
		return nil
	}
	models := make([]*model.RiskAssessment, len(assessments))
	for i, a := range assessments {
		models[i] = r.mapper.AssessmentToModel(a, i)
	}
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(&models).Error)
}

func (r *RiskAssessmentRepositoryImpl) DeleteByContractID(ctx context.Context, contractId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("contract_id = ?", contractId).Delete(&model.RiskAssessment{}).Error
}

func (r *RiskAssessmentRepositoryImpl) FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.RiskAssessment, error) {
	var models []*model.RiskAssessment
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByContractID{ContractID: contractId},
		specification.OrderBy{Field: "position"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.RiskAssessment, len(models))
	for i, m := range models {
		out[i] = r.mapper.AssessmentToEntity(m)
	}
	return out, nil
}

type RecommendationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContractMapper
}

func NewRecommendationRepository(db *gorm.DB) contract.RecommendationRepository {
	return &RecommendationRepositoryImpl{db: db, mapper: mapper.NewContractMapper()}
}

func (r *RecommendationRepositoryImpl) CreateBulk(ctx context.Context, recommendations []*entity.Recommendation) error {
	if len(recommendations) == 0 {
		return nil
	}
	models := make([]*model.Recommendation, len(recommendations))
	for i, rec := range recommendations {
		if rec.Version == 0 {
			rec.Version = 1
		}
		models[i] = r.mapper.RecommendationToModel(rec, i)
	}
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(&models).Error)
}

func (r *RecommendationRepositoryImpl) Update(ctx context.Context, rec *entity.Recommendation) error {
	m := r.mapper.RecommendationToModel(rec, 0)
	m.Version = rec.Version + 1
	if err := casUpdate(r.db.WithContext(ctx), m, rec.Id, rec.Version, "position"); err != nil {
		return err
	}
	rec.Version = m.Version
	return nil
}

func (r *RecommendationRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.Recommendation, error) {
	var m model.Recommendation
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.RecommendationToEntity(&m), nil
}

func (r *RecommendationRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Recommendation, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *RecommendationRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Recommendation, error) {
	return r.findOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{})
}

func (r *RecommendationRepositoryImpl) FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.Recommendation, error) {
	var models []*model.Recommendation
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByContractID{ContractID: contractId},
		specification.OrderBy{Field: "position"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.Recommendation, len(models))
	for i, m := range models {
		out[i] = r.mapper.RecommendationToEntity(m)
	}
	return out, nil
}

func (r *RecommendationRepositoryImpl) DeleteByContractID(ctx context.Context, contractId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("contract_id = ?", contractId).Delete(&model.Recommendation{}).Error
}

type AppliedRecommendationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContractMapper
}

func NewAppliedRecommendationRepository(db *gorm.DB) contract.AppliedRecommendationRepository {
	return &AppliedRecommendationRepositoryImpl{db: db, mapper: mapper.NewContractMapper()}
}

func (r *AppliedRecommendationRepositoryImpl) Create(ctx context.Context, a *entity.AppliedRecommendation) error {
	return translateError(r.db.WithContext(ctx).Create(r.mapper.AppliedToModel(a)).Error)
}

func (r *AppliedRecommendationRepositoryImpl) FindByContractID(ctx context.Context, contractId uuid.UUID) ([]*entity.AppliedRecommendation, error) {
	var models []*model.AppliedRecommendation
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByContractID{ContractID: contractId},
		specification.OrderBy{Field: "applied_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.AppliedRecommendation, len(models))
	for i, m := range models {
		out[i] = r.mapper.AppliedToEntity(m)
	}
	return out, nil
}

func (r *AppliedRecommendationRepositoryImpl) FindByRecommendationID(ctx context.Context, recommendationId uuid.UUID) (*entity.AppliedRecommendation, error) {
	var m model.AppliedRecommendation
	query := applySpecifications(r.db.WithContext(ctx), specification.Filter("recommendation_id", recommendationId))
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.AppliedToEntity(&m), nil
}
