package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

type contractRepository struct {
	u *UnitOfWork
}

func (r *contractRepository) Create(ctx context.Context, c *entity.Contract) (err error) {
	r.u.run(func() {
		if r.u.s.contracts.rows[c.Id] != nil {
			err = apperror.Wrap(apperror.ErrDuplicate, "contract %s", c.Id)
			return
		}
		if c.Version == 0 {
			c.Version = 1
		}
		put(r.u.s, r.u.s.contracts, c.Id, c)
	})
	return err
}

func (r *contractRepository) Update(ctx context.Context, c *entity.Contract) (err error) {
	r.u.run(func() {
		stored := r.u.s.contracts.rows[c.Id]
		if stored == nil || stored.Version != c.Version {
			err = fmt.Errorf("contract %s version %d: %w", c.Id, c.Version, apperror.ErrStaleWrite)
			return
		}
		c.Version++
		put(r.u.s, r.u.s.contracts, c.Id, c)
	})
	return err
}

func (r *contractRepository) FindByID(ctx context.Context, id uuid.UUID) (c *entity.Contract, err error) {
	r.u.run(func() { c = r.u.s.contracts.get(id) })
	return c, nil
}

func (r *contractRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Contract, error) {
	return r.FindByID(ctx, id)
}

func (r *contractRepository) FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) (out []*entity.Contract, err error) {
	r.u.run(func() {
		out = r.u.s.contracts.list(func(c *entity.Contract) bool { return c.OwnerId == ownerId })
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *contractRepository) FindStaleAnalyzing(ctx context.Context, startedBefore time.Time) (out []*entity.Contract, err error) {
	r.u.run(func() {
		out = r.u.s.contracts.list(func(c *entity.Contract) bool {
			return c.AnalysisStatus == entity.AnalysisStatusAnalyzing &&
				c.AnalysisStartedAt != nil && c.AnalysisStartedAt.Before(startedBefore)
		})
	})
	return out, nil
}

type riskAssessmentRepository struct {
	u *UnitOfWork
}

func (r *riskAssessmentRepository) CreateBulk(ctx context.Context, assessments []*entity.RiskAssessment) (err error) {
	r.u.run(func() {
		for _, a := range assessments {
			if r.u.s.assessments.rows[a.Id] != nil {
				err = apperror.Wrap(apperror.ErrDuplicate, "risk assessment %s", a.Id)
				return
			}
			put(r.u.s, r.u.s.assessments, a.Id, a)
		}
	})
	return err
}

func (r *riskAssessmentRepository) DeleteByContractID(ctx context.Context, contractId uuid.UUID) error {
	r.u.run(func() {
		for _, a := range r.u.s.assessments.list(func(a *entity.RiskAssessment) bool { return a.ContractId == contractId }) {
			remove(r.u.s, r.u.s.assessments, a.Id)
		}
	})
	return nil
}

func (r *riskAssessmentRepository) FindByContractID(ctx context.Context, contractId uuid.UUID) (out []*entity.RiskAssessment, err error) {
	r.u.run(func() {
		out = r.u.s.assessments.list(func(a *entity.RiskAssessment) bool { return a.ContractId == contractId })
	})
	return out, nil
}

type recommendationRepository struct {
	u *UnitOfWork
}

func (r *recommendationRepository) CreateBulk(ctx context.Context, recommendations []*entity.Recommendation) (err error) {
	r.u.run(func() {
		for _, rec := range recommendations {
			if r.u.s.recommendations.rows[rec.Id] != nil {
				err = apperror.Wrap(apperror.ErrDuplicate, "recommendation %s", rec.Id)
				return
			}
			if rec.Version == 0 {
				rec.Version = 1
			}
			put(r.u.s, r.u.s.recommendations, rec.Id, rec)
		}
	})
	return err
}

func (r *recommendationRepository) Update(ctx context.Context, rec *entity.Recommendation) (err error) {
	r.u.run(func() {
		stored := r.u.s.recommendations.rows[rec.Id]
		if stored == nil || stored.Version != rec.Version {
			err = fmt.Errorf("recommendation %s version %d: %w", rec.Id, rec.Version, apperror.ErrStaleWrite)
			return
		}
		rec.Version++
		put(r.u.s, r.u.s.recommendations, rec.Id, rec)
	})
	return err
}

func (r *recommendationRepository) FindByID(ctx context.Context, id uuid.UUID) (rec *entity.Recommendation, err error) {
	r.u.run(func() { rec = r.u.s.recommendations.get(id) })
	return rec, nil
}

func (r *recommendationRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Recommendation, error) {
	return r.FindByID(ctx, id)
}

func (r *recommendationRepository) FindByContractID(ctx context.Context, contractId uuid.UUID) (out []*entity.Recommendation, err error) {
	r.u.run(func() {
		out = r.u.s.recommendations.list(func(rec *entity.Recommendation) bool { return rec.ContractId == contractId })
	})
	return out, nil
}

func (r *recommendationRepository) DeleteByContractID(ctx context.Context, contractId uuid.UUID) error {
	r.u.run(func() {
		for _, rec := range r.u.s.recommendations.list(func(rec *entity.Recommendation) bool { return rec.ContractId == contractId }) {
			remove(r.u.s, r.u.s.recommendations, rec.Id)
		}
	})
	return nil
}

type appliedRecommendationRepository struct {
	u *UnitOfWork
}

func (r *appliedRecommendationRepository) Create(ctx context.Context, a *entity.AppliedRecommendation) (err error) {
	r.u.run(func() {
		taken := r.u.s.applied.list(func(x *entity.AppliedRecommendation) bool { return x.RecommendationId == a.RecommendationId })
		if len(taken) > 0 || r.u.s.applied.rows[a.Id] != nil {
			err = apperror.Wrap(apperror.ErrDuplicate, "applied recommendation for %s", a.RecommendationId)
			return
		}
		put(r.u.s, r.u.s.applied, a.Id, a)
	})
	return err
}

func (r *appliedRecommendationRepository) FindByContractID(ctx context.Context, contractId uuid.UUID) (out []*entity.AppliedRecommendation, err error) {
	r.u.run(func() {
		out = r.u.s.applied.list(func(a *entity.AppliedRecommendation) bool { return a.ContractId == contractId })
	})
	return out, nil
}

func (r *appliedRecommendationRepository) FindByRecommendationID(ctx context.Context, recommendationId uuid.UUID) (a *entity.AppliedRecommendation, err error) {
	r.u.run(func() {
		found := r.u.s.applied.list(func(x *entity.AppliedRecommendation) bool { return x.RecommendationId == recommendationId })
		if len(found) > 0 {
			a = found[0]
		}
	})
	return a, nil
}
