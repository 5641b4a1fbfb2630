package service

import (
	"context"
	"errors"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"
	"contract-review-be/pkg/redline"

	"github.com/google/uuid"
)

type IRecommendationService interface {
	Apply(ctx context.Context, actor entity.Actor, recommendationId uuid.UUID, mode entity.ModificationType, highlightColor string) (*entity.AppliedRecommendation, error)
	Reject(ctx context.Context, actor entity.Actor, recommendationId uuid.UUID) error
}

type recommendationService struct {
	uowFactory   unitofwork.RepositoryFactory
	locker       lock.Locker
	clock        clock.Clock
	audit        IAuditService
	logger       logger.ILogger
	applyTimeout time.Duration
}

func NewRecommendationService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	audit IAuditService,
	log logger.ILogger,
	applyTimeout time.Duration,
) IRecommendationService {
	return &recommendationService{
		uowFactory:   uowFactory,
		locker:       locker,
		clock:        clk,
		audit:        audit,
		logger:       log,
		applyTimeout: applyTimeout,
	}
}

// lockContractOf resolves the recommendation's contract and takes its lock.
// Accepting, rejecting and re-analysis all serialize on the contract.
func (s *recommendationService) lockContractOf(ctx context.Context, recommendationId uuid.UUID) (uuid.UUID, func(), error) {
	rec, err := s.uowFactory.NewUnitOfWork(ctx).RecommendationRepository().FindByID(ctx, recommendationId)
	if err != nil {
		return uuid.Nil, nil, err
	}
	if rec == nil {
		return uuid.Nil, nil, ErrRecommendationNotFound
	}
	unlock, err := s.locker.Lock(ctx, lock.EntityKey(rec.ContractId))
	if err != nil {
		return uuid.Nil, nil, err
	}
	return rec.ContractId, unlock, nil
}

// loadPending re-reads the recommendation and its contract inside the
// transaction and checks every precondition shared by apply and reject.
func loadPending(ctx context.Context, uow unitofwork.UnitOfWork, actor entity.Actor, recommendationId, contractId uuid.UUID) (*entity.Recommendation, *entity.Contract, error) {
	rec, err := uow.RecommendationRepository().FindByIDForUpdate(ctx, recommendationId)
	if err != nil {
		return nil, nil, err
	}
	// Gone means a re-analysis discarded it after we resolved the contract.
	if rec == nil || rec.ContractId != contractId {
		return nil, nil, ErrRecommendationNotFound
	}

	contract, err := uow.ContractRepository().FindByIDForUpdate(ctx, contractId)
	if err != nil {
		return nil, nil, err
	}
	if contract == nil {
		return nil, nil, ErrContractNotFound
	}
	if err := authorizeOwner(actor, contract.OwnerId); err != nil {
		return nil, nil, err
	}
	if rec.Status != entity.RecommendationStatusPending {
		return nil, nil, ErrAlreadyProcessed
	}
	if contract.AnalysisStatus == entity.AnalysisStatusAnalyzing {
		return nil, nil, ErrContractBusy
	}
	return rec, contract, nil
}

func (s *recommendationService) Apply(ctx context.Context, actor entity.Actor, recommendationId uuid.UUID, mode entity.ModificationType, highlightColor string) (*entity.AppliedRecommendation, error) {
	color, err := redline.NormalizeColor(mode, highlightColor)
	if err != nil {
		return nil, apperror.Wrap(ErrInvalidModification, "%v", err)
	}

	if s.applyTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.applyTimeout)
		defer cancel()
	}

	contractId, unlock, err := s.lockContractOf(ctx, recommendationId)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperror.Wrap(ErrApplyTimeout, "%v", err)
		}
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	rec, contract, err := loadPending(ctx, uow, actor, recommendationId, contractId)
	if err != nil {
		return nil, err
	}

	content, placement, err := redline.Apply(contract.Content, redline.Revision{
		RecommendationId: rec.Id,
		OriginalText:     rec.OriginalText,
		SuggestedText:    rec.SuggestedText,
		SectionRef:       rec.SectionRef,
		Mode:             mode,
		HighlightColor:   color,
	})
	if err != nil {
		if errors.Is(err, redline.ErrEmptyRevision) {
			return nil, apperror.Wrap(ErrInvalidModification, "%v", err)
		}
		return nil, err
	}

	now := s.clock.Now()
	decidedBy := actor.Id
	rec.Status = entity.RecommendationStatusAccepted
	rec.DecidedAt = &now
	rec.DecidedBy = &decidedBy
	if err := uow.RecommendationRepository().Update(ctx, rec); err != nil {
		return nil, err
	}

	contract.Content = content
	contract.UpdatedAt = now
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return nil, err
	}

	applied := &entity.AppliedRecommendation{
		Id:               uuid.New(),
		RecommendationId: rec.Id,
		ContractId:       contractId,
		AppliedAt:        now,
		ModificationType: mode,
		HighlightColor:   color,
		SuggestedText:    rec.SuggestedText,
		SectionRef:       rec.SectionRef,
		AppliedBy:        actor.Id,
	}
	if err := uow.AppliedRecommendationRepository().Create(ctx, applied); err != nil {
		if errors.Is(err, apperror.ErrDuplicate) {
			return nil, ErrAlreadyProcessed
		}
		return nil, err
	}

	details := map[entity.DetailKey]string{
		entity.DetailRecommendationId: rec.Id.String(),
		entity.DetailAppliedId:        applied.Id.String(),
		entity.DetailModificationType: string(mode),
	}
	if color != "" {
		details[entity.DetailHighlightColor] = color
	}
	if _, err := s.audit.Record(ctx, uow, contractId, actor, AuditEntry{
		Action:  entity.AuditRecommendationAccepted,
		Details: details,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("RECOMMENDATION", "Recommendation applied", map[string]interface{}{
		"recommendation_id": rec.Id.String(),
		"contract_id":       contractId.String(),
		"mode":              string(mode),
		"placement":         string(placement),
	})
	return applied, nil
}

func (s *recommendationService) Reject(ctx context.Context, actor entity.Actor, recommendationId uuid.UUID) error {
	contractId, unlock, err := s.lockContractOf(ctx, recommendationId)
	if err != nil {
		return err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	rec, _, err := loadPending(ctx, uow, actor, recommendationId, contractId)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	decidedBy := actor.Id
	rec.Status = entity.RecommendationStatusIgnored
	rec.DecidedAt = &now
	rec.DecidedBy = &decidedBy
	if err := uow.RecommendationRepository().Update(ctx, rec); err != nil {
		return err
	}

	if _, err := s.audit.Record(ctx, uow, contractId, actor, AuditEntry{
		Action:  entity.AuditRecommendationIgnored,
		Details: map[entity.DetailKey]string{entity.DetailRecommendationId: rec.Id.String()},
	}); err != nil {
		return err
	}

	return uow.Commit()
}
