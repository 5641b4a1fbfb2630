package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/analysis"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// finalizeTimeout bounds the write that settles a run. It runs detached
// from the caller so a cancelled request still leaves a final status.
const finalizeTimeout = 30 * time.Second

type AnalysisOutcome struct {
	RiskAssessments []*entity.RiskAssessment
	Recommendations []*entity.Recommendation
	Summary         string
	KeyTopics       []string
}

type IAnalysisService interface {
	Analyze(ctx context.Context, actor entity.Actor, contractId uuid.UUID) (*AnalysisOutcome, error)
	RecoverStale(ctx context.Context) (int, error)
}

type AnalysisOptions struct {
	Timeout    time.Duration
	StaleAfter time.Duration
}

type analysisService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	clock      clock.Clock
	audit      IAuditService
	analyzer   analysis.Analyzer
	logger     logger.ILogger
	opts       AnalysisOptions
}

func NewAnalysisService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	audit IAuditService,
	analyzer analysis.Analyzer,
	log logger.ILogger,
	opts AnalysisOptions,
) IAnalysisService {
	return &analysisService{
		uowFactory: uowFactory,
		locker:     locker,
		clock:      clk,
		audit:      audit,
		analyzer:   analyzer,
		logger:     log,
		opts:       opts,
	}
}

func (s *analysisService) Analyze(ctx context.Context, actor entity.Actor, contractId uuid.UUID) (*AnalysisOutcome, error) {
	ctx, span := otel.Tracer("analysis").Start(ctx, "AnalysisService.Analyze")
	defer span.End()
	span.SetAttributes(attribute.String("contract.id", contractId.String()))

	contract, runId, err := s.start(ctx, actor, contractId)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "analysis not started")
		return nil, err
	}
	span.SetAttributes(attribute.String("analysis.run_id", runId.String()))

	callCtx := ctx
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	result, analyzeErr := s.analyzer.Analyze(callCtx, analysis.Request{
		ContractId: contract.Id,
		Title:      contract.Title,
		Content:    contract.Content,
		Language:   contract.Language,
	})

	finalCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer cancel()

	if analyzeErr != nil {
		span.RecordError(analyzeErr)
		span.SetStatus(codes.Error, "analyzer failed")
		return nil, s.fail(finalCtx, actor, contractId, runId, analyzeErr)
	}

	outcome, err := s.complete(finalCtx, actor, contractId, runId, result)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "finalize failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int("analysis.assessments", len(outcome.RiskAssessments)))
	return outcome, nil
}

// start moves the contract to analyzing in its own committed transaction so
// the analyzer call happens outside any lock.
func (s *analysisService) start(ctx context.Context, actor entity.Actor, contractId uuid.UUID) (*entity.Contract, uuid.UUID, error) {
	unlock, err := s.locker.Lock(ctx, lock.EntityKey(contractId))
	if err != nil {
		return nil, uuid.Nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, uuid.Nil, err
	}
	defer uow.Rollback()

	contract, err := uow.ContractRepository().FindByIDForUpdate(ctx, contractId)
	if err != nil {
		return nil, uuid.Nil, err
	}
	if contract == nil {
		return nil, uuid.Nil, ErrContractNotFound
	}
	if err := authorizeOwner(actor, contract.OwnerId); err != nil {
		return nil, uuid.Nil, err
	}
	if isBlank(contract.Content) {
		return nil, uuid.Nil, ErrEmptyContent
	}
	if contract.AnalysisStatus == entity.AnalysisStatusAnalyzing {
		return nil, uuid.Nil, ErrAnalysisInProgress
	}
	if contract.AnalysisStatus == entity.AnalysisStatusError && !contract.AnalysisRetryable {
		return nil, uuid.Nil, ErrAnalysisNotRetryable
	}
	if !contract.AnalysisStatus.CanTransitionTo(entity.AnalysisStatusAnalyzing) {
		return nil, uuid.Nil, apperror.Wrap(ErrAnalysisInProgress, "status %s", contract.AnalysisStatus)
	}

	now := s.clock.Now()
	runId := uuid.New()
	contract.AnalysisStatus = entity.AnalysisStatusAnalyzing
	contract.AnalysisRunId = &runId
	contract.AnalysisStartedAt = &now
	contract.AnalysisError = ""
	contract.UpdatedAt = now
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return nil, uuid.Nil, err
	}

	if _, err := s.audit.Record(ctx, uow, contractId, actor, AuditEntry{
		Action:  entity.AuditContractAnalysisStarted,
		Details: map[entity.DetailKey]string{entity.DetailRunId: runId.String()},
	}); err != nil {
		return nil, uuid.Nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, uuid.Nil, err
	}
	return contract, runId, nil
}

// current re-reads the contract under lock and checks the run still owns it.
func current(ctx context.Context, uow unitofwork.UnitOfWork, contractId, runId uuid.UUID) (*entity.Contract, error) {
	contract, err := uow.ContractRepository().FindByIDForUpdate(ctx, contractId)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if contract.AnalysisStatus != entity.AnalysisStatusAnalyzing ||
		contract.AnalysisRunId == nil || *contract.AnalysisRunId != runId {
		return nil, ErrAnalysisSuperseded
	}
	return contract, nil
}

func (s *analysisService) complete(ctx context.Context, actor entity.Actor, contractId, runId uuid.UUID, result *analysis.Result) (*AnalysisOutcome, error) {
	unlock, err := s.locker.Lock(ctx, lock.EntityKey(contractId))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	contract, err := current(ctx, uow, contractId, runId)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	outcome := &AnalysisOutcome{
		Summary:   result.Summary,
		KeyTopics: append([]string(nil), result.KeyTopics...),
	}
	for _, f := range result.Findings {
		assessment := &entity.RiskAssessment{
			Id:                 uuid.New(),
			ContractId:         contractId,
			RunId:              runId,
			Category:           f.Category,
			Description:        f.Description,
			RecommendationText: f.Recommendation,
			Location:           f.Location,
			OriginalText:       f.OriginalText,
			CreatedAt:          now,
		}
		outcome.RiskAssessments = append(outcome.RiskAssessments, assessment)

		for _, sug := range f.Suggestions {
			outcome.Recommendations = append(outcome.Recommendations, &entity.Recommendation{
				Id:               uuid.New(),
				ContractId:       contractId,
				RiskAssessmentId: assessment.Id,
				SuggestedText:    sug.SuggestedText,
				SectionRef:       sug.SectionRef,
				ParagraphRef:     sug.ParagraphRef,
				OriginalText:     f.OriginalText,
				Status:           entity.RecommendationStatusPending,
				CreatedAt:        now,
			})
		}
	}

	// Recommendations reference assessments, so they go first.
	if err := uow.RecommendationRepository().DeleteByContractID(ctx, contractId); err != nil {
		return nil, err
	}
	if err := uow.RiskAssessmentRepository().DeleteByContractID(ctx, contractId); err != nil {
		return nil, err
	}
	if err := uow.RiskAssessmentRepository().CreateBulk(ctx, outcome.RiskAssessments); err != nil {
		return nil, err
	}
	if err := uow.RecommendationRepository().CreateBulk(ctx, outcome.Recommendations); err != nil {
		return nil, err
	}

	contract.AnalysisStatus = entity.AnalysisStatusCompleted
	contract.AnalyzedAt = &now
	contract.AnalyzedRunId = &runId
	contract.Summary = outcome.Summary
	contract.KeyTopics = outcome.KeyTopics
	contract.AnalysisError = ""
	contract.AnalysisRetryable = false
	contract.UpdatedAt = now
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, uow, contractId, actor, AuditEntry{
		Action: entity.AuditContractAnalysisCompleted,
		Details: map[entity.DetailKey]string{
			entity.DetailRunId:               runId.String(),
			entity.DetailAssessmentCount:     strconv.Itoa(len(outcome.RiskAssessments)),
			entity.DetailRecommendationCount: strconv.Itoa(len(outcome.Recommendations)),
		},
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("ANALYSIS", "Analysis completed", map[string]interface{}{
		"contract_id":     contractId.String(),
		"run_id":          runId.String(),
		"assessments":     len(outcome.RiskAssessments),
		"recommendations": len(outcome.Recommendations),
	})
	return outcome, nil
}

// fail records the analyzer error on the contract and returns it classified.
// Content and the previous assessment set are left alone.
func (s *analysisService) fail(ctx context.Context, actor entity.Actor, contractId, runId uuid.UUID, cause error) error {
	classified := apperror.Wrap(ErrAnalysisUnavailable, "%v", cause)
	retryable := true
	if errors.Is(cause, analysis.ErrInvalidInput) {
		classified = apperror.Wrap(ErrAnalysisInvalidInput, "%v", cause)
		retryable = false
	}

	unlock, err := s.locker.Lock(ctx, lock.EntityKey(contractId))
	if err != nil {
		return err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	contract, err := current(ctx, uow, contractId, runId)
	if err != nil {
		return err
	}

	now := s.clock.Now()
	contract.AnalysisStatus = entity.AnalysisStatusError
	contract.AnalysisError = cause.Error()
	contract.AnalysisRetryable = retryable
	contract.UpdatedAt = now
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return err
	}

	if _, err := s.audit.Record(ctx, uow, contractId, actor, AuditEntry{
		Action: entity.AuditContractAnalysisFailed,
		Details: map[entity.DetailKey]string{
			entity.DetailRunId:     runId.String(),
			entity.DetailError:     cause.Error(),
			entity.DetailRetryable: strconv.FormatBool(retryable),
		},
	}); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	s.logger.Warn("ANALYSIS", "Analysis failed", map[string]interface{}{
		"contract_id": contractId.String(),
		"run_id":      runId.String(),
		"retryable":   retryable,
		"error":       cause.Error(),
	})
	return classified
}

// RecoverStale resets runs that have been analyzing longer than StaleAfter,
// e.g. after a crash between start and finalize.
func (s *analysisService) RecoverStale(ctx context.Context) (int, error) {
	if s.opts.StaleAfter <= 0 {
		return 0, nil
	}
	cutoff := s.clock.Now().Add(-s.opts.StaleAfter)

	stale, err := s.uowFactory.NewUnitOfWork(ctx).ContractRepository().FindStaleAnalyzing(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, c := range stale {
		if c.AnalysisRunId == nil {
			continue
		}
		ok, err := s.recover(ctx, c.Id, *c.AnalysisRunId, cutoff)
		if err != nil {
			s.logger.Error("ANALYSIS", "Failed to recover stale analysis", map[string]interface{}{
				"contract_id": c.Id.String(),
				"error":       err.Error(),
			})
			continue
		}
		if ok {
			recovered++
		}
	}
	return recovered, nil
}

func (s *analysisService) recover(ctx context.Context, contractId, runId uuid.UUID, cutoff time.Time) (bool, error) {
	unlock, err := s.locker.Lock(ctx, lock.EntityKey(contractId))
	if err != nil {
		return false, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return false, err
	}
	defer uow.Rollback()

	contract, err := current(ctx, uow, contractId, runId)
	if errors.Is(err, ErrAnalysisSuperseded) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if contract.AnalysisStartedAt == nil || !contract.AnalysisStartedAt.Before(cutoff) {
		return false, nil
	}

	contract.AnalysisStatus = entity.AnalysisStatusError
	contract.AnalysisError = "analysis did not finish in time"
	contract.AnalysisRetryable = true
	contract.UpdatedAt = s.clock.Now()
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return false, err
	}

	if _, err := s.audit.Record(ctx, uow, contractId, entity.SystemActor(), AuditEntry{
		Action: entity.AuditContractAnalysisRecovered,
		Details: map[entity.DetailKey]string{
			entity.DetailRunId:  runId.String(),
			entity.DetailReason: "stale",
		},
	}); err != nil {
		return false, err
	}

	if err := uow.Commit(); err != nil {
		return false, err
	}
	return true, nil
}
