package service

import (
	"context"
	"strconv"
	"strings"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"

	"github.com/google/uuid"
)

// snapshotAttempts bounds re-reads of a detail that fails the consistency
// check.
const snapshotAttempts = 3

type ContractDetail struct {
	Contract        *entity.Contract
	RiskAssessments []*entity.RiskAssessment
	Recommendations []*entity.Recommendation
	Applied         []*entity.AppliedRecommendation
}

type IContractService interface {
	Create(ctx context.Context, actor entity.Actor, req *dto.CreateContractRequest) (*entity.Contract, error)
	Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*ContractDetail, error)
	List(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Contract, error)
	UpdateContent(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdateContractContentRequest) (*entity.Contract, error)
	AuditTrail(ctx context.Context, actor entity.Actor, id uuid.UUID) ([]entity.AuditEvent, error)
}

type contractService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	clock      clock.Clock
	audit      IAuditService
}

func NewContractService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	audit IAuditService,
) IContractService {
	return &contractService{
		uowFactory: uowFactory,
		locker:     locker,
		clock:      clk,
		audit:      audit,
	}
}

func (s *contractService) Create(ctx context.Context, actor entity.Actor, req *dto.CreateContractRequest) (*entity.Contract, error) {
	if isBlank(req.Content) {
		return nil, ErrEmptyContent
	}

	now := s.clock.Now()
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = "en"
	}
	contract := &entity.Contract{
		Id:                uuid.New(),
		OwnerId:           actor.Id,
		Title:             strings.TrimSpace(req.Title),
		Content:           req.Content,
		Language:          language,
		AnalysisStatus:    entity.AnalysisStatusPending,
		AnalysisRetryable: true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ContractRepository().Create(ctx, contract); err != nil {
		return nil, err
	}
	if _, err := s.audit.Record(ctx, uow, contract.Id, actor, AuditEntry{
		Action: entity.AuditContractCreated,
		Details: map[entity.DetailKey]string{
			entity.DetailTitle:         contract.Title,
			entity.DetailContentLength: strconv.Itoa(len(contract.Content)),
		},
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *contractService) Get(ctx context.Context, actor entity.Actor, id uuid.UUID) (*ContractDetail, error) {
	for attempt := 0; attempt < snapshotAttempts; attempt++ {
		d, err := s.read(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if consistent(d) {
			return d, nil
		}
	}
	return nil, ErrContractSnapshot
}

// read loads the contract and its analysis results in one snapshot
// transaction.
func (s *contractService) read(ctx context.Context, actor entity.Actor, id uuid.UUID) (*ContractDetail, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.BeginSnapshot(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	contract, err := uow.ContractRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if err := authorizeOwner(actor, contract.OwnerId); err != nil {
		return nil, err
	}

	assessments, err := uow.RiskAssessmentRepository().FindByContractID(ctx, id)
	if err != nil {
		return nil, err
	}
	recommendations, err := uow.RecommendationRepository().FindByContractID(ctx, id)
	if err != nil {
		return nil, err
	}
	applied, err := uow.AppliedRecommendationRepository().FindByContractID(ctx, id)
	if err != nil {
		return nil, err
	}

	return &ContractDetail{
		Contract:        contract,
		RiskAssessments: assessments,
		Recommendations: recommendations,
		Applied:         applied,
	}, nil
}

// consistent reports whether the assessments all belong to the run the
// contract names as analyzed and every recommendation hangs off one of them.
func consistent(d *ContractDetail) bool {
	ids := make(map[uuid.UUID]bool, len(d.RiskAssessments))
	for _, a := range d.RiskAssessments {
		if d.Contract.AnalyzedRunId == nil || a.RunId != *d.Contract.AnalyzedRunId {
			return false
		}
		ids[a.Id] = true
	}
	for _, r := range d.Recommendations {
		if !ids[r.RiskAssessmentId] {
			return false
		}
	}
	return true
}

func (s *contractService) List(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.Contract, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ContractRepository().FindByOwner(ctx, actor.Id, limit, offset)
}

// UpdateContent replaces the text wholesale. New content makes a failed
// analysis retryable again.
func (s *contractService) UpdateContent(ctx context.Context, actor entity.Actor, id uuid.UUID, req *dto.UpdateContractContentRequest) (*entity.Contract, error) {
	if isBlank(req.Content) {
		return nil, ErrEmptyContent
	}

	unlock, err := s.locker.Lock(ctx, lock.EntityKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	contract, err := uow.ContractRepository().FindByIDForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if err := authorizeOwner(actor, contract.OwnerId); err != nil {
		return nil, err
	}
	if contract.AnalysisStatus == entity.AnalysisStatusAnalyzing {
		return nil, ErrContractBusy
	}

	contract.Content = req.Content
	contract.AnalysisRetryable = true
	contract.UpdatedAt = s.clock.Now()
	if err := uow.ContractRepository().Update(ctx, contract); err != nil {
		return nil, err
	}

	if _, err := s.audit.Record(ctx, uow, id, actor, AuditEntry{
		Action:  entity.AuditContractContentUpdated,
		Details: map[entity.DetailKey]string{entity.DetailContentLength: strconv.Itoa(len(req.Content))},
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return contract, nil
}

func (s *contractService) AuditTrail(ctx context.Context, actor entity.Actor, id uuid.UUID) ([]entity.AuditEvent, error) {
	contract, err := s.uowFactory.NewUnitOfWork(ctx).ContractRepository().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, ErrContractNotFound
	}
	if err := authorizeOwner(actor, contract.OwnerId); err != nil {
		return nil, err
	}
	return s.audit.Read(ctx, id)
}
