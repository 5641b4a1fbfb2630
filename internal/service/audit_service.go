package service

import (
	"context"
	"fmt"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/pkg/logger"
	"contract-review-be/internal/repository/unitofwork"
	"contract-review-be/pkg/auditchain"
	"contract-review-be/pkg/clock"
	"contract-review-be/pkg/lock"

	"github.com/google/uuid"
)

// AuditEntry is what a caller contributes to an audit event; sequence,
// timestamp and hashes are assigned by the log.
type AuditEntry struct {
	Action  entity.AuditAction
	Details map[entity.DetailKey]string
}

type IAuditService interface {
	// Record appends inside the caller's transaction. The caller must hold
	// the subject's entity lock.
	Record(ctx context.Context, uow unitofwork.UnitOfWork, subjectId uuid.UUID, actor entity.Actor, entry AuditEntry) (int64, error)
	// Append takes the subject lock and commits on its own.
	Append(ctx context.Context, subjectId uuid.UUID, actor entity.Actor, entry AuditEntry) (int64, error)
	// Read returns the full verified sequence, oldest first.
	Read(ctx context.Context, subjectId uuid.UUID) ([]entity.AuditEvent, error)
}

type auditService struct {
	uowFactory unitofwork.RepositoryFactory
	locker     lock.Locker
	clock      clock.Clock
	logger     logger.ILogger
}

func NewAuditService(
	uowFactory unitofwork.RepositoryFactory,
	locker lock.Locker,
	clk clock.Clock,
	log logger.ILogger,
) IAuditService {
	return &auditService{
		uowFactory: uowFactory,
		locker:     locker,
		clock:      clk,
		logger:     log,
	}
}

func validateEntry(entry AuditEntry) error {
	if !entry.Action.Known() {
		return apperror.Wrap(ErrUnknownAuditAction, "%q", entry.Action)
	}
	for k := range entry.Details {
		if !entry.Action.AllowsDetail(k) {
			return apperror.Wrap(ErrUnrecognizedDetailKey, "%q on %s", k, entry.Action)
		}
	}
	return nil
}

func (s *auditService) Record(ctx context.Context, uow unitofwork.UnitOfWork, subjectId uuid.UUID, actor entity.Actor, entry AuditEntry) (int64, error) {
	if err := validateEntry(entry); err != nil {
		return 0, err
	}

	repo := uow.AuditEventRepository()
	last, err := repo.FindLastBySubject(ctx, subjectId)
	if err != nil {
		return 0, err
	}

	ts := s.clock.Now().UTC().Truncate(auditchain.Precision)
	seq := int64(1)
	if last != nil {
		seq = last.Sequence + 1
		// Wall clocks can step back; the log never does.
		if ts.Before(last.Timestamp) {
			ts = last.Timestamp
		}
	}

	event := &entity.AuditEvent{
		Id:        uuid.New(),
		SubjectId: subjectId,
		Sequence:  seq,
		Timestamp: ts,
		Action:    entry.Action,
		ActorKind: actor.Kind,
		Origin:    actor.Origin,
		Details:   make(map[entity.DetailKey]string, len(entry.Details)),
	}
	if actor.Kind != entity.ActorSystem && actor.Id != uuid.Nil {
		id := actor.Id
		event.ActorId = &id
	}
	for k, v := range entry.Details {
		event.Details[k] = v
	}

	if err := auditchain.Seal(event, last); err != nil {
		return 0, err
	}
	if err := repo.Append(ctx, event); err != nil {
		return 0, fmt.Errorf("append audit %s #%d: %w", subjectId, seq, err)
	}
	return seq, nil
}

func (s *auditService) Append(ctx context.Context, subjectId uuid.UUID, actor entity.Actor, entry AuditEntry) (int64, error) {
	if err := validateEntry(entry); err != nil {
		return 0, err
	}

	unlock, err := s.locker.Lock(ctx, lock.EntityKey(subjectId))
	if err != nil {
		return 0, err
	}
	defer unlock()

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	seq, err := s.Record(ctx, uow, subjectId, actor, entry)
	if err != nil {
		return 0, err
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return seq, nil
}

func (s *auditService) Read(ctx context.Context, subjectId uuid.UUID) ([]entity.AuditEvent, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.AuditEventRepository().FindBySubject(ctx, subjectId)
	if err != nil {
		return nil, err
	}

	events := make([]entity.AuditEvent, len(rows))
	for i, e := range rows {
		events[i] = *e
	}

	if err := auditchain.Verify(events); err != nil {
		s.logger.Error("AUDIT", "Audit trail failed verification", map[string]interface{}{
			"subject_id": subjectId.String(),
			"events":     len(events),
			"error":      err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrAuditIntegrity, err)
	}
	return events, nil
}
