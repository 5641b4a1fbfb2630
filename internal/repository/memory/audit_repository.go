package memory

import (
	"context"
	"sort"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"

	"github.com/google/uuid"
)

type auditEventRepository struct {
	u *UnitOfWork
}

func (r *auditEventRepository) Append(ctx context.Context, e *entity.AuditEvent) (err error) {
	r.u.run(func() {
		clash := r.u.s.audit.list(func(x *entity.AuditEvent) bool {
			return x.SubjectId == e.SubjectId && x.Sequence == e.Sequence
		})
		if len(clash) > 0 {
			err = apperror.Wrap(apperror.ErrDuplicate, "audit subject %s sequence %d", e.SubjectId, e.Sequence)
			return
		}
		put(r.u.s, r.u.s.audit, e.Id, e)
	})
	return err
}

func (r *auditEventRepository) FindLastBySubject(ctx context.Context, subjectId uuid.UUID) (*entity.AuditEvent, error) {
	events, err := r.FindBySubject(ctx, subjectId)
	if err != nil || len(events) == 0 {
		return nil, err
	}
	return events[len(events)-1], nil
}

func (r *auditEventRepository) FindBySubject(ctx context.Context, subjectId uuid.UUID) (out []*entity.AuditEvent, err error) {
	r.u.run(func() {
		out = r.u.s.audit.list(func(x *entity.AuditEvent) bool { return x.SubjectId == subjectId })
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}
