// Package memory is an in-process storage backend with the same
// transactional contract as the Postgres one, for tests and single-node
// development. A transaction holds the store lock from Begin until Commit or
// Rollback, so transactions never overlap; rollback replays an undo journal.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/repository/contract"
	"contract-review-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type table[T any] struct {
	rows  map[uuid.UUID]*T
	seq   map[uuid.UUID]int64
	clone func(*T) *T
}

func newTable[T any](clone func(*T) *T) *table[T] {
	return &table[T]{
		rows:  make(map[uuid.UUID]*T),
		seq:   make(map[uuid.UUID]int64),
		clone: clone,
	}
}

func (t *table[T]) get(id uuid.UUID) *T {
	row, ok := t.rows[id]
	if !ok {
		return nil
	}
	return t.clone(row)
}

// list returns clones of the rows accepted by keep, in insertion order.
func (t *table[T]) list(keep func(*T) bool) []*T {
	ids := make([]uuid.UUID, 0, len(t.rows))
	for id, row := range t.rows {
		if keep == nil || keep(row) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return t.seq[ids[i]] < t.seq[ids[j]] })

	out := make([]*T, len(ids))
	for i, id := range ids {
		out[i] = t.clone(t.rows[id])
	}
	return out
}

type Store struct {
	mu      sync.Mutex
	inTx    bool
	journal []func()
	nextSeq int64

	contracts       *table[entity.Contract]
	assessments     *table[entity.RiskAssessment]
	recommendations *table[entity.Recommendation]
	applied         *table[entity.AppliedRecommendation]
	documents       *table[entity.SignatureDocument]
	templates       *table[entity.SignatureTemplate]
	sessions        *table[entity.SigningSession]
	audit           *table[entity.AuditEvent]
}

func NewStore() *Store {
	return &Store{
		contracts:       newTable((*entity.Contract).Clone),
		assessments:     newTable(func(a *entity.RiskAssessment) *entity.RiskAssessment { cp := *a; return &cp }),
		recommendations: newTable((*entity.Recommendation).Clone),
		applied:         newTable(func(a *entity.AppliedRecommendation) *entity.AppliedRecommendation { cp := *a; return &cp }),
		documents:       newTable((*entity.SignatureDocument).Clone),
		templates:       newTable((*entity.SignatureTemplate).Clone),
		sessions:        newTable((*entity.SigningSession).Clone),
		audit:           newTable(cloneAuditEvent),
	}
}

func cloneAuditEvent(e *entity.AuditEvent) *entity.AuditEvent {
	cp := *e
	if e.ActorId != nil {
		id := *e.ActorId
		cp.ActorId = &id
	}
	cp.Details = make(map[entity.DetailKey]string, len(e.Details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	return &cp
}

// put stores a clone of v under id and journals the previous row.
func put[T any](s *Store, t *table[T], id uuid.UUID, v *T) {
	prev, existed := t.rows[id]
	prevSeq := t.seq[id]
	if !existed {
		s.nextSeq++
		t.seq[id] = s.nextSeq
	}
	t.rows[id] = t.clone(v)

	if s.inTx {
		s.journal = append(s.journal, func() {
			if existed {
				t.rows[id] = prev
				t.seq[id] = prevSeq
				return
			}
			delete(t.rows, id)
			delete(t.seq, id)
		})
	}
}

func remove[T any](s *Store, t *table[T], id uuid.UUID) {
	prev, existed := t.rows[id]
	if !existed {
		return
	}
	prevSeq := t.seq[id]
	delete(t.rows, id)
	delete(t.seq, id)

	if s.inTx {
		s.journal = append(s.journal, func() {
			t.rows[id] = prev
			t.seq[id] = prevSeq
		})
	}
}

// UnitOfWork is the memory-backed unitofwork.UnitOfWork.
type UnitOfWork struct {
	s      *Store
	active bool
}

var _ unitofwork.UnitOfWork = &UnitOfWork{}

func (u *UnitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	u.s.mu.Lock()
	u.s.inTx = true
	u.s.journal = nil
	u.active = true
	return nil
}

// BeginSnapshot holds the store lock like Begin, so no writer can commit
// between the reads.
func (u *UnitOfWork) BeginSnapshot(ctx context.Context) error {
	return u.Begin(ctx)
}

func (u *UnitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}
	u.finish()
	return nil
}

func (u *UnitOfWork) Rollback() error {
	if !u.active {
		return fmt.Errorf("no transaction to rollback")
	}
	for i := len(u.s.journal) - 1; i >= 0; i-- {
		u.s.journal[i]()
	}
	u.finish()
	return nil
}

func (u *UnitOfWork) finish() {
	u.s.journal = nil
	u.s.inTx = false
	u.active = false
	u.s.mu.Unlock()
}

// run executes fn under the store lock unless this unit's transaction
// already holds it.
func (u *UnitOfWork) run(fn func()) {
	if !u.active {
		u.s.mu.Lock()
		defer u.s.mu.Unlock()
	}
	fn()
}

func (u *UnitOfWork) ContractRepository() contract.ContractRepository {
	return &contractRepository{u: u}
}

func (u *UnitOfWork) RiskAssessmentRepository() contract.RiskAssessmentRepository {
	return &riskAssessmentRepository{u: u}
}

func (u *UnitOfWork) RecommendationRepository() contract.RecommendationRepository {
	return &recommendationRepository{u: u}
}

func (u *UnitOfWork) AppliedRecommendationRepository() contract.AppliedRecommendationRepository {
	return &appliedRecommendationRepository{u: u}
}

func (u *UnitOfWork) SignatureDocumentRepository() contract.SignatureDocumentRepository {
	return &signatureDocumentRepository{u: u}
}

func (u *UnitOfWork) SignatureTemplateRepository() contract.SignatureTemplateRepository {
	return &signatureTemplateRepository{u: u}
}

func (u *UnitOfWork) SigningSessionRepository() contract.SigningSessionRepository {
	return &signingSessionRepository{u: u}
}

func (u *UnitOfWork) AuditEventRepository() contract.AuditEventRepository {
	return &auditEventRepository{u: u}
}

type RepositoryFactory struct {
	s *Store
}

func NewRepositoryFactory(s *Store) unitofwork.RepositoryFactory {
	return &RepositoryFactory{s: s}
}

func (f *RepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &UnitOfWork{s: f.s}
}

func page[T any](rows []*T, limit, offset int) []*T {
	if offset >= len(rows) {
		return []*T{}
	}
	rows = rows[offset:]
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}
