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

type signatureDocumentRepository struct {
	u *UnitOfWork
}

func (r *signatureDocumentRepository) Create(ctx context.Context, doc *entity.SignatureDocument) (err error) {
	r.u.run(func() {
		if r.u.s.documents.rows[doc.Id] != nil {
			err = apperror.Wrap(apperror.ErrDuplicate, "signature document %s", doc.Id)
			return
		}
		if doc.Version == 0 {
			doc.Version = 1
		}
		put(r.u.s, r.u.s.documents, doc.Id, doc)
	})
	return err
}

func (r *signatureDocumentRepository) Update(ctx context.Context, doc *entity.SignatureDocument) (err error) {
	r.u.run(func() {
		stored := r.u.s.documents.rows[doc.Id]
		if stored == nil || stored.Version != doc.Version {
			err = fmt.Errorf("signature document %s version %d: %w", doc.Id, doc.Version, apperror.ErrStaleWrite)
			return
		}
		doc.Version++
		put(r.u.s, r.u.s.documents, doc.Id, doc)
	})
	return err
}

func (r *signatureDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (doc *entity.SignatureDocument, err error) {
	r.u.run(func() { doc = r.u.s.documents.get(id) })
	return doc, nil
}

func (r *signatureDocumentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.SignatureDocument, error) {
	return r.FindByID(ctx, id)
}

func (r *signatureDocumentRepository) FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) (out []*entity.SignatureDocument, err error) {
	r.u.run(func() {
		out = r.u.s.documents.list(func(d *entity.SignatureDocument) bool { return d.OwnerId == ownerId })
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *signatureDocumentRepository) FindExpiring(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var docs []*entity.SignatureDocument
	r.u.run(func() {
		docs = r.u.s.documents.list(func(d *entity.SignatureDocument) bool {
			return d.Status.IsOpen() && d.ExpiresAt != nil && !d.ExpiresAt.After(now)
		})
	})
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].ExpiresAt.Before(*docs[j].ExpiresAt) })
	docs = page(docs, limit, 0)

	ids := make([]uuid.UUID, len(docs))
	for i, d := range docs {
		ids[i] = d.Id
	}
	return ids, nil
}

type signatureTemplateRepository struct {
	u *UnitOfWork
}

func (r *signatureTemplateRepository) Create(ctx context.Context, t *entity.SignatureTemplate) (err error) {
	r.u.run(func() {
		if r.u.s.templates.rows[t.Id] != nil {
			err = apperror.Wrap(apperror.ErrDuplicate, "signature template %s", t.Id)
			return
		}
		put(r.u.s, r.u.s.templates, t.Id, t)
	})
	return err
}

func (r *signatureTemplateRepository) FindByID(ctx context.Context, id uuid.UUID) (t *entity.SignatureTemplate, err error) {
	r.u.run(func() { t = r.u.s.templates.get(id) })
	return t, nil
}

func (r *signatureTemplateRepository) FindByOwner(ctx context.Context, ownerId uuid.UUID) (out []*entity.SignatureTemplate, err error) {
	r.u.run(func() {
		out = r.u.s.templates.list(func(t *entity.SignatureTemplate) bool { return t.OwnerId == ownerId })
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type signingSessionRepository struct {
	u *UnitOfWork
}

func (r *signingSessionRepository) Create(ctx context.Context, s *entity.SigningSession) (err error) {
	r.u.run(func() {
		taken := r.u.s.sessions.list(func(x *entity.SigningSession) bool { return x.TokenHash == s.TokenHash })
		if len(taken) > 0 || r.u.s.sessions.rows[s.Id] != nil {
			err = apperror.Wrap(apperror.ErrDuplicate, "signing session %s", s.Id)
			return
		}
		if s.Version == 0 {
			s.Version = 1
		}
		put(r.u.s, r.u.s.sessions, s.Id, s)
	})
	return err
}

func (r *signingSessionRepository) Update(ctx context.Context, s *entity.SigningSession) (err error) {
	r.u.run(func() {
		stored := r.u.s.sessions.rows[s.Id]
		if stored == nil || stored.Version != s.Version {
			err = fmt.Errorf("signing session %s version %d: %w", s.Id, s.Version, apperror.ErrStaleWrite)
			return
		}
		s.Version++
		put(r.u.s, r.u.s.sessions, s.Id, s)
	})
	return err
}

func (r *signingSessionRepository) FindByID(ctx context.Context, id uuid.UUID) (s *entity.SigningSession, err error) {
	r.u.run(func() { s = r.u.s.sessions.get(id) })
	return s, nil
}

func (r *signingSessionRepository) FindByTokenHash(ctx context.Context, tokenHash string) (s *entity.SigningSession, err error) {
	r.u.run(func() {
		found := r.u.s.sessions.list(func(x *entity.SigningSession) bool { return x.TokenHash == tokenHash })
		if len(found) > 0 {
			s = found[0]
		}
	})
	return s, nil
}

func (r *signingSessionRepository) FindActiveByRecipient(ctx context.Context, documentId, recipientId uuid.UUID) (s *entity.SigningSession, err error) {
	r.u.run(func() {
		found := r.u.s.sessions.list(func(x *entity.SigningSession) bool {
			return x.DocumentId == documentId && x.RecipientId == recipientId && x.Status == entity.SessionStatusActive
		})
		if len(found) > 0 {
			s = found[len(found)-1]
		}
	})
	return s, nil
}

func (r *signingSessionRepository) FindActiveByDocument(ctx context.Context, documentId uuid.UUID) (out []*entity.SigningSession, err error) {
	r.u.run(func() {
		out = r.u.s.sessions.list(func(x *entity.SigningSession) bool {
			return x.DocumentId == documentId && x.Status == entity.SessionStatusActive
		})
	})
	return out, nil
}
