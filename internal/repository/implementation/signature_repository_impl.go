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

type SignatureDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SignatureMapper
}

func NewSignatureDocumentRepository(db *gorm.DB) contract.SignatureDocumentRepository {
	return &SignatureDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewSignatureMapper(),
	}
}

func (r *SignatureDocumentRepositoryImpl) Create(ctx context.Context, doc *entity.SignatureDocument) error {
	if doc.Version == 0 {
		doc.Version = 1
	}
	m := r.mapper.ToModel(doc)
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(m).Error; err != nil {
		return translateError(err)
	}
	return r.saveParts(db, m)
}

// Update writes the document row under version check, then upserts fields
// and recipients and drops the ones no longer present.
func (r *SignatureDocumentRepositoryImpl) Update(ctx context.Context, doc *entity.SignatureDocument) error {
	m := r.mapper.ToModel(doc)
	m.Version = doc.Version + 1
	db := r.db.WithContext(ctx)
	if err := casUpdate(db, m, doc.Id, doc.Version); err != nil {
		return err
	}
	if err := r.saveParts(db, m); err != nil {
		return err
	}
	doc.Version = m.Version
	return nil
}

func (r *SignatureDocumentRepositoryImpl) saveParts(db *gorm.DB, m *model.SignatureDocument) error {
	fieldIds := make([]uuid.UUID, 0, len(m.Fields))
	for _, f := range m.Fields {
		fieldIds = append(fieldIds, f.Id)
	}
	recipientIds := make([]uuid.UUID, 0, len(m.Recipients))
	for _, rc := range m.Recipients {
		recipientIds = append(recipientIds, rc.Id)
	}

	upsert := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}
	if len(m.Fields) > 0 {
		if err := db.Clauses(upsert).Create(&m.Fields).Error; err != nil {
			return translateError(err)
		}
	}
	if len(m.Recipients) > 0 {
		if err := db.Clauses(upsert).Create(&m.Recipients).Error; err != nil {
			return translateError(err)
		}
	}

	stale := db.Where("document_id = ?", m.Id)
	if len(fieldIds) > 0 {
		stale = stale.Where("id NOT IN ?", fieldIds)
	}
	if err := stale.Delete(&model.SignatureField{}).Error; err != nil {
		return err
	}
	stale = db.Where("document_id = ?", m.Id)
	if len(recipientIds) > 0 {
		stale = stale.Where("id NOT IN ?", recipientIds)
	}
	return stale.Delete(&model.SignatureRecipient{}).Error
}

func (r *SignatureDocumentRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.SignatureDocument, error) {
	var m model.SignatureDocument
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *SignatureDocumentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.SignatureDocument, error) {
	return r.findOne(ctx, specification.ByID{ID: id}, specification.WithDocumentParts{})
}

// FindByIDForUpdate locks the document row only; children are always
// written through the document, so the parent lock covers them.
func (r *SignatureDocumentRepositoryImpl) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.SignatureDocument, error) {
	return r.findOne(ctx, specification.ByID{ID: id}, specification.ForUpdate{}, specification.WithDocumentParts{})
}

func (r *SignatureDocumentRepositoryImpl) FindByOwner(ctx context.Context, ownerId uuid.UUID, limit, offset int) ([]*entity.SignatureDocument, error) {
	var models []*model.SignatureDocument
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByOwner{OwnerID: ownerId},
		specification.WithDocumentParts{},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *SignatureDocumentRepositoryImpl) FindExpiring(ctx context.Context, now time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	query := applySpecifications(r.db.WithContext(ctx).Model(&model.SignatureDocument{}),
		specification.OpenPastExpiry{Now: now},
		specification.OrderBy{Field: "expires_at"},
		specification.Pagination{Limit: limit},
	)
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

type SignatureTemplateRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SignatureMapper
}

func NewSignatureTemplateRepository(db *gorm.DB) contract.SignatureTemplateRepository {
	return &SignatureTemplateRepositoryImpl{db: db, mapper: mapper.NewSignatureMapper()}
}

func (r *SignatureTemplateRepositoryImpl) Create(ctx context.Context, t *entity.SignatureTemplate) error {
	return translateError(r.db.WithContext(ctx).Create(r.mapper.TemplateToModel(t)).Error)
}

func (r *SignatureTemplateRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.SignatureTemplate, error) {
	var m model.SignatureTemplate
	if err := applySpecifications(r.db.WithContext(ctx), specification.ByID{ID: id}).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.TemplateToEntity(&m), nil
}

func (r *SignatureTemplateRepositoryImpl) FindByOwner(ctx context.Context, ownerId uuid.UUID) ([]*entity.SignatureTemplate, error) {
	var models []*model.SignatureTemplate
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByOwner{OwnerID: ownerId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.SignatureTemplate, len(models))
	for i, m := range models {
		out[i] = r.mapper.TemplateToEntity(m)
	}
	return out, nil
}

type SigningSessionRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.SignatureMapper
}

func NewSigningSessionRepository(db *gorm.DB) contract.SigningSessionRepository {
	return &SigningSessionRepositoryImpl{db: db, mapper: mapper.NewSignatureMapper()}
}

func (r *SigningSessionRepositoryImpl) Create(ctx context.Context, s *entity.SigningSession) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return translateError(r.db.WithContext(ctx).Omit(clause.Associations).Create(r.mapper.SessionToModel(s)).Error)
}

func (r *SigningSessionRepositoryImpl) Update(ctx context.Context, s *entity.SigningSession) error {
	m := r.mapper.SessionToModel(s)
	m.Version = s.Version + 1
	if err := casUpdate(r.db.WithContext(ctx), m, s.Id, s.Version); err != nil {
		return err
	}
	s.Version = m.Version
	return nil
}

func (r *SigningSessionRepositoryImpl) findOne(ctx context.Context, specs ...specification.Specification) (*entity.SigningSession, error) {
	var m model.SigningSession
	query := applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.SessionToEntity(&m), nil
}

func (r *SigningSessionRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.SigningSession, error) {
	return r.findOne(ctx, specification.ByID{ID: id})
}

func (r *SigningSessionRepositoryImpl) FindByTokenHash(ctx context.Context, tokenHash string) (*entity.SigningSession, error) {
	return r.findOne(ctx, specification.Filter("token_hash", tokenHash))
}

func (r *SigningSessionRepositoryImpl) FindActiveByRecipient(ctx context.Context, documentId, recipientId uuid.UUID) (*entity.SigningSession, error) {
	return r.findOne(ctx,
		specification.ByDocumentID{DocumentID: documentId},
		specification.Filter("recipient_id", recipientId),
		specification.ActiveSession{},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
}

func (r *SigningSessionRepositoryImpl) FindActiveByDocument(ctx context.Context, documentId uuid.UUID) ([]*entity.SigningSession, error) {
	var models []*model.SigningSession
	query := applySpecifications(r.db.WithContext(ctx),
		specification.ByDocumentID{DocumentID: documentId},
		specification.ActiveSession{},
		specification.OrderBy{Field: "created_at"},
	)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*entity.SigningSession, len(models))
	for i, m := range models {
		out[i] = r.mapper.SessionToEntity(m)
	}
	return out, nil
}
