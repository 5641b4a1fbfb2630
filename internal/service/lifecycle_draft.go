package service

import (
	"context"
	"strings"

	"contract-review-be/internal/dto"
	"contract-review-be/internal/entity"
	"contract-review-be/internal/pkg/apperror"
	"contract-review-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type draft struct {
	routing    entity.RoutingMode
	recipients []entity.SignatureRecipient
	fields     []entity.SignatureField
}

// buildDraft turns a request into recipients and fields with fresh ids.
// Cross-recipient rules (unique order, at least one acting recipient) are
// checked at send time so drafts can be saved incomplete.
func buildDraft(req *dto.CreateDocumentRequest) (*draft, error) {
	if isBlank(req.Title) {
		return nil, apperror.Wrap(ErrInvalidDocument, "title is required")
	}
	if isBlank(req.ContentRef) {
		return nil, apperror.Wrap(ErrInvalidDocument, "content reference is required")
	}
	if req.PageCount < 1 {
		return nil, apperror.Wrap(ErrInvalidDocument, "page count must be at least 1")
	}
	routing := entity.RoutingMode(req.Routing)
	if !routing.Valid() {
		return nil, apperror.Wrap(ErrInvalidDocument, "unknown routing %q", req.Routing)
	}

	d := &draft{routing: routing}
	for i, in := range req.Recipients {
		role := entity.RecipientRole(in.Role)
		auth := entity.AuthMethod(in.AuthMethod)
		switch {
		case isBlank(in.Email):
			return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d has no email", i)
		case !role.Valid():
			return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d has unknown role %q", i, in.Role)
		case !auth.Valid():
			return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d has unknown auth method %q", i, in.AuthMethod)
		case in.Order < 1:
			return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d has order %d", i, in.Order)
		}

		r := entity.SignatureRecipient{
			Id:         uuid.New(),
			Email:      strings.TrimSpace(in.Email),
			Name:       strings.TrimSpace(in.Name),
			Role:       role,
			AuthMethod: auth,
			Order:      in.Order,
			Status:     entity.RecipientStatusPending,
		}
		if auth == entity.AuthAccessCode {
			if isBlank(in.AccessCode) {
				return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d needs an access code", i)
			}
			hash, err := HashAccessCode(in.AccessCode)
			if err != nil {
				return nil, err
			}
			r.AccessCodeHash = hash
		}
		d.recipients = append(d.recipients, r)

		for j, f := range in.Fields {
			field, err := buildField(f, req.PageCount)
			if err != nil {
				return nil, apperror.Wrap(ErrInvalidDocument, "recipient %d field %d: %v", i, j, err)
			}
			field.RecipientId = r.Id
			d.fields = append(d.fields, field)
		}
	}
	return d, nil
}

func buildField(in dto.FieldInput, pageCount int) (entity.SignatureField, error) {
	t := entity.FieldType(in.Type)
	switch {
	case !t.Valid():
		return entity.SignatureField{}, apperror.Wrap(ErrInvalidDocument, "unknown field type %q", in.Type)
	case in.Page < 1 || in.Page > pageCount:
		return entity.SignatureField{}, apperror.Wrap(ErrInvalidDocument, "page %d of %d", in.Page, pageCount)
	case in.Width <= 0 || in.Height <= 0 || in.X < 0 || in.Y < 0:
		return entity.SignatureField{}, apperror.Wrap(ErrInvalidDocument, "bad geometry")
	case t == entity.FieldTypeRadio && len(in.Options) == 0:
		return entity.SignatureField{}, apperror.Wrap(ErrInvalidDocument, "radio needs options")
	}
	return entity.SignatureField{
		Id:       uuid.New(),
		Type:     t,
		X:        in.X,
		Y:        in.Y,
		Width:    in.Width,
		Height:   in.Height,
		Page:     in.Page,
		Required: in.Required,
		Options:  append([]string(nil), in.Options...),
	}, nil
}

func checkContract(ctx context.Context, uow unitofwork.UnitOfWork, actor entity.Actor, contractId *uuid.UUID) error {
	if contractId == nil {
		return nil
	}
	c, err := uow.ContractRepository().FindByID(ctx, *contractId)
	if err != nil {
		return err
	}
	if c == nil {
		return ErrContractNotFound
	}
	return authorizeOwner(actor, c.OwnerId)
}

func (s *lifecycleService) CreateDocument(ctx context.Context, actor entity.Actor, req *dto.CreateDocumentRequest) (*entity.SignatureDocument, error) {
	return s.createDocument(ctx, actor, req, nil)
}

func (s *lifecycleService) createDocument(ctx context.Context, actor entity.Actor, req *dto.CreateDocumentRequest, templateId *uuid.UUID) (*entity.SignatureDocument, error) {
	if actor.Kind != entity.ActorUser {
		return nil, apperror.ErrForbidden
	}
	d, err := buildDraft(req)
	if err != nil {
		return nil, err
	}

	doc := &entity.SignatureDocument{
		Id:         uuid.New(),
		OwnerId:    actor.Id,
		ContractId: req.ContractId,
		Title:      strings.TrimSpace(req.Title),
		ContentRef: req.ContentRef,
		PageCount:  req.PageCount,
		Fields:     d.fields,
		Recipients: d.recipients,
		Routing:    d.routing,
		Status:     entity.DocumentStatusDraft,
		CreatedAt:  s.clock.Now(),
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := checkContract(ctx, uow, actor, req.ContractId); err != nil {
		return nil, err
	}
	if err := uow.SignatureDocumentRepository().Create(ctx, doc); err != nil {
		return nil, err
	}

	details := map[entity.DetailKey]string{entity.DetailTitle: doc.Title}
	if templateId != nil {
		details[entity.DetailTemplateId] = templateId.String()
	}
	if _, err := s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
		Action:  entity.AuditDocumentCreated,
		Details: details,
	}); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *lifecycleService) UpdateDraft(ctx context.Context, actor entity.Actor, docId uuid.UUID, req *dto.UpdateDraftRequest) (*entity.SignatureDocument, error) {
	return s.withDocument(ctx, docId, func(uow unitofwork.UnitOfWork, doc *entity.SignatureDocument, out *outbox) error {
		if err := authorizeOwner(actor, doc.OwnerId); err != nil {
			return err
		}
		if doc.Status != entity.DocumentStatusDraft {
			return ErrDocumentNotDraft
		}
		d, err := buildDraft(req)
		if err != nil {
			return err
		}
		if err := checkContract(ctx, uow, actor, req.ContractId); err != nil {
			return err
		}

		doc.Title = strings.TrimSpace(req.Title)
		doc.ContractId = req.ContractId
		doc.ContentRef = req.ContentRef
		doc.PageCount = req.PageCount
		doc.Routing = d.routing
		doc.Recipients = d.recipients
		doc.Fields = d.fields
		out.dirty = true

		_, err = s.audit.Record(ctx, uow, doc.Id, actor, AuditEntry{
			Action:  entity.AuditDocumentUpdated,
			Details: map[entity.DetailKey]string{entity.DetailTitle: doc.Title},
		})
		return err
	})
}

func (s *lifecycleService) GetDocument(ctx context.Context, actor entity.Actor, docId uuid.UUID) (*entity.SignatureDocument, error) {
	doc, err := s.uowFactory.NewUnitOfWork(ctx).SignatureDocumentRepository().FindByID(ctx, docId)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	if err := authorizeOwner(actor, doc.OwnerId); err != nil {
		return nil, err
	}
	return doc, nil
}

func pageBounds(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *lifecycleService) ListDocuments(ctx context.Context, actor entity.Actor, limit, offset int) ([]*entity.SignatureDocument, error) {
	if actor.Kind != entity.ActorUser {
		return nil, apperror.ErrForbidden
	}
	limit, offset = pageBounds(limit, offset)
	return s.uowFactory.NewUnitOfWork(ctx).SignatureDocumentRepository().FindByOwner(ctx, actor.Id, limit, offset)
}

func (s *lifecycleService) CreateTemplate(ctx context.Context, actor entity.Actor, req *dto.CreateTemplateRequest) (*entity.SignatureTemplate, error) {
	if actor.Kind != entity.ActorUser {
		return nil, apperror.ErrForbidden
	}
	if isBlank(req.Name) {
		return nil, apperror.Wrap(ErrInvalidDocument, "template name is required")
	}
	routing := entity.RoutingMode(req.Routing)
	if !routing.Valid() {
		return nil, apperror.Wrap(ErrInvalidDocument, "unknown routing %q", req.Routing)
	}
	if req.PageCount < 1 {
		return nil, apperror.Wrap(ErrInvalidDocument, "page count must be at least 1")
	}
	if len(req.Roster) == 0 {
		return nil, apperror.Wrap(ErrInvalidDocument, "roster is empty")
	}

	t := &entity.SignatureTemplate{
		Id:        uuid.New(),
		OwnerId:   actor.Id,
		Name:      strings.TrimSpace(req.Name),
		Routing:   routing,
		PageCount: req.PageCount,
		CreatedAt: s.clock.Now(),
	}

	slots := make(map[string]bool, len(req.Roster))
	for _, in := range req.Roster {
		role := entity.RecipientRole(in.Role)
		auth := entity.AuthMethod(in.AuthMethod)
		switch {
		case isBlank(in.Slot) || slots[in.Slot]:
			return nil, apperror.Wrap(ErrInvalidDocument, "slot %q is blank or repeated", in.Slot)
		case !role.Valid() || !auth.Valid():
			return nil, apperror.Wrap(ErrInvalidDocument, "slot %q has unknown role or auth method", in.Slot)
		case in.Order < 1:
			return nil, apperror.Wrap(ErrInvalidDocument, "slot %q has order %d", in.Slot, in.Order)
		}
		slots[in.Slot] = true
		t.Roster = append(t.Roster, entity.TemplateRecipientSlot{
			Slot:       in.Slot,
			Role:       role,
			AuthMethod: auth,
			Order:      in.Order,
		})
	}

	for i, in := range req.Fields {
		if !slots[in.Slot] {
			return nil, apperror.Wrap(ErrTemplateSlotMismatch, "field %d uses unknown slot %q", i, in.Slot)
		}
		f, err := buildField(in.FieldInput, req.PageCount)
		if err != nil {
			return nil, apperror.Wrap(ErrInvalidDocument, "field %d: %v", i, err)
		}
		t.Fields = append(t.Fields, entity.TemplateField{
			Slot:     in.Slot,
			Type:     f.Type,
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Page:     f.Page,
			Required: f.Required,
			Options:  f.Options,
		})
	}

	if err := s.uowFactory.NewUnitOfWork(ctx).SignatureTemplateRepository().Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *lifecycleService) ListTemplates(ctx context.Context, actor entity.Actor) ([]*entity.SignatureTemplate, error) {
	if actor.Kind != entity.ActorUser {
		return nil, apperror.ErrForbidden
	}
	return s.uowFactory.NewUnitOfWork(ctx).SignatureTemplateRepository().FindByOwner(ctx, actor.Id)
}

// CreateFromTemplate binds one identity to every roster slot. Missing or
// extra slots are rejected.
func (s *lifecycleService) CreateFromTemplate(ctx context.Context, actor entity.Actor, templateId uuid.UUID, req *dto.CreateFromTemplateRequest) (*entity.SignatureDocument, error) {
	t, err := s.uowFactory.NewUnitOfWork(ctx).SignatureTemplateRepository().FindByID(ctx, templateId)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTemplateNotFound
	}
	if err := authorizeOwner(actor, t.OwnerId); err != nil {
		return nil, err
	}

	if len(req.Recipients) != len(t.Roster) {
		return nil, apperror.Wrap(ErrTemplateSlotMismatch, "expected %d recipients, got %d", len(t.Roster), len(req.Recipients))
	}

	docReq := &dto.CreateDocumentRequest{
		Title:      req.Title,
		ContractId: req.ContractId,
		ContentRef: req.ContentRef,
		PageCount:  t.PageCount,
		Routing:    string(t.Routing),
	}
	for _, slot := range t.Roster {
		identity, ok := req.Recipients[slot.Slot]
		if !ok {
			return nil, apperror.Wrap(ErrTemplateSlotMismatch, "slot %q is not filled", slot.Slot)
		}
		in := dto.RecipientInput{
			Email:      identity.Email,
			Name:       identity.Name,
			Role:       string(slot.Role),
			AuthMethod: string(slot.AuthMethod),
			AccessCode: identity.AccessCode,
			Order:      slot.Order,
		}
		for _, f := range t.Fields {
			if f.Slot != slot.Slot {
				continue
			}
			in.Fields = append(in.Fields, dto.FieldInput{
				Type:     string(f.Type),
				X:        f.X,
				Y:        f.Y,
				Width:    f.Width,
				Height:   f.Height,
				Page:     f.Page,
				Required: f.Required,
				Options:  append([]string(nil), f.Options...),
			})
		}
		docReq.Recipients = append(docReq.Recipients, in)
	}

	return s.createDocument(ctx, actor, docReq, &t.Id)
}
