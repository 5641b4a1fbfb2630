package mapper

import (
	"sort"

	"contract-review-be/internal/entity"
	"contract-review-be/internal/model"
)

type SignatureMapper struct{}

func NewSignatureMapper() *SignatureMapper {
	return &SignatureMapper{}
}

// ToEntity expects Fields and Recipients to be preloaded.
func (m *SignatureMapper) ToEntity(d *model.SignatureDocument) *entity.SignatureDocument {
	if d == nil {
		return nil
	}

	fields := append([]model.SignatureField(nil), d.Fields...)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Position < fields[j].Position })

	doc := &entity.SignatureDocument{
		Id:          d.Id,
		OwnerId:     d.OwnerId,
		ContractId:  d.ContractId,
		Title:       d.Title,
		ContentRef:  d.ContentRef,
		PageCount:   d.PageCount,
		Routing:     entity.RoutingMode(d.Routing),
		Status:      entity.DocumentStatus(d.Status),
		CreatedAt:   d.CreatedAt,
		SentAt:      d.SentAt,
		CompletedAt: d.CompletedAt,
		ExpiresAt:   d.ExpiresAt,
		Version:     d.Version,
		Fields:      make([]entity.SignatureField, 0, len(fields)),
		Recipients:  make([]entity.SignatureRecipient, 0, len(d.Recipients)),
	}
	for _, f := range fields {
		doc.Fields = append(doc.Fields, entity.SignatureField{
			Id:          f.Id,
			RecipientId: f.RecipientId,
			Type:        entity.FieldType(f.Type),
			X:           f.X,
			Y:           f.Y,
			Width:       f.Width,
			Height:      f.Height,
			Page:        f.Page,
			Required:    f.Required,
			Value:       f.Value,
			Options:     []string(f.Options),
			FilledAt:    f.FilledAt,
		})
	}
	for _, r := range d.Recipients {
		doc.Recipients = append(doc.Recipients, entity.SignatureRecipient{
			Id:             r.Id,
			Email:          r.Email,
			Name:           r.Name,
			Role:           entity.RecipientRole(r.Role),
			AuthMethod:     entity.AuthMethod(r.AuthMethod),
			AccessCodeHash: r.AccessCodeHash,
			Order:          r.RoutingOrder,
			Status:         entity.RecipientStatus(r.Status),
			ViewedAt:       r.ViewedAt,
			SignedAt:       r.SignedAt,
			CompletedAt:    r.CompletedAt,
			DeclinedAt:     r.DeclinedAt,
			DeclineReason:  r.DeclineReason,
		})
	}
	doc.Recipients = doc.RecipientsByOrder()
	return doc
}

func (m *SignatureMapper) ToModel(d *entity.SignatureDocument) *model.SignatureDocument {
	if d == nil {
		return nil
	}
	out := &model.SignatureDocument{
		Id:          d.Id,
		OwnerId:     d.OwnerId,
		ContractId:  d.ContractId,
		Title:       d.Title,
		ContentRef:  d.ContentRef,
		PageCount:   d.PageCount,
		Routing:     string(d.Routing),
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt,
		SentAt:      d.SentAt,
		CompletedAt: d.CompletedAt,
		ExpiresAt:   d.ExpiresAt,
		Version:     d.Version,
	}
	for i, f := range d.Fields {
		out.Fields = append(out.Fields, model.SignatureField{
			Id:          f.Id,
			DocumentId:  d.Id,
			RecipientId: f.RecipientId,
			Type:        string(f.Type),
			X:           f.X,
			Y:           f.Y,
			Width:       f.Width,
			Height:      f.Height,
			Page:        f.Page,
			Required:    f.Required,
			Value:       f.Value,
			Options:     f.Options,
			FilledAt:    f.FilledAt,
			Position:    i,
		})
	}
	for _, r := range d.Recipients {
		out.Recipients = append(out.Recipients, model.SignatureRecipient{
			Id:             r.Id,
			DocumentId:     d.Id,
			Email:          r.Email,
			Name:           r.Name,
			Role:           string(r.Role),
			AuthMethod:     string(r.AuthMethod),
			AccessCodeHash: r.AccessCodeHash,
			RoutingOrder:   r.Order,
			Status:         string(r.Status),
			ViewedAt:       r.ViewedAt,
			SignedAt:       r.SignedAt,
			CompletedAt:    r.CompletedAt,
			DeclinedAt:     r.DeclinedAt,
			DeclineReason:  r.DeclineReason,
		})
	}
	return out
}

func (m *SignatureMapper) ToEntities(docs []*model.SignatureDocument) []*entity.SignatureDocument {
	entities := make([]*entity.SignatureDocument, len(docs))
	for i, d := range docs {
		entities[i] = m.ToEntity(d)
	}
	return entities
}

func (m *SignatureMapper) TemplateToEntity(t *model.SignatureTemplate) *entity.SignatureTemplate {
	if t == nil {
		return nil
	}
	out := &entity.SignatureTemplate{
		Id:        t.Id,
		OwnerId:   t.OwnerId,
		Name:      t.Name,
		Routing:   entity.RoutingMode(t.Routing),
		PageCount: t.PageCount,
		CreatedAt: t.CreatedAt,
	}
	for _, s := range t.Roster {
		out.Roster = append(out.Roster, entity.TemplateRecipientSlot{
			Slot:       s.Slot,
			Role:       entity.RecipientRole(s.Role),
			AuthMethod: entity.AuthMethod(s.AuthMethod),
			Order:      s.Order,
		})
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, entity.TemplateField{
			Slot:     f.Slot,
			Type:     entity.FieldType(f.Type),
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Page:     f.Page,
			Required: f.Required,
			Options:  f.Options,
		})
	}
	return out
}

func (m *SignatureMapper) TemplateToModel(t *entity.SignatureTemplate) *model.SignatureTemplate {
	out := &model.SignatureTemplate{
		Id:        t.Id,
		OwnerId:   t.OwnerId,
		Name:      t.Name,
		Routing:   string(t.Routing),
		PageCount: t.PageCount,
		CreatedAt: t.CreatedAt,
	}
	for _, s := range t.Roster {
		out.Roster = append(out.Roster, model.TemplateSlot{
			Slot:       s.Slot,
			Role:       string(s.Role),
			AuthMethod: string(s.AuthMethod),
			Order:      s.Order,
		})
	}
	for _, f := range t.Fields {
		out.Fields = append(out.Fields, model.TemplateField{
			Slot:     f.Slot,
			Type:     string(f.Type),
			X:        f.X,
			Y:        f.Y,
			Width:    f.Width,
			Height:   f.Height,
			Page:     f.Page,
			Required: f.Required,
			Options:  f.Options,
		})
	}
	return out
}

func (m *SignatureMapper) SessionToEntity(s *model.SigningSession) *entity.SigningSession {
	if s == nil {
		return nil
	}
	return &entity.SigningSession{
		Id:                s.Id,
		DocumentId:        s.DocumentId,
		RecipientId:       s.RecipientId,
		TokenHash:         s.TokenHash,
		ExpiresAt:         s.ExpiresAt,
		CurrentPage:       s.CurrentPage,
		CompletedFieldIds: s.CompletedFieldIds,
		Status:            entity.SessionStatus(s.Status),
		EndReason:         s.EndReason,
		CreatedAt:         s.CreatedAt,
		EndedAt:           s.EndedAt,
		Version:           s.Version,
	}
}

func (m *SignatureMapper) SessionToModel(s *entity.SigningSession) *model.SigningSession {
	return &model.SigningSession{
		Id:                s.Id,
		DocumentId:        s.DocumentId,
		RecipientId:       s.RecipientId,
		TokenHash:         s.TokenHash,
		ExpiresAt:         s.ExpiresAt,
		CurrentPage:       s.CurrentPage,
		CompletedFieldIds: s.CompletedFieldIds,
		Status:            string(s.Status),
		EndReason:         s.EndReason,
		CreatedAt:         s.CreatedAt,
		EndedAt:           s.EndedAt,
		Version:           s.Version,
	}
}
