package mapper

import (
	"contract-review-be/internal/entity"
	"contract-review-be/internal/model"

	"gorm.io/datatypes"
)

type AuditMapper struct{}

func NewAuditMapper() *AuditMapper {
	return &AuditMapper{}
}

func (m *AuditMapper) ToEntity(e *model.AuditEvent) *entity.AuditEvent {
	if e == nil {
		return nil
	}
	details := make(map[entity.DetailKey]string)
	for k, v := range e.Details.Data() {
		details[entity.DetailKey(k)] = v
	}
	return &entity.AuditEvent{
		Id:        e.Id,
		SubjectId: e.SubjectId,
		Sequence:  e.Sequence,
		Timestamp: e.Timestamp,
		Action:    entity.AuditAction(e.Action),
		ActorId:   e.ActorId,
		ActorKind: entity.ActorKind(e.ActorKind),
		Origin:    entity.Origin{IPAddress: e.IPAddress, Client: e.Client},
		Details:   details,
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
	}
}

func (m *AuditMapper) ToModel(e *entity.AuditEvent) *model.AuditEvent {
	details := make(map[string]string, len(e.Details))
	for k, v := range e.Details {
		details[string(k)] = v
	}
	return &model.AuditEvent{
		Id:        e.Id,
		SubjectId: e.SubjectId,
		Sequence:  e.Sequence,
		Timestamp: e.Timestamp,
		Action:    string(e.Action),
		ActorId:   e.ActorId,
		ActorKind: string(e.ActorKind),
		IPAddress: e.Origin.IPAddress,
		Client:    e.Origin.Client,
		Details:   datatypes.NewJSONType(details),
		PrevHash:  e.PrevHash,
		Hash:      e.Hash,
	}
}

func (m *AuditMapper) ToEntities(events []*model.AuditEvent) []*entity.AuditEvent {
	entities := make([]*entity.AuditEvent, len(events))
	for i, e := range events {
		entities[i] = m.ToEntity(e)
	}
	return entities
}
