package dto

import (
	"time"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

type FieldInput struct {
	Type     string   `json:"type" validate:"required,oneof=signature initials name date title checkbox radio textbox"`
	X        float64  `json:"x" validate:"gte=0"`
	Y        float64  `json:"y" validate:"gte=0"`
	Width    float64  `json:"width" validate:"gt=0"`
	Height   float64  `json:"height" validate:"gt=0"`
	Page     int      `json:"page" validate:"min=1"`
	Required bool     `json:"required"`
	Options  []string `json:"options" validate:"omitempty,dive,required"`
}

// RecipientInput carries the recipient's own fields so a draft can be
// described before any identifiers exist.
type RecipientInput struct {
	Email      string       `json:"email" validate:"required,email"`
	Name       string       `json:"name" validate:"required"`
	Role       string       `json:"role" validate:"required,oneof=signer approver viewer certified_recipient in_person_signer"`
	AuthMethod string       `json:"auth_method" validate:"required,oneof=email sms access_code id_verification"`
	AccessCode string       `json:"access_code" validate:"required_if=AuthMethod access_code"`
	Order      int          `json:"order" validate:"min=1"`
	Fields     []FieldInput `json:"fields" validate:"dive"`
}

type CreateDocumentRequest struct {
	Title      string           `json:"title" validate:"required,max=255"`
	ContractId *uuid.UUID       `json:"contract_id"`
	ContentRef string           `json:"content_ref" validate:"required"`
	PageCount  int              `json:"page_count" validate:"min=1"`
	Routing    string           `json:"routing" validate:"required,oneof=sequential parallel"`
	Recipients []RecipientInput `json:"recipients" validate:"dive"`
}

type UpdateDraftRequest = CreateDocumentRequest

type TemplateSlotInput struct {
	Slot       string `json:"slot" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=signer approver viewer certified_recipient in_person_signer"`
	AuthMethod string `json:"auth_method" validate:"required,oneof=email sms access_code id_verification"`
	Order      int    `json:"order" validate:"min=1"`
}

type TemplateFieldInput struct {
	Slot string `json:"slot" validate:"required"`
	FieldInput
}

type CreateTemplateRequest struct {
	Name      string               `json:"name" validate:"required,max=255"`
	Routing   string               `json:"routing" validate:"required,oneof=sequential parallel"`
	PageCount int                  `json:"page_count" validate:"min=1"`
	Roster    []TemplateSlotInput  `json:"roster" validate:"required,min=1,dive"`
	Fields    []TemplateFieldInput `json:"fields" validate:"dive"`
}

type SlotIdentity struct {
	Email      string `json:"email" validate:"required,email"`
	Name       string `json:"name" validate:"required"`
	AccessCode string `json:"access_code"`
}

type CreateFromTemplateRequest struct {
	Title      string                  `json:"title" validate:"required,max=255"`
	ContractId *uuid.UUID              `json:"contract_id"`
	ContentRef string                  `json:"content_ref" validate:"required"`
	Recipients map[string]SlotIdentity `json:"recipients" validate:"required,dive"`
}

type RecipientActRequest struct {
	Action string `json:"action" validate:"required,oneof=view sign approve decline"`
	Reason string `json:"reason" validate:"max=1000"`
}

type OpenSessionRequest struct {
	AccessCode string `json:"access_code"`
}

type CompleteFieldRequest struct {
	Value string `json:"value" validate:"required"`
}

type DeclineRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

type CursorRequest struct {
	Page int `json:"page" validate:"min=1"`
}

type FieldResponse struct {
	Id          uuid.UUID  `json:"id"`
	RecipientId uuid.UUID  `json:"recipient_id"`
	Type        string     `json:"type"`
	X           float64    `json:"x"`
	Y           float64    `json:"y"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
	Page        int        `json:"page"`
	Required    bool       `json:"required"`
	Value       *string    `json:"value"`
	Options     []string   `json:"options,omitempty"`
	FilledAt    *time.Time `json:"filled_at"`
}

type RecipientResponse struct {
	Id            uuid.UUID  `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	AuthMethod    string     `json:"auth_method"`
	Order         int        `json:"order"`
	Status        string     `json:"status"`
	ViewedAt      *time.Time `json:"viewed_at"`
	SignedAt      *time.Time `json:"signed_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	DeclinedAt    *time.Time `json:"declined_at"`
	DeclineReason string     `json:"decline_reason,omitempty"`
}

type DocumentResponse struct {
	Id          uuid.UUID           `json:"id"`
	ContractId  *uuid.UUID          `json:"contract_id"`
	Title       string              `json:"title"`
	ContentRef  string              `json:"content_ref"`
	PageCount   int                 `json:"page_count"`
	Routing     string              `json:"routing"`
	Status      string              `json:"status"`
	Fields      []FieldResponse     `json:"fields"`
	Recipients  []RecipientResponse `json:"recipients"`
	CreatedAt   time.Time           `json:"created_at"`
	SentAt      *time.Time          `json:"sent_at"`
	CompletedAt *time.Time          `json:"completed_at"`
	ExpiresAt   *time.Time          `json:"expires_at"`
}

type TemplateResponse struct {
	Id         uuid.UUID           `json:"id"`
	Name       string              `json:"name"`
	Routing    string              `json:"routing"`
	PageCount  int                 `json:"page_count"`
	Roster     []TemplateSlotInput `json:"roster"`
	FieldCount int                 `json:"field_count"`
	CreatedAt  time.Time           `json:"created_at"`
}

type SigningSessionResponse struct {
	SessionId         uuid.UUID         `json:"session_id"`
	RecipientId       uuid.UUID         `json:"recipient_id"`
	Status            string            `json:"status"`
	ExpiresAt         time.Time         `json:"expires_at"`
	CurrentPage       int               `json:"current_page"`
	CompletedFieldIds []uuid.UUID       `json:"completed_field_ids"`
	Document          DocumentResponse  `json:"document"`
	Recipient         RecipientResponse `json:"recipient"`
}

type AuditEventResponse struct {
	Sequence  int64             `json:"sequence"`
	Timestamp time.Time         `json:"timestamp"`
	Action    string            `json:"action"`
	ActorId   *uuid.UUID        `json:"actor_id"`
	ActorKind string            `json:"actor_kind"`
	IPAddress string            `json:"ip_address"`
	Client    string            `json:"client"`
	Details   map[string]string `json:"details"`
	Hash      string            `json:"hash"`
}

func newRecipientResponse(r entity.SignatureRecipient) RecipientResponse {
	return RecipientResponse{
		Id:            r.Id,
		Email:         r.Email,
		Name:          r.Name,
		Role:          string(r.Role),
		AuthMethod:    string(r.AuthMethod),
		Order:         r.Order,
		Status:        string(r.Status),
		ViewedAt:      r.ViewedAt,
		SignedAt:      r.SignedAt,
		CompletedAt:   r.CompletedAt,
		DeclinedAt:    r.DeclinedAt,
		DeclineReason: r.DeclineReason,
	}
}

func NewDocumentResponse(d *entity.SignatureDocument) DocumentResponse {
	res := DocumentResponse{
		Id:          d.Id,
		ContractId:  d.ContractId,
		Title:       d.Title,
		ContentRef:  d.ContentRef,
		PageCount:   d.PageCount,
		Routing:     string(d.Routing),
		Status:      string(d.Status),
		Fields:      make([]FieldResponse, 0, len(d.Fields)),
		Recipients:  make([]RecipientResponse, 0, len(d.Recipients)),
		CreatedAt:   d.CreatedAt,
		SentAt:      d.SentAt,
		CompletedAt: d.CompletedAt,
		ExpiresAt:   d.ExpiresAt,
	}
	for _, f := range d.Fields {
		res.Fields = append(res.Fields, FieldResponse{
			Id:          f.Id,
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
		})
	}
	for _, r := range d.RecipientsByOrder() {
		res.Recipients = append(res.Recipients, newRecipientResponse(r))
	}
	return res
}

func NewDocumentResponses(in []*entity.SignatureDocument) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(in))
	for _, d := range in {
		out = append(out, NewDocumentResponse(d))
	}
	return out
}

func NewTemplateResponse(t *entity.SignatureTemplate) TemplateResponse {
	roster := make([]TemplateSlotInput, 0, len(t.Roster))
	for _, slot := range t.Roster {
		roster = append(roster, TemplateSlotInput{
			Slot:       slot.Slot,
			Role:       string(slot.Role),
			AuthMethod: string(slot.AuthMethod),
			Order:      slot.Order,
		})
	}
	return TemplateResponse{
		Id:         t.Id,
		Name:       t.Name,
		Routing:    string(t.Routing),
		PageCount:  t.PageCount,
		Roster:     roster,
		FieldCount: len(t.Fields),
		CreatedAt:  t.CreatedAt,
	}
}

// NewSigningSessionResponse shows a recipient the document with only their
// own row in the recipient list.
func NewSigningSessionResponse(s *entity.SigningSession, d *entity.SignatureDocument) SigningSessionResponse {
	doc := NewDocumentResponse(d)
	doc.Recipients = nil
	var recipient RecipientResponse
	if r := d.Recipient(s.RecipientId); r != nil {
		recipient = newRecipientResponse(*r)
	}
	completed := s.CompletedFieldIds
	if completed == nil {
		completed = []uuid.UUID{}
	}
	return SigningSessionResponse{
		SessionId:         s.Id,
		RecipientId:       s.RecipientId,
		Status:            string(s.Status),
		ExpiresAt:         s.ExpiresAt,
		CurrentPage:       s.CurrentPage,
		CompletedFieldIds: completed,
		Document:          doc,
		Recipient:         recipient,
	}
}

func NewAuditEventResponses(in []entity.AuditEvent) []AuditEventResponse {
	out := make([]AuditEventResponse, 0, len(in))
	for _, e := range in {
		details := make(map[string]string, len(e.Details))
		for k, v := range e.Details {
			details[string(k)] = v
		}
		out = append(out, AuditEventResponse{
			Sequence:  e.Sequence,
			Timestamp: e.Timestamp,
			Action:    string(e.Action),
			ActorId:   e.ActorId,
			ActorKind: string(e.ActorKind),
			IPAddress: e.Origin.IPAddress,
			Client:    e.Origin.Client,
			Details:   details,
			Hash:      e.Hash,
		})
	}
	return out
}
