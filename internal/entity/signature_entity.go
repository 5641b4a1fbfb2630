package entity

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

type RoutingMode string

const (
	RoutingSequential RoutingMode = "sequential"
	RoutingParallel   RoutingMode = "parallel"
)

func (r RoutingMode) Valid() bool {
	return r == RoutingSequential || r == RoutingParallel
}

type DocumentStatus string

const (
	DocumentStatusDraft      DocumentStatus = "draft"
	DocumentStatusSent       DocumentStatus = "sent"
	DocumentStatusInProgress DocumentStatus = "in_progress"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusDeclined   DocumentStatus = "declined"
	DocumentStatusExpired    DocumentStatus = "expired"
)

func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusDeclined || s == DocumentStatusExpired
}

// IsOpen reports whether recipients may currently act on the document.
func (s DocumentStatus) IsOpen() bool {
	return s == DocumentStatusSent || s == DocumentStatusInProgress
}

type FieldType string

const (
	FieldTypeSignature FieldType = "signature"
	FieldTypeInitials  FieldType = "initials"
	FieldTypeName      FieldType = "name"
	FieldTypeDate      FieldType = "date"
	FieldTypeTitle     FieldType = "title"
	FieldTypeCheckbox  FieldType = "checkbox"
	FieldTypeRadio     FieldType = "radio"
	FieldTypeTextbox   FieldType = "textbox"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeSignature, FieldTypeInitials, FieldTypeName, FieldTypeDate,
		FieldTypeTitle, FieldTypeCheckbox, FieldTypeRadio, FieldTypeTextbox:
		return true
	}
	return false
}

func (t FieldType) IsChoice() bool {
	return t == FieldTypeCheckbox || t == FieldTypeRadio
}

type SignatureField struct {
	Id          uuid.UUID
	RecipientId uuid.UUID
	Type        FieldType
	X           float64
	Y           float64
	Width       float64
	Height      float64
	Page        int
	Required    bool
	Value       *string
	Options     []string
	FilledAt    *time.Time
}

func (f SignatureField) IsSet() bool {
	return f.Value != nil
}

type RecipientRole string

const (
	RoleSigner             RecipientRole = "signer"
	RoleApprover           RecipientRole = "approver"
	RoleViewer             RecipientRole = "viewer"
	RoleCertifiedRecipient RecipientRole = "certified_recipient"
	RoleInPersonSigner     RecipientRole = "in_person_signer"
)

func (r RecipientRole) Valid() bool {
	switch r {
	case RoleSigner, RoleApprover, RoleViewer, RoleCertifiedRecipient, RoleInPersonSigner:
		return true
	}
	return false
}

// RequiresAction marks the roles that gate routing and count toward
// document completion. Viewers and certified recipients only observe.
func (r RecipientRole) RequiresAction() bool {
	return r == RoleSigner || r == RoleInPersonSigner || r == RoleApprover
}

type AuthMethod string

const (
	AuthEmail          AuthMethod = "email"
	AuthSMS            AuthMethod = "sms"
	AuthAccessCode     AuthMethod = "access_code"
	AuthIDVerification AuthMethod = "id_verification"
)

func (a AuthMethod) Valid() bool {
	switch a {
	case AuthEmail, AuthSMS, AuthAccessCode, AuthIDVerification:
		return true
	}
	return false
}

type RecipientStatus string

const (
	RecipientStatusPending   RecipientStatus = "pending"
	RecipientStatusViewed    RecipientStatus = "viewed"
	RecipientStatusSigned    RecipientStatus = "signed"
	RecipientStatusDeclined  RecipientStatus = "declined"
	RecipientStatusCompleted RecipientStatus = "completed"
)

func (s RecipientStatus) CanTransitionTo(next RecipientStatus) bool {
	switch s {
	case RecipientStatusPending:
		return next == RecipientStatusViewed
	case RecipientStatusViewed:
		return next == RecipientStatusSigned || next == RecipientStatusDeclined
	case RecipientStatusSigned:
		return next == RecipientStatusCompleted
	}
	return false
}

// IsSettled reports statuses that no longer block later recipients in
// sequential routing.
func (s RecipientStatus) IsSettled() bool {
	return s == RecipientStatusSigned || s == RecipientStatusCompleted || s == RecipientStatusDeclined
}

type SignatureRecipient struct {
	Id             uuid.UUID
	Email          string
	Name           string
	Role           RecipientRole
	AuthMethod     AuthMethod
	AccessCodeHash string
	Order          int
	Status         RecipientStatus
	ViewedAt       *time.Time
	SignedAt       *time.Time
	CompletedAt    *time.Time
	DeclinedAt     *time.Time
	DeclineReason  string
}

type SignatureDocument struct {
	Id          uuid.UUID
	OwnerId     uuid.UUID
	ContractId  *uuid.UUID
	Title       string
	ContentRef  string
	PageCount   int
	Fields      []SignatureField
	Recipients  []SignatureRecipient
	Routing     RoutingMode
	Status      DocumentStatus
	CreatedAt   time.Time
	SentAt      *time.Time
	CompletedAt *time.Time
	ExpiresAt   *time.Time
	Version     int64
}

func (d *SignatureDocument) Recipient(id uuid.UUID) *SignatureRecipient {
	for i := range d.Recipients {
		if d.Recipients[i].Id == id {
			return &d.Recipients[i]
		}
	}
	return nil
}

func (d *SignatureDocument) Field(id uuid.UUID) *SignatureField {
	for i := range d.Fields {
		if d.Fields[i].Id == id {
			return &d.Fields[i]
		}
	}
	return nil
}

func (d *SignatureDocument) FieldsFor(recipientId uuid.UUID) []SignatureField {
	var out []SignatureField
	for _, f := range d.Fields {
		if f.RecipientId == recipientId {
			out = append(out, f)
		}
	}
	return out
}

// RequiredFieldsFilled is true when every required field assigned to the
// recipient carries a value. A recipient without required fields is
// trivially filled.
func (d *SignatureDocument) RequiredFieldsFilled(recipientId uuid.UUID) bool {
	for _, f := range d.Fields {
		if f.RecipientId == recipientId && f.Required && !f.IsSet() {
			return false
		}
	}
	return true
}

// RecipientsByOrder returns the recipients sorted by routing precedence.
func (d *SignatureDocument) RecipientsByOrder() []SignatureRecipient {
	out := append([]SignatureRecipient(nil), d.Recipients...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

func (d *SignatureDocument) Clone() *SignatureDocument {
	if d == nil {
		return nil
	}
	cp := *d
	cp.ContractId = cloneUUID(d.ContractId)
	cp.SentAt = cloneTime(d.SentAt)
	cp.CompletedAt = cloneTime(d.CompletedAt)
	cp.ExpiresAt = cloneTime(d.ExpiresAt)

	cp.Fields = make([]SignatureField, len(d.Fields))
	for i, f := range d.Fields {
		f.Options = append([]string(nil), f.Options...)
		if f.Value != nil {
			v := *f.Value
			f.Value = &v
		}
		f.FilledAt = cloneTime(f.FilledAt)
		cp.Fields[i] = f
	}

	cp.Recipients = make([]SignatureRecipient, len(d.Recipients))
	for i, r := range d.Recipients {
		r.ViewedAt = cloneTime(r.ViewedAt)
		r.SignedAt = cloneTime(r.SignedAt)
		r.CompletedAt = cloneTime(r.CompletedAt)
		r.DeclinedAt = cloneTime(r.DeclinedAt)
		cp.Recipients[i] = r
	}
	return &cp
}

// SignatureTemplate seeds new documents. Slots stand in for the recipient
// identities supplied at instantiation.
type SignatureTemplate struct {
	Id        uuid.UUID
	OwnerId   uuid.UUID
	Name      string
	Routing   RoutingMode
	PageCount int
	Roster    []TemplateRecipientSlot
	Fields    []TemplateField
	CreatedAt time.Time
}

type TemplateRecipientSlot struct {
	Slot       string
	Role       RecipientRole
	AuthMethod AuthMethod
	Order      int
}

type TemplateField struct {
	Slot     string
	Type     FieldType
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Page     int
	Required bool
	Options  []string
}

func (t *SignatureTemplate) Clone() *SignatureTemplate {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Roster = append([]TemplateRecipientSlot(nil), t.Roster...)
	cp.Fields = make([]TemplateField, len(t.Fields))
	for i, f := range t.Fields {
		f.Options = append([]string(nil), f.Options...)
		cp.Fields[i] = f
	}
	return &cp
}
