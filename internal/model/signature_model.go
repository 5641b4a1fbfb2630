package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type SignatureDocument struct {
	Id          uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OwnerId     uuid.UUID  `gorm:"type:uuid;not null;index"`
	ContractId  *uuid.UUID `gorm:"type:uuid;index"`
	Title       string     `gorm:"type:varchar(255);not null"`
	ContentRef  string     `gorm:"type:text"`
	PageCount   int        `gorm:"not null"`
	Routing     string     `gorm:"type:varchar(20);not null"`
	Status      string     `gorm:"type:varchar(20);not null;index:idx_signature_documents_expiry,priority:1"`
	CreatedAt   time.Time
	SentAt      *time.Time
	CompletedAt *time.Time
	ExpiresAt   *time.Time `gorm:"index:idx_signature_documents_expiry,priority:2"`
	Version     int64      `gorm:"not null;default:1"`

	Fields     []SignatureField     `gorm:"foreignKey:DocumentId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Recipients []SignatureRecipient `gorm:"foreignKey:DocumentId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (SignatureDocument) TableName() string {
	return "signature_documents"
}

type SignatureField struct {
	Id          uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	DocumentId  uuid.UUID                   `gorm:"type:uuid;not null;index"`
	RecipientId uuid.UUID                   `gorm:"type:uuid;not null;index"`
	Type        string                      `gorm:"type:varchar(20);not null"`
	X           float64                     `gorm:"not null"`
	Y           float64                     `gorm:"not null"`
	Width       float64                     `gorm:"not null"`
	Height      float64                     `gorm:"not null"`
	Page        int                         `gorm:"not null"`
	Required    bool                        `gorm:"not null;default:false"`
	Value       *string                     `gorm:"type:text"`
	Options     datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	FilledAt    *time.Time
	Position    int `gorm:"not null;default:0"`
}

func (SignatureField) TableName() string {
	return "signature_fields"
}

type SignatureRecipient struct {
	Id             uuid.UUID `gorm:"type:uuid;primaryKey"`
	DocumentId     uuid.UUID `gorm:"type:uuid;not null;index"`
	Email          string    `gorm:"type:varchar(255);not null"`
	Name           string    `gorm:"type:varchar(255)"`
	Role           string    `gorm:"type:varchar(30);not null"`
	AuthMethod     string    `gorm:"type:varchar(30);not null"`
	AccessCodeHash string    `gorm:"type:varchar(100)"`
	RoutingOrder   int       `gorm:"column:routing_order;not null"`
	Status         string    `gorm:"type:varchar(20);not null"`
	ViewedAt       *time.Time
	SignedAt       *time.Time
	CompletedAt    *time.Time
	DeclinedAt     *time.Time
	DeclineReason  string `gorm:"type:text"`
}

func (SignatureRecipient) TableName() string {
	return "signature_recipients"
}

type TemplateSlot struct {
	Slot       string `json:"slot"`
	Role       string `json:"role"`
	AuthMethod string `json:"auth_method"`
	Order      int    `json:"order"`
}

type TemplateField struct {
	Slot     string   `json:"slot"`
	Type     string   `json:"type"`
	X        float64  `json:"x"`
	Y        float64  `json:"y"`
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Page     int      `json:"page"`
	Required bool     `json:"required"`
	Options  []string `json:"options,omitempty"`
}

type SignatureTemplate struct {
	Id        uuid.UUID                          `gorm:"type:uuid;primaryKey"`
	OwnerId   uuid.UUID                          `gorm:"type:uuid;not null;index"`
	Name      string                             `gorm:"type:varchar(255);not null"`
	Routing   string                             `gorm:"type:varchar(20);not null"`
	PageCount int                                `gorm:"not null"`
	Roster    datatypes.JSONSlice[TemplateSlot]  `gorm:"type:jsonb"`
	Fields    datatypes.JSONSlice[TemplateField] `gorm:"type:jsonb"`
	CreatedAt time.Time
}

func (SignatureTemplate) TableName() string {
	return "signature_templates"
}

type SigningSession struct {
	Id                uuid.UUID                      `gorm:"type:uuid;primaryKey"`
	DocumentId        uuid.UUID                      `gorm:"type:uuid;not null;index:idx_signing_sessions_recipient,priority:1"`
	RecipientId       uuid.UUID                      `gorm:"type:uuid;not null;index:idx_signing_sessions_recipient,priority:2"`
	TokenHash         string                         `gorm:"type:char(64);not null;uniqueIndex"`
	ExpiresAt         time.Time                      `gorm:"not null"`
	CurrentPage       int                            `gorm:"not null;default:1"`
	CompletedFieldIds datatypes.JSONSlice[uuid.UUID] `gorm:"type:jsonb"`
	Status            string                         `gorm:"type:varchar(20);not null;index"`
	EndReason         string                         `gorm:"type:varchar(30)"`
	CreatedAt         time.Time
	EndedAt           *time.Time
	Version           int64 `gorm:"not null;default:1"`

	Document SignatureDocument `gorm:"foreignKey:DocumentId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (SigningSession) TableName() string {
	return "signing_sessions"
}
