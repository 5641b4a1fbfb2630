package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// AuditEvent rows are never updated or deleted. The unique index on
// (subject_id, sequence) is the storage-level guard against a reused index.
type AuditEvent struct {
	Id        uuid.UUID                             `gorm:"type:uuid;primaryKey"`
	SubjectId uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex:idx_audit_events_subject_sequence,priority:1"`
	Sequence  int64                                 `gorm:"not null;uniqueIndex:idx_audit_events_subject_sequence,priority:2"`
	Timestamp time.Time                             `gorm:"not null"`
	Action    string                                `gorm:"type:varchar(50);not null"`
	ActorId   *uuid.UUID                            `gorm:"type:uuid"`
	ActorKind string                                `gorm:"type:varchar(20);not null"`
	IPAddress string                                `gorm:"type:varchar(64)"`
	Client    string                                `gorm:"type:varchar(255)"`
	Details   datatypes.JSONType[map[string]string] `gorm:"type:jsonb"`
	PrevHash  string                                `gorm:"type:char(64)"`
	Hash      string                                `gorm:"type:char(64);not null"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}
