package entity

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusExpired   SessionStatus = "expired"
)

const (
	SessionEndTimeout          = "ttl_elapsed"
	SessionEndSuperseded       = "superseded"
	SessionEndDocumentClosed   = "document_closed"
	SessionEndFieldsCompleted  = "fields_completed"
	SessionEndRecipientSettled = "recipient_settled"
)

type SigningSession struct {
	Id                uuid.UUID
	DocumentId        uuid.UUID
	RecipientId       uuid.UUID
	TokenHash         string
	ExpiresAt         time.Time
	CurrentPage       int
	CompletedFieldIds []uuid.UUID
	Status            SessionStatus
	EndReason         string
	CreatedAt         time.Time
	EndedAt           *time.Time
	Version           int64
}

// ExpiredAt reports whether the session's validity window has closed at now.
// A zero TTL session is expired from the instant it is issued.
func (s *SigningSession) ExpiredAt(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

func (s *SigningSession) Clone() *SigningSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.CompletedFieldIds = append([]uuid.UUID(nil), s.CompletedFieldIds...)
	cp.EndedAt = cloneTime(s.EndedAt)
	return &cp
}
