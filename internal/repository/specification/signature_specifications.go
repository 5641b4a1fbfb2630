package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByDocumentID struct {
	DocumentID uuid.UUID
}

func (s ByDocumentID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentID)
}

type BySubjectID struct {
	SubjectID uuid.UUID
}

func (s BySubjectID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("subject_id = ?", s.SubjectID)
}

// OpenPastExpiry matches sent or in-progress documents whose expiry has passed.
type OpenPastExpiry struct {
	Now time.Time
}

func (s OpenPastExpiry) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status IN ? AND expires_at IS NOT NULL AND expires_at <= ?", []string{"sent", "in_progress"}, s.Now)
}

type ActiveSession struct{}

func (s ActiveSession) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", "active")
}

// WithDocumentParts preloads fields and recipients of a signature document.
type WithDocumentParts struct{}

func (s WithDocumentParts) Apply(db *gorm.DB) *gorm.DB {
	return db.Preload("Fields").Preload("Recipients")
}
