package specification

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByContractID struct {
	ContractID uuid.UUID
}

func (s ByContractID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("contract_id = ?", s.ContractID)
}

// AnalyzingSince matches contracts whose current run started before the cutoff.
type AnalyzingSince struct {
	Before time.Time
}

func (s AnalyzingSince) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("analysis_status = ? AND analysis_started_at < ?", "analyzing", s.Before)
}
