package entity

import (
	"time"

	"github.com/google/uuid"
)

type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusAnalyzing AnalysisStatus = "analyzing"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusError     AnalysisStatus = "error"
)

// CanTransitionTo enforces forward-only movement: nothing returns to pending,
// and completed/error may only be left by starting a new run.
func (s AnalysisStatus) CanTransitionTo(next AnalysisStatus) bool {
	switch s {
	case AnalysisStatusPending, AnalysisStatusCompleted, AnalysisStatusError:
		return next == AnalysisStatusAnalyzing
	case AnalysisStatusAnalyzing:
		return next == AnalysisStatusCompleted || next == AnalysisStatusError
	}
	return false
}

type Contract struct {
	Id                uuid.UUID
	OwnerId           uuid.UUID
	Title             string
	Content           string
	Language          string
	AnalysisStatus    AnalysisStatus
	AnalysisRunId     *uuid.UUID
	AnalysisStartedAt *time.Time
	AnalyzedAt        *time.Time
	// AnalyzedRunId is the run whose summary and assessments are current.
	AnalyzedRunId     *uuid.UUID
	AnalysisError     string
	AnalysisRetryable bool
	Summary           string
	KeyTopics         []string
	Version           int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (c *Contract) Clone() *Contract {
	if c == nil {
		return nil
	}
	cp := *c
	cp.KeyTopics = append([]string(nil), c.KeyTopics...)
	cp.AnalysisRunId = cloneUUID(c.AnalysisRunId)
	cp.AnalysisStartedAt = cloneTime(c.AnalysisStartedAt)
	cp.AnalyzedAt = cloneTime(c.AnalyzedAt)
	cp.AnalyzedRunId = cloneUUID(c.AnalyzedRunId)
	return &cp
}

type RiskCategory string

const (
	RiskCategoryHigh   RiskCategory = "high"
	RiskCategoryMedium RiskCategory = "medium"
	RiskCategoryLow    RiskCategory = "low"
)

func (c RiskCategory) Valid() bool {
	switch c {
	case RiskCategoryHigh, RiskCategoryMedium, RiskCategoryLow:
		return true
	}
	return false
}

type Location struct {
	Section   string
	Page      int
	WordStart int
	WordEnd   int
}

type RiskAssessment struct {
	Id                 uuid.UUID
	ContractId         uuid.UUID
	RunId              uuid.UUID
	Category           RiskCategory
	Description        string
	RecommendationText string
	Location           Location
	OriginalText       string
	CreatedAt          time.Time
}

type RecommendationStatus string

const (
	RecommendationStatusPending  RecommendationStatus = "pending"
	RecommendationStatusAccepted RecommendationStatus = "accepted"
	RecommendationStatusIgnored  RecommendationStatus = "ignored"
)

type Recommendation struct {
	Id               uuid.UUID
	ContractId       uuid.UUID
	RiskAssessmentId uuid.UUID
	SuggestedText    string
	SectionRef       string
	ParagraphRef     string
	OriginalText     string
	Status           RecommendationStatus
	DecidedAt        *time.Time
	DecidedBy        *uuid.UUID
	Version          int64
	CreatedAt        time.Time
}

func (r *Recommendation) Clone() *Recommendation {
	if r == nil {
		return nil
	}
	cp := *r
	cp.DecidedAt = cloneTime(r.DecidedAt)
	cp.DecidedBy = cloneUUID(r.DecidedBy)
	return &cp
}

type ModificationType string

const (
	ModificationTrackedChanges  ModificationType = "tracked_changes"
	ModificationDirectHighlight ModificationType = "direct_highlight"
)

func (m ModificationType) Valid() bool {
	return m == ModificationTrackedChanges || m == ModificationDirectHighlight
}

// AppliedRecommendation is append-only provenance. SuggestedText and
// SectionRef are snapshots so the record outlives a re-analysis that
// discards the recommendation itself.
type AppliedRecommendation struct {
	Id               uuid.UUID
	RecommendationId uuid.UUID
	ContractId       uuid.UUID
	AppliedAt        time.Time
	ModificationType ModificationType
	HighlightColor   string
	SuggestedText    string
	SectionRef       string
	AppliedBy        uuid.UUID
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneUUID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
