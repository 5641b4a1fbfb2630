package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Contract struct {
	Id                uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OwnerId           uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title             string     `gorm:"type:varchar(255);not null"`
	Content           string     `gorm:"type:text;not null"`
	Language          string     `gorm:"type:varchar(16);not null;default:'en'"`
	AnalysisStatus    string     `gorm:"type:varchar(20);not null;index"`
	AnalysisRunId     *uuid.UUID `gorm:"type:uuid"`
	AnalysisStartedAt *time.Time `gorm:"index"`
	AnalyzedAt        *time.Time
	AnalyzedRunId     *uuid.UUID                  `gorm:"type:uuid"`
	AnalysisError     string                      `gorm:"type:text"`
	AnalysisRetryable bool                        `gorm:"not null;default:false"`
	Summary           string                      `gorm:"type:text"`
	KeyTopics         datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	Version           int64                       `gorm:"not null;default:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Contract) TableName() string {
	return "contracts"
}

type RiskAssessment struct {
	Id                 uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContractId         uuid.UUID `gorm:"type:uuid;not null;index"`
	RunId              uuid.UUID `gorm:"type:uuid;not null"`
	Category           string    `gorm:"type:varchar(10);not null"`
	Description        string    `gorm:"type:text;not null"`
	RecommendationText string    `gorm:"type:text"`
	Section            string    `gorm:"type:varchar(255)"`
	Page               int
	WordStart          int
	WordEnd            int
	OriginalText       string `gorm:"type:text"`
	Position           int    `gorm:"not null;default:0"`
	CreatedAt          time.Time

	Contract Contract `gorm:"foreignKey:ContractId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (RiskAssessment) TableName() string {
	return "risk_assessments"
}

type Recommendation struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	ContractId       uuid.UUID `gorm:"type:uuid;not null;index"`
	RiskAssessmentId uuid.UUID `gorm:"type:uuid;not null;index"`
	SuggestedText    string    `gorm:"type:text;not null"`
	SectionRef       string    `gorm:"type:varchar(255)"`
	ParagraphRef     string    `gorm:"type:varchar(255)"`
	OriginalText     string    `gorm:"type:text"`
	Status           string    `gorm:"type:varchar(20);not null;index"`
	DecidedAt        *time.Time
	DecidedBy        *uuid.UUID `gorm:"type:uuid"`
	Position         int        `gorm:"not null;default:0"`
	Version          int64      `gorm:"not null;default:1"`
	CreatedAt        time.Time

	RiskAssessment RiskAssessment `gorm:"foreignKey:RiskAssessmentId;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

func (Recommendation) TableName() string {
	return "recommendations"
}

// AppliedRecommendation has no foreign key to recommendations: the record
// must outlive a re-analysis that deletes the recommendation.
type AppliedRecommendation struct {
	Id               uuid.UUID `gorm:"type:uuid;primaryKey"`
	RecommendationId uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	ContractId       uuid.UUID `gorm:"type:uuid;not null;index"`
	AppliedAt        time.Time `gorm:"not null"`
	ModificationType string    `gorm:"type:varchar(20);not null"`
	HighlightColor   string    `gorm:"type:varchar(7)"`
	SuggestedText    string    `gorm:"type:text"`
	SectionRef       string    `gorm:"type:varchar(255)"`
	AppliedBy        uuid.UUID `gorm:"type:uuid;not null"`
}

func (AppliedRecommendation) TableName() string {
	return "applied_recommendations"
}
