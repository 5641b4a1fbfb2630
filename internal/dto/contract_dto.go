package dto

import (
	"time"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

type CreateContractRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	Content  string `json:"content" validate:"required"`
	Language string `json:"language" validate:"omitempty,bcp47_language_tag"`
}

type UpdateContractContentRequest struct {
	Content string `json:"content" validate:"required"`
}

type ApplyRecommendationRequest struct {
	ModificationType string `json:"modification_type" validate:"required,oneof=tracked_changes direct_highlight"`
	HighlightColor   string `json:"highlight_color" validate:"omitempty,hexcolor"`
}

type LocationResponse struct {
	Section   string `json:"section"`
	Page      int    `json:"page"`
	WordStart int    `json:"word_start"`
	WordEnd   int    `json:"word_end"`
}

type RiskAssessmentResponse struct {
	Id             uuid.UUID        `json:"id"`
	Category       string           `json:"category"`
	Description    string           `json:"description"`
	Recommendation string           `json:"recommendation"`
	Location       LocationResponse `json:"location"`
	OriginalText   string           `json:"original_text"`
}

type RecommendationResponse struct {
	Id               uuid.UUID  `json:"id"`
	RiskAssessmentId uuid.UUID  `json:"risk_assessment_id"`
	SuggestedText    string     `json:"suggested_text"`
	SectionRef       string     `json:"section_ref"`
	ParagraphRef     string     `json:"paragraph_ref"`
	OriginalText     string     `json:"original_text"`
	Status           string     `json:"status"`
	DecidedAt        *time.Time `json:"decided_at"`
}

type AppliedRecommendationResponse struct {
	Id               uuid.UUID `json:"id"`
	RecommendationId uuid.UUID `json:"recommendation_id"`
	AppliedAt        time.Time `json:"applied_at"`
	ModificationType string    `json:"modification_type"`
	HighlightColor   string    `json:"highlight_color"`
	SuggestedText    string    `json:"suggested_text"`
	SectionRef       string    `json:"section_ref"`
	AppliedBy        uuid.UUID `json:"applied_by"`
}

type ContractResponse struct {
	Id                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	Content           string     `json:"content"`
	Language          string     `json:"language"`
	AnalysisStatus    string     `json:"analysis_status"`
	AnalysisError     string     `json:"analysis_error,omitempty"`
	AnalysisRetryable bool       `json:"analysis_retryable"`
	AnalyzedAt        *time.Time `json:"analyzed_at"`
	Summary           string     `json:"summary"`
	KeyTopics         []string   `json:"key_topics"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type ContractDetailResponse struct {
	ContractResponse
	RiskAssessments []RiskAssessmentResponse        `json:"risk_assessments"`
	Recommendations []RecommendationResponse        `json:"recommendations"`
	Applied         []AppliedRecommendationResponse `json:"applied_recommendations"`
}

type AnalysisQueuedResponse struct {
	ContractId uuid.UUID `json:"contract_id"`
	Status     string    `json:"status"`
}

func NewContractResponse(c *entity.Contract) ContractResponse {
	topics := c.KeyTopics
	if topics == nil {
		topics = []string{}
	}
	return ContractResponse{
		Id:                c.Id,
		Title:             c.Title,
		Content:           c.Content,
		Language:          c.Language,
		AnalysisStatus:    string(c.AnalysisStatus),
		AnalysisError:     c.AnalysisError,
		AnalysisRetryable: c.AnalysisRetryable,
		AnalyzedAt:        c.AnalyzedAt,
		Summary:           c.Summary,
		KeyTopics:         topics,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func NewRiskAssessmentResponses(in []*entity.RiskAssessment) []RiskAssessmentResponse {
	out := make([]RiskAssessmentResponse, 0, len(in))
	for _, a := range in {
		out = append(out, RiskAssessmentResponse{
			Id:             a.Id,
			Category:       string(a.Category),
			Description:    a.Description,
			Recommendation: a.RecommendationText,
			Location: LocationResponse{
				Section:   a.Location.Section,
				Page:      a.Location.Page,
				WordStart: a.Location.WordStart,
				WordEnd:   a.Location.WordEnd,
			},
			OriginalText: a.OriginalText,
		})
	}
	return out
}

func NewRecommendationResponse(r *entity.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		Id:               r.Id,
		RiskAssessmentId: r.RiskAssessmentId,
		SuggestedText:    r.SuggestedText,
		SectionRef:       r.SectionRef,
		ParagraphRef:     r.ParagraphRef,
		OriginalText:     r.OriginalText,
		Status:           string(r.Status),
		DecidedAt:        r.DecidedAt,
	}
}

func NewRecommendationResponses(in []*entity.Recommendation) []RecommendationResponse {
	out := make([]RecommendationResponse, 0, len(in))
	for _, r := range in {
		out = append(out, NewRecommendationResponse(r))
	}
	return out
}

func NewAppliedRecommendationResponse(a *entity.AppliedRecommendation) AppliedRecommendationResponse {
	return AppliedRecommendationResponse{
		Id:               a.Id,
		RecommendationId: a.RecommendationId,
		AppliedAt:        a.AppliedAt,
		ModificationType: string(a.ModificationType),
		HighlightColor:   a.HighlightColor,
		SuggestedText:    a.SuggestedText,
		SectionRef:       a.SectionRef,
		AppliedBy:        a.AppliedBy,
	}
}

func NewAppliedRecommendationResponses(in []*entity.AppliedRecommendation) []AppliedRecommendationResponse {
	out := make([]AppliedRecommendationResponse, 0, len(in))
	for _, a := range in {
		out = append(out, NewAppliedRecommendationResponse(a))
	}
	return out
}
