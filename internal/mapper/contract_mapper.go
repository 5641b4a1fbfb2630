package mapper

import (
	"contract-review-be/internal/entity"
	"contract-review-be/internal/model"
)

type ContractMapper struct{}

func NewContractMapper() *ContractMapper {
	return &ContractMapper{}
}

func (m *ContractMapper) ToEntity(c *model.Contract) *entity.Contract {
	if c == nil {
		return nil
	}
	return &entity.Contract{
		Id:                c.Id,
		OwnerId:           c.OwnerId,
		Title:             c.Title,
		Content:           c.Content,
		Language:          c.Language,
		AnalysisStatus:    entity.AnalysisStatus(c.AnalysisStatus),
		AnalysisRunId:     c.AnalysisRunId,
		AnalysisStartedAt: c.AnalysisStartedAt,
		AnalyzedAt:        c.AnalyzedAt,
		AnalyzedRunId:     c.AnalyzedRunId,
		AnalysisError:     c.AnalysisError,
		AnalysisRetryable: c.AnalysisRetryable,
		Summary:           c.Summary,
		KeyTopics:         []string(c.KeyTopics),
		Version:           c.Version,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (m *ContractMapper) ToModel(c *entity.Contract) *model.Contract {
	if c == nil {
		return nil
	}
	return &model.Contract{
		Id:                c.Id,
		OwnerId:           c.OwnerId,
		Title:             c.Title,
		Content:           c.Content,
		Language:          c.Language,
		AnalysisStatus:    string(c.AnalysisStatus),
		AnalysisRunId:     c.AnalysisRunId,
		AnalysisStartedAt: c.AnalysisStartedAt,
		AnalyzedAt:        c.AnalyzedAt,
		AnalyzedRunId:     c.AnalyzedRunId,
		AnalysisError:     c.AnalysisError,
		AnalysisRetryable: c.AnalysisRetryable,
		Summary:           c.Summary,
		KeyTopics:         c.KeyTopics,
		Version:           c.Version,
		CreatedAt:         c.CreatedAt,
		UpdatedAt:         c.UpdatedAt,
	}
}

func (m *ContractMapper) ToEntities(contracts []*model.Contract) []*entity.Contract {
	entities := make([]*entity.Contract, len(contracts))
	for i, c := range contracts {
		entities[i] = m.ToEntity(c)
	}
	return entities
}

func (m *ContractMapper) AssessmentToEntity(a *model.RiskAssessment) *entity.RiskAssessment {
	if a == nil {
		return nil
	}
	return &entity.RiskAssessment{
		Id:                 a.Id,
		ContractId:         a.ContractId,
		RunId:              a.RunId,
		Category:           entity.RiskCategory(a.Category),
		Description:        a.Description,
		RecommendationText: a.RecommendationText,
		Location: entity.Location{
			Section:   a.Section,
			Page:      a.Page,
			WordStart: a.WordStart,
			WordEnd:   a.WordEnd,
		},
		OriginalText: a.OriginalText,
		CreatedAt:    a.CreatedAt,
	}
}

func (m *ContractMapper) AssessmentToModel(a *entity.RiskAssessment, position int) *model.RiskAssessment {
	return &model.RiskAssessment{
		Id:                 a.Id,
		ContractId:         a.ContractId,
		RunId:              a.RunId,
		Category:           string(a.Category),
		Description:        a.Description,
		RecommendationText: a.RecommendationText,
		Section:            a.Location.Section,
		Page:               a.Location.Page,
		WordStart:          a.Location.WordStart,
		WordEnd:            a.Location.WordEnd,
		OriginalText:       a.OriginalText,
		Position:           position,
		CreatedAt:          a.CreatedAt,
	}
}

func (m *ContractMapper) RecommendationToEntity(r *model.Recommendation) *entity.Recommendation {
	if r == nil {
		return nil
	}
	return &entity.Recommendation{
		Id:               r.Id,
		ContractId:       r.ContractId,
		RiskAssessmentId: r.RiskAssessmentId,
		SuggestedText:    r.SuggestedText,
		SectionRef:       r.SectionRef,
		ParagraphRef:     r.ParagraphRef,
		OriginalText:     r.OriginalText,
		Status:           entity.RecommendationStatus(r.Status),
		DecidedAt:        r.DecidedAt,
		DecidedBy:        r.DecidedBy,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
	}
}

func (m *ContractMapper) RecommendationToModel(r *entity.Recommendation, position int) *model.Recommendation {
	return &model.Recommendation{
		Id:               r.Id,
		ContractId:       r.ContractId,
		RiskAssessmentId: r.RiskAssessmentId,
		SuggestedText:    r.SuggestedText,
		SectionRef:       r.SectionRef,
		ParagraphRef:     r.ParagraphRef,
		OriginalText:     r.OriginalText,
		Status:           string(r.Status),
		DecidedAt:        r.DecidedAt,
		DecidedBy:        r.DecidedBy,
		Position:         position,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt,
	}
}

func (m *ContractMapper) AppliedToEntity(a *model.AppliedRecommendation) *entity.AppliedRecommendation {
	if a == nil {
		return nil
	}
	return &entity.AppliedRecommendation{
		Id:               a.Id,
		RecommendationId: a.RecommendationId,
		ContractId:       a.ContractId,
		AppliedAt:        a.AppliedAt,
		ModificationType: entity.ModificationType(a.ModificationType),
		HighlightColor:   a.HighlightColor,
		SuggestedText:    a.SuggestedText,
		SectionRef:       a.SectionRef,
		AppliedBy:        a.AppliedBy,
	}
}

func (m *ContractMapper) AppliedToModel(a *entity.AppliedRecommendation) *model.AppliedRecommendation {
	return &model.AppliedRecommendation{
		Id:               a.Id,
		RecommendationId: a.RecommendationId,
		ContractId:       a.ContractId,
		AppliedAt:        a.AppliedAt,
		ModificationType: string(a.ModificationType),
		HighlightColor:   a.HighlightColor,
		SuggestedText:    a.SuggestedText,
		SectionRef:       a.SectionRef,
		AppliedBy:        a.AppliedBy,
	}
}
