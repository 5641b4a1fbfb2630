package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"contract-review-be/internal/entity"
	"contract-review-be/pkg/llm"
)

const systemPrompt = `You are a contract risk reviewer. Read the contract and answer with a single JSON object and nothing else:
{
  "rejected": "",
  "summary": "two or three sentences",
  "key_topics": ["topic"],
  "findings": [
    {
      "category": "high|medium|low",
      "description": "what the risk is",
      "recommendation": "what to change",
      "original_text": "exact clause text copied from the contract",
      "location": {"section": "heading of the section", "page": 1, "word_start": 0, "word_end": 0},
      "suggestions": [{"suggested_text": "replacement clause", "section_ref": "heading", "paragraph_ref": ""}]
    }
  ]
}
If the text is not a contract or cannot be reviewed, set "rejected" to a short reason and leave the other fields empty.
Write summary, descriptions and suggestions in the contract's language (%s).`

// reportTokens caps the model's answer. A report cut at the cap surfaces as
// llm.ErrTruncated.
const reportTokens = 4096

type LLMAnalyzer struct {
	provider        llm.LLMProvider
	maxContentChars int
}

var _ Analyzer = &LLMAnalyzer{}

func NewLLMAnalyzer(provider llm.LLMProvider, maxContentChars int) *LLMAnalyzer {
	return &LLMAnalyzer{provider: provider, maxContentChars: maxContentChars}
}

type llmLocation struct {
	Section   string `json:"section"`
	Page      int    `json:"page"`
	WordStart int    `json:"word_start"`
	WordEnd   int    `json:"word_end"`
}

type llmSuggestion struct {
	SuggestedText string `json:"suggested_text"`
	SectionRef    string `json:"section_ref"`
	ParagraphRef  string `json:"paragraph_ref"`
}

type llmFinding struct {
	Category       string          `json:"category"`
	Description    string          `json:"description"`
	Recommendation string          `json:"recommendation"`
	OriginalText   string          `json:"original_text"`
	Location       llmLocation     `json:"location"`
	Suggestions    []llmSuggestion `json:"suggestions"`
}

type llmReport struct {
	Rejected  string       `json:"rejected"`
	Summary   string       `json:"summary"`
	KeyTopics []string     `json:"key_topics"`
	Findings  []llmFinding `json:"findings"`
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: empty content", ErrInvalidInput)
	}
	if !utf8.ValidString(req.Content) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrInvalidInput)
	}
	if a.maxContentChars > 0 && utf8.RuneCountInString(req.Content) > a.maxContentChars {
		return nil, fmt.Errorf("%w: content exceeds %d characters", ErrInvalidInput, a.maxContentChars)
	}

	language := req.Language
	if language == "" {
		language = "en"
	}

	history := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(systemPrompt, language)},
		{Role: "user", Content: "Title: " + req.Title + "\n\n" + req.Content},
	}

	raw, err := a.provider.Chat(ctx, history,
		llm.WithJSON(),
		llm.WithTemperature(0.1),
		llm.WithMaxTokens(reportTokens),
		llm.WithContextSize(contextWindow(req.Content)),
	)
	if err != nil {
		return nil, classify(ctx, err)
	}

	return ParseReport(raw)
}

// contextWindow sizes the prompt window from the content, assuming roughly
// three characters per token plus room for the prompt and the report.
func contextWindow(content string) int {
	tokens := utf8.RuneCountInString(content)/3 + 4096
	if tokens < 8192 {
		return 8192
	}
	return tokens
}

func classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
	}
	var statusErr *llm.StatusError
	if errors.As(err, &statusErr) && statusErr.ClientFault() {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// ParseReport decodes the model output. Output that is not the expected JSON
// is treated as an engine failure, not as a property of the contract.
func ParseReport(raw string) (*Result, error) {
	raw = stripCodeFence(raw)

	var report llmReport
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		return nil, fmt.Errorf("%w: malformed analyzer output: %v", ErrUnavailable, err)
	}
	if report.Rejected != "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, report.Rejected)
	}

	result := &Result{
		Summary:   strings.TrimSpace(report.Summary),
		KeyTopics: report.KeyTopics,
	}
	for i, f := range report.Findings {
		category := entity.RiskCategory(strings.ToLower(strings.TrimSpace(f.Category)))
		if !category.Valid() {
			return nil, fmt.Errorf("%w: finding %d has unknown category %q", ErrUnavailable, i, f.Category)
		}
		if strings.TrimSpace(f.Description) == "" {
			return nil, fmt.Errorf("%w: finding %d has no description", ErrUnavailable, i)
		}

		finding := Finding{
			Category:       category,
			Description:    strings.TrimSpace(f.Description),
			Recommendation: strings.TrimSpace(f.Recommendation),
			OriginalText:   f.OriginalText,
			Location: entity.Location{
				Section:   f.Location.Section,
				Page:      f.Location.Page,
				WordStart: f.Location.WordStart,
				WordEnd:   f.Location.WordEnd,
			},
		}
		for _, s := range f.Suggestions {
			if strings.TrimSpace(s.SuggestedText) == "" {
				continue
			}
			sectionRef := s.SectionRef
			if sectionRef == "" {
				sectionRef = f.Location.Section
			}
			finding.Suggestions = append(finding.Suggestions, Suggestion{
				SuggestedText: s.SuggestedText,
				SectionRef:    sectionRef,
				ParagraphRef:  s.ParagraphRef,
			})
		}
		result.Findings = append(result.Findings, finding)
	}
	return result, nil
}

func stripCodeFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "```") {
		return raw
	}
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	return strings.TrimSpace(raw)
}
