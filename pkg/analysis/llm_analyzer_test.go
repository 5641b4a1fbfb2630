package analysis

import (
	"context"
	"errors"
	"testing"

	"contract-review-be/internal/entity"
	"contract-review-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	reply string
	err   error
	seen  []llm.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	p.seen = history
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.reply, p.err
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

const report = "```json\n" + `{
  "summary": "Supply agreement with uncapped liability.",
  "key_topics": ["liability", "termination"],
  "findings": [
    {
      "category": "High",
      "description": "Liability is uncapped.",
      "recommendation": "Cap liability at fees paid.",
      "original_text": "The Supplier's liability is unlimited.",
      "location": {"section": "2. Liability", "page": 1, "word_start": 10, "word_end": 15},
      "suggestions": [{"suggested_text": "Liability is capped at the fees paid.", "section_ref": ""}]
    }
  ]
}` + "\n```"

func TestLLMAnalyzer_ParsesReport(t *testing.T) {
	provider := &scriptedProvider{reply: report}
	a := NewLLMAnalyzer(provider, 0)

	res, err := a.Analyze(context.Background(), Request{Title: "MSA", Content: "The Supplier's liability is unlimited.", Language: "de"})
	require.NoError(t, err)

	require.Len(t, res.Findings, 1)
	f := res.Findings[0]
	assert.Equal(t, entity.RiskCategoryHigh, f.Category)
	assert.Equal(t, 15, f.Location.WordEnd)
	require.Len(t, f.Suggestions, 1)
	assert.Equal(t, "2. Liability", f.Suggestions[0].SectionRef)
	assert.Equal(t, []string{"liability", "termination"}, res.KeyTopics)
	assert.Contains(t, provider.seen[0].Content, "(de)")
}

func TestLLMAnalyzer_ErrorClassification(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name     string
		ctx      context.Context
		provider *scriptedProvider
		content  string
		maxChars int
		wantErr  error
	}{
		{"transport failure", context.Background(), &scriptedProvider{err: errors.New("connection refused")}, "text", 0, ErrUnavailable},
		{"server error", context.Background(), &scriptedProvider{err: &llm.StatusError{Provider: "ollama", StatusCode: 503}}, "text", 0, ErrUnavailable},
		{"rate limited", context.Background(), &scriptedProvider{err: &llm.StatusError{Provider: "ollama", StatusCode: 429}}, "text", 0, ErrUnavailable},
		{"request rejected", context.Background(), &scriptedProvider{err: &llm.StatusError{Provider: "ollama", StatusCode: 400}}, "text", 0, ErrInvalidInput},
		{"truncated output", context.Background(), &scriptedProvider{err: llm.ErrTruncated}, "text", 0, ErrUnavailable},
		{"cancelled", cancelled, &scriptedProvider{reply: report}, "text", 0, ErrUnavailable},
		{"malformed output", context.Background(), &scriptedProvider{reply: "I think this contract is fine"}, "text", 0, ErrUnavailable},
		{"unknown category", context.Background(), &scriptedProvider{reply: `{"findings":[{"category":"critical","description":"x"}]}`}, "text", 0, ErrUnavailable},
		{"model rejects content", context.Background(), &scriptedProvider{reply: `{"rejected":"not a contract"}`}, "text", 0, ErrInvalidInput},
		{"too long", context.Background(), &scriptedProvider{reply: report}, "twelve chars", 5, ErrInvalidInput},
		{"invalid utf8", context.Background(), &scriptedProvider{reply: report}, "\xff\xfe", 0, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewLLMAnalyzer(tt.provider, tt.maxChars)
			_, err := a.Analyze(tt.ctx, Request{Content: tt.content})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
