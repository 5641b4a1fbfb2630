// Package analysis defines the contract analysis collaborator: content goes
// in, risk findings and a summary come out.
package analysis

import (
	"context"
	"errors"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

var (
	// ErrUnavailable covers anything the caller may retry: transport
	// failures, timeouts, cancellation and unusable analyzer output.
	ErrUnavailable = errors.New("analysis engine unavailable")
	// ErrInvalidInput means the content itself cannot be analyzed.
	ErrInvalidInput = errors.New("contract content cannot be analyzed")
)

type Request struct {
	ContractId uuid.UUID
	Title      string
	Content    string
	Language   string
}

type Suggestion struct {
	SuggestedText string
	SectionRef    string
	ParagraphRef  string
}

type Finding struct {
	Category       entity.RiskCategory
	Description    string
	Recommendation string
	Location       entity.Location
	OriginalText   string
	Suggestions    []Suggestion
}

type Result struct {
	Findings  []Finding
	Summary   string
	KeyTopics []string
}

type Analyzer interface {
	Analyze(ctx context.Context, req Request) (*Result, error)
}
