package redline

import (
	"strings"
	"testing"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const agreement = `1. Definitions
"Services" means the work described in Schedule A.

2. Liability
The Supplier's liability is unlimited.
Claims must be raised in writing.

3. Termination
Either party may terminate with 30 days notice.
`

func TestApply_TrackedChangeReplacesOriginal(t *testing.T) {
	id := uuid.New()
	out, placement, err := Apply(agreement, Revision{
		RecommendationId: id,
		OriginalText:     "The Supplier's liability is unlimited.",
		SuggestedText:    "The Supplier's liability is capped at the fees paid.",
		SectionRef:       "2. Liability",
		Mode:             entity.ModificationTrackedChanges,
	})
	require.NoError(t, err)
	assert.Equal(t, PlacementReplaced, placement)

	assert.Contains(t, out, `<del data-recommendation-id="`+id.String()+`">The Supplier's liability is unlimited.</del>`)
	assert.Contains(t, out, `<ins data-recommendation-id="`+id.String()+`">The Supplier&#39;s liability is capped at the fees paid.</ins>`)
	assert.Contains(t, out, "Claims must be raised in writing.")
}

func TestApply_DirectHighlightDiscardsOriginal(t *testing.T) {
	id := uuid.New()
	out, _, err := Apply(agreement, Revision{
		RecommendationId: id,
		OriginalText:     "Either party may terminate with 30 days notice.",
		SuggestedText:    "Either party may terminate with 90 days notice.",
		Mode:             entity.ModificationDirectHighlight,
		HighlightColor:   "#FF0000",
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "30 days notice")
	assert.Contains(t, out, `<mark data-recommendation-id="`+id.String()+`" data-color="#FF0000">Either party may terminate with 90 days notice.</mark>`)
}

func TestApply_InsertsAtSectionEnd(t *testing.T) {
	out, placement, err := Apply(agreement, Revision{
		RecommendationId: uuid.New(),
		OriginalText:     "text that is not in the contract",
		SuggestedText:    "Neither party excludes liability for fraud.",
		SectionRef:       "Liability",
		Mode:             entity.ModificationTrackedChanges,
	})
	require.NoError(t, err)
	assert.Equal(t, PlacementSection, placement)

	insAt := strings.Index(out, "<ins")
	assert.Greater(t, insAt, strings.Index(out, "Claims must be raised in writing."))
	assert.Less(t, insAt, strings.Index(out, "3. Termination"))
	assert.NotContains(t, out, "<del")
}

func TestApply_AppendsWhenNothingMatches(t *testing.T) {
	out, placement, err := Apply(agreement, Revision{
		RecommendationId: uuid.New(),
		SuggestedText:    "Governing law is England and Wales.",
		SectionRef:       "Governing Law",
		Mode:             entity.ModificationDirectHighlight,
		HighlightColor:   DefaultHighlightColor,
	})
	require.NoError(t, err)
	assert.Equal(t, PlacementAppended, placement)
	assert.True(t, strings.HasPrefix(out, agreement))
	assert.True(t, strings.HasSuffix(out, "</mark>"))
}

func TestApply_RejectsBadInput(t *testing.T) {
	_, _, err := Apply(agreement, Revision{SuggestedText: "x", Mode: "strikeout"})
	assert.ErrorIs(t, err, ErrUnknownMode)

	_, _, err = Apply(agreement, Revision{SuggestedText: "  ", Mode: entity.ModificationTrackedChanges})
	assert.ErrorIs(t, err, ErrEmptyRevision)
}

func TestNormalizeColor(t *testing.T) {
	tests := []struct {
		name    string
		mode    entity.ModificationType
		color   string
		want    string
		wantErr error
	}{
		{"highlight default", entity.ModificationDirectHighlight, "", DefaultHighlightColor, nil},
		{"highlight uppercased", entity.ModificationDirectHighlight, "#a1b2c3", "#A1B2C3", nil},
		{"tracked without color", entity.ModificationTrackedChanges, "", "", nil},
		{"malformed", entity.ModificationDirectHighlight, "red", "", ErrInvalidColor},
		{"short hex", entity.ModificationTrackedChanges, "#fff", "", ErrInvalidColor},
		{"unknown mode", "bold", "#FFFFFF", "", ErrUnknownMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeColor(tt.mode, tt.color)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
