// Package redline rewrites contract content to materialize an accepted
// recommendation, either as a tracked change that keeps the original text or
// as a highlighted replacement.
package redline

import (
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"

	"contract-review-be/internal/entity"

	"github.com/google/uuid"
)

// DefaultHighlightColor is used for direct highlights when no color is given.
const DefaultHighlightColor = "#FFEB3B"

var (
	ErrUnknownMode   = errors.New("unknown modification type")
	ErrInvalidColor  = errors.New("highlight color must be a #RRGGBB hex value")
	ErrEmptyRevision = errors.New("suggested text is empty")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Heading lines: markdown headings, "Section 4", "Article IV", "Clause 2.1",
// or numbered headings like "4." / "4.2)".
var headingPattern = regexp.MustCompile(`^\s*(#{1,6}\s+|(?i:section|article|clause)\s+[\w.]+|\d+(\.\d+)*[.)]\s+)`)

// Placement reports where the revision ended up.
type Placement string

const (
	PlacementReplaced Placement = "replaced"
	PlacementSection  Placement = "section_end"
	PlacementAppended Placement = "appended"
)

type Revision struct {
	RecommendationId uuid.UUID
	OriginalText     string
	SuggestedText    string
	SectionRef       string
	Mode             entity.ModificationType
	HighlightColor   string
}

// NormalizeColor validates a highlight color for the given mode and returns
// the value to record. Tracked changes accept an empty color.
func NormalizeColor(mode entity.ModificationType, color string) (string, error) {
	color = strings.TrimSpace(color)
	if !mode.Valid() {
		return "", ErrUnknownMode
	}
	if color == "" {
		if mode == entity.ModificationDirectHighlight {
			return DefaultHighlightColor, nil
		}
		return "", nil
	}
	if !colorPattern.MatchString(color) {
		return "", ErrInvalidColor
	}
	return strings.ToUpper(color), nil
}

// Markup renders the tagged fragment for r. original is the text being
// replaced, empty when the revision is inserted rather than substituted.
func Markup(r Revision, original string) string {
	id := r.RecommendationId.String()
	suggested := html.EscapeString(r.SuggestedText)

	if r.Mode == entity.ModificationDirectHighlight {
		return fmt.Sprintf(`<mark data-recommendation-id="%s" data-color="%s">%s</mark>`, id, r.HighlightColor, suggested)
	}

	var b strings.Builder
	if original != "" {
		fmt.Fprintf(&b, `<del data-recommendation-id="%s">%s</del>`, id, original)
	}
	fmt.Fprintf(&b, `<ins data-recommendation-id="%s">%s</ins>`, id, suggested)
	return b.String()
}

// Apply returns content with r materialized. The first occurrence of the
// original text is replaced; failing that the fragment goes to the end of the
// referenced section, and failing that to the end of the document.
func Apply(content string, r Revision) (string, Placement, error) {
	if !r.Mode.Valid() {
		return "", "", ErrUnknownMode
	}
	if strings.TrimSpace(r.SuggestedText) == "" {
		return "", "", ErrEmptyRevision
	}

	if r.OriginalText != "" {
		if idx := strings.Index(content, r.OriginalText); idx >= 0 {
			out := content[:idx] + Markup(r, r.OriginalText) + content[idx+len(r.OriginalText):]
			return out, PlacementReplaced, nil
		}
	}

	fragment := Markup(r, "")

	if end, ok := sectionEnd(content, r.SectionRef); ok {
		out := content[:end] + "\n" + fragment + content[end:]
		return out, PlacementSection, nil
	}

	if content == "" || strings.HasSuffix(content, "\n") {
		return content + fragment, PlacementAppended, nil
	}
	return content + "\n" + fragment, PlacementAppended, nil
}

// sectionEnd finds the byte offset just after the last non-blank line of the
// section whose heading mentions ref.
func sectionEnd(content, ref string) (int, bool) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return 0, false
	}

	lines := strings.SplitAfter(content, "\n")
	offset := 0
	start := -1
	end := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		isHeading := headingPattern.MatchString(line)

		if start < 0 {
			if isHeading && strings.Contains(strings.ToLower(trimmed), ref) {
				start = offset
				end = offset + len(strings.TrimRight(line, "\r\n"))
			}
		} else {
			if isHeading {
				break
			}
			if trimmed != "" {
				end = offset + len(strings.TrimRight(line, "\r\n"))
			}
		}
		offset += len(line)
	}
	return end, start >= 0
}
