package scoring

import (
	"strings"

	"github.com/shrimpsizemoose/semla/internal/models"
)

const FlagAllMaximum = "All maximum ratings"

// Flagger marks evaluations worth a second look. It never rejects anything.
type Flagger struct {
	words []string
}

func NewFlagger(concerningWords []string) *Flagger {
	f := &Flagger{}
	for _, w := range concerningWords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			f.words = append(f.words, w)
		}
	}
	return f
}

// Reasons lists why e is flagged, or nil.
func (f *Flagger) Reasons(e models.Evaluation) []string {
	var reasons []string

	allMax := true
	for _, c := range models.Rubric.Criteria {
		if c.ID == models.CriterionParticipation {
			continue
		}
		if e.Ratings.Get(c.ID) != c.MaxScale {
			allMax = false
			break
		}
	}
	if allMax {
		reasons = append(reasons, FlagAllMaximum)
	}

	if matched := f.Matches(e.OverallFeedback); len(matched) > 0 {
		reasons = append(reasons, "Concerning language: "+strings.Join(matched, ", "))
	}
	return reasons
}

// Matches returns the concerning words found in text, case-insensitively.
func (f *Flagger) Matches(text string) []string {
	text = strings.ToLower(text)
	var matched []string
	for _, w := range f.words {
		if strings.Contains(text, w) {
			matched = append(matched, w)
		}
	}
	return matched
}
