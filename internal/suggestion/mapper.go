package suggestion

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"audite/internal/conditional"
	"audite/internal/model"
)

// ErrUnrecognizedSector is returned under the fail-closed policy when a
// category has no sector catalog of its own
var ErrUnrecognizedSector = errors.New("unrecognized sector")

const (
	optionCategory = "Answer-specific"
	optionTime     = "1-3 months"
)

// Mapper turns an answer set into suggestions from the rule catalog and
// from the suggestion text attached to chosen options
type Mapper struct {
	Catalog *Catalog
	Policy  model.Policy
	Logger  *slog.Logger
}

// NewMapper creates a mapper over catalog; a nil catalog uses the built-in one
func NewMapper(catalog *Catalog, policy model.Policy, logger *slog.Logger) *Mapper {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Mapper{Catalog: catalog, Policy: policy, Logger: logger}
}

// MapSuggestions maps answers with the built-in catalog, falling back to the
// generic rules for unrecognized sectors
func MapSuggestions(sector model.Sector, answers model.AnswerMap, questions []model.Question) []model.Suggestion {
	out, _ := (&Mapper{Catalog: DefaultCatalog()}).Map(sector, answers, questions)
	return out
}

// Map returns the suggestions for one session. Rule suggestions come first in
// catalog order, then per-option suggestions in question display order.
// Identifiers are deterministic and duplicates collapse to the first record.
func (m *Mapper) Map(sector model.Sector, answers model.AnswerMap, questions []model.Question) ([]model.Suggestion, error) {
	catalog := m.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	rules, own := catalog.Rules(sector)
	if !own {
		if m.Policy == model.PolicyFailClosed {
			return nil, fmt.Errorf("%w: %q", ErrUnrecognizedSector, sector)
		}
		if m.Logger != nil {
			m.Logger.Warn("no catalog for sector, using generic rules", slog.String("sector", string(sector)))
		}
	}

	out := make([]model.Suggestion, 0, len(rules))
	seen := make(map[string]bool)
	add := func(s model.Suggestion) {
		if seen[s.ID] {
			return
		}
		seen[s.ID] = true
		out = append(out, s)
	}

	for i := range rules {
		if rules[i].Fires(answers) {
			add(rules[i].Suggestion())
		}
	}
	for _, s := range OptionSuggestions(answers, questions) {
		add(s)
	}
	return out, nil
}

// OptionSuggestions collects the suggestion text attached to the options each
// answered question selected, keyed "questionId-optionKey"
func OptionSuggestions(answers model.AnswerMap, questions []model.Question) []model.Suggestion {
	var out []model.Suggestion
	for _, q := range conditional.SortByOrder(questions) {
		answer, ok := answers[q.ID]
		if !ok || len(q.Options) == 0 {
			continue
		}
		selected := answer.Selected()
		for _, opt := range q.Options {
			if strings.TrimSpace(opt.Suggestion) == "" || !chosen(selected, opt.Value) {
				continue
			}
			out = append(out, model.Suggestion{
				ID:                 fmt.Sprintf("%s-%s", q.ID, opt.Key()),
				Source:             model.SourceOption,
				Category:           optionCategory,
				Title:              q.Prompt,
				Description:        opt.Suggestion,
				ImplementationTime: optionTime,
				Priority:           model.PriorityMedium,
				QuestionID:         q.ID,
				OptionLabel:        opt.Label,
			})
		}
	}
	return out
}

func chosen(selected []string, value string) bool {
	for _, s := range selected {
		if strings.EqualFold(strings.TrimSpace(s), value) {
			return true
		}
	}
	return false
}
