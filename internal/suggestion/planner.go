package suggestion

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"audite/internal/model"
)

// Phase limits in months, inclusive
const (
	immediateMonths = 3
	shortTermMonths = 6
)

var monthsPattern = regexp.MustCompile(`\d+`)

// Plan sorts suggestions by priority, keeping catalog order within a tier,
// and buckets them by the upper bound of their implementation time
func Plan(suggestions []model.Suggestion) model.Plan {
	ordered := make([]model.Suggestion, len(suggestions))
	copy(ordered, suggestions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority.Rank() > ordered[j].Priority.Rank()
	})

	plan := model.Plan{
		Phases: model.Phases{
			Immediate:  []model.Suggestion{},
			ShortTerm:  []model.Suggestion{},
			MediumTerm: []model.Suggestion{},
		},
		Totals: model.PlanTotals{
			Suggestions: len(ordered),
			ByPriority: map[model.Priority]int{
				model.PriorityHigh:   0,
				model.PriorityMedium: 0,
				model.PriorityLow:    0,
			},
		},
	}

	for _, s := range ordered {
		plan.Totals.ByPriority[s.Priority]++

		months, ok := UpperMonths(s.ImplementationTime)
		if ok && months > plan.Totals.TimelineMths {
			plan.Totals.TimelineMths = months
		}

		switch {
		case ok && months <= immediateMonths:
			plan.Phases.Immediate = append(plan.Phases.Immediate, s)
		case ok && months <= shortTermMonths:
			plan.Phases.ShortTerm = append(plan.Phases.ShortTerm, s)
		default:
			plan.Phases.MediumTerm = append(plan.Phases.MediumTerm, s)
		}
	}

	plan.Totals.Immediate = len(plan.Phases.Immediate)
	plan.Totals.ShortTerm = len(plan.Phases.ShortTerm)
	plan.Totals.MediumTerm = len(plan.Phases.MediumTerm)
	return plan
}

// UpperMonths returns the upper bound in months of a range such as
// "3-6 months", "6-12 weeks" or "1-2 años". It reports false when no number
// is present.
func UpperMonths(s string) (int, bool) {
	nums := monthsPattern.FindAllString(s, -1)
	if len(nums) == 0 {
		return 0, false
	}

	upper := 0
	for _, raw := range nums {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		if n > upper {
			upper = n
		}
	}
	return toMonths(upper, normalize(s)), true
}

// toMonths converts n units to whole months, rounding up. Text without a
// known unit counts as months.
func toMonths(n int, text string) int {
	words := strings.FieldsFunc(text, func(r rune) bool { return !unicode.IsLetter(r) })
	for _, w := range words {
		switch {
		case strings.HasPrefix(w, "week"), strings.HasPrefix(w, "semana"):
			return (n*7 + 29) / 30
		case strings.HasPrefix(w, "day"), w == "dia", w == "dias":
			return (n + 29) / 30
		case strings.HasPrefix(w, "year"), w == "ano", w == "anos":
			return n * 12
		case strings.HasPrefix(w, "month"), strings.HasPrefix(w, "mes"):
			return n
		}
	}
	return n
}
