package suggestion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/model"
)

func TestPlanOrdersByPriorityStably(t *testing.T) {
	in := []model.Suggestion{
		{ID: "a", Priority: model.PriorityLow, ImplementationTime: "1-2 months"},
		{ID: "b", Priority: model.PriorityHigh, ImplementationTime: "1-2 months"},
		{ID: "c", Priority: model.PriorityMedium, ImplementationTime: "1-2 months"},
		{ID: "d", Priority: model.PriorityHigh, ImplementationTime: "1-2 months"},
	}

	plan := Plan(in)
	assert.Equal(t, []string{"b", "d", "c", "a"}, suggestionIDs(plan.Phases.Immediate))
	assert.Equal(t, "a", in[0].ID, "input must not be reordered")
}

func TestPlanPhases(t *testing.T) {
	tests := []struct {
		time  string
		phase string
	}{
		{"1-2 months", "immediate"},
		{"1-3 months", "immediate"},
		{"2-4 months", "short"},
		{"3-6 months", "short"},
		{"2-6 months", "short"},
		{"4-8 months", "medium"},
		{"6-12 months", "medium"},
		{"1-2 years", "medium"},
		{"", "medium"},
		{"when budget allows", "medium"},
	}

	for _, tt := range tests {
		t.Run(tt.time, func(t *testing.T) {
			plan := Plan([]model.Suggestion{{ID: "x", Priority: model.PriorityHigh, ImplementationTime: tt.time}})
			got := map[string]int{
				"immediate": len(plan.Phases.Immediate),
				"short":     len(plan.Phases.ShortTerm),
				"medium":    len(plan.Phases.MediumTerm),
			}
			assert.Equal(t, 1, got[tt.phase])
		})
	}
}

func TestPlanTotals(t *testing.T) {
	answers := model.AnswerMap{
		"Q1": model.Text("maquinaria pesada"),
		"Q2": model.Number(5000),
	}
	plan := Plan(MapSuggestions(model.SectorIndustrial, answers, nil))

	assert.Equal(t, 3, plan.Totals.Suggestions)
	assert.Equal(t, 2, plan.Totals.ByPriority[model.PriorityHigh])
	assert.Equal(t, 1, plan.Totals.ByPriority[model.PriorityMedium])
	assert.Equal(t, 0, plan.Totals.ByPriority[model.PriorityLow])
	assert.Equal(t, 0, plan.Totals.Immediate)
	assert.Equal(t, 1, plan.Totals.ShortTerm)
	assert.Equal(t, 2, plan.Totals.MediumTerm)
	assert.Equal(t, 12, plan.Totals.TimelineMths)
	assert.Equal(t, []string{"industrial_02", "industrial_03"}, suggestionIDs(plan.Phases.MediumTerm))
}

func TestPlanEmpty(t *testing.T) {
	plan := Plan(nil)
	assert.NotNil(t, plan.Phases.Immediate)
	assert.NotNil(t, plan.Phases.ShortTerm)
	assert.NotNil(t, plan.Phases.MediumTerm)
	assert.Zero(t, plan.Totals.Suggestions)
	assert.Zero(t, plan.Totals.TimelineMths)
}

func TestUpperMonths(t *testing.T) {
	n, ok := UpperMonths("3-6 months")
	assert.True(t, ok)
	assert.Equal(t, 6, n)

	n, ok = UpperMonths("1-2 years")
	assert.True(t, ok)
	assert.Equal(t, 24, n)

	_, ok = UpperMonths("soon")
	assert.False(t, ok)
}

func TestUpperMonthsUnits(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"6-12 weeks", 3},
		{"2 semanas", 1},
		{"10-45 days", 2},
		{"30 días", 1},
		{"1-2 años", 24},
		{"3-6 meses", 6},
		{"4-8 Months", 8},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := UpperMonths(tt.in)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlanPhasesWithWeeksAndYears(t *testing.T) {
	plan := Plan([]model.Suggestion{
		{ID: "weeks", Priority: model.PriorityHigh, ImplementationTime: "6-12 weeks"},
		{ID: "years", Priority: model.PriorityHigh, ImplementationTime: "1-2 años"},
	})
	require.Len(t, plan.Phases.Immediate, 1)
	assert.Equal(t, "weeks", plan.Phases.Immediate[0].ID)
	require.Len(t, plan.Phases.MediumTerm, 1)
	assert.Equal(t, "years", plan.Phases.MediumTerm[0].ID)
}
