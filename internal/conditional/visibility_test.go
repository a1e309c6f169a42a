package conditional

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"audite/internal/model"
)

func ids(qs []model.Question) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.ID)
	}
	return out
}

func TestResolveVisible(t *testing.T) {
	form := irrigationForm()

	tests := []struct {
		name    string
		answers model.AnswerMap
		want    []string
	}{
		{"matching parent answer", model.AnswerMap{"Q1": model.Text("gravity")}, []string{"Q1", "Q2"}},
		{"non-matching parent answer", model.AnswerMap{"Q1": model.Text("drip")}, []string{"Q1"}},
		{"no answers", model.AnswerMap{}, []string{"Q1"}},
		{"nil answers", nil, []string{"Q1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ResolveVisible(form, tt.answers)))
		})
	}
}

func TestResolveVisibleOrdersByDisplayOrder(t *testing.T) {
	form := []model.Question{
		{ID: "C", Order: 3},
		{ID: "A", Order: 1},
		{ID: "B2", Order: 2},
		{ID: "B1", Order: 2},
	}
	input := ids(form)

	assert.Equal(t, []string{"A", "B2", "B1", "C"}, ids(ResolveVisible(form, nil)))
	assert.Equal(t, input, ids(form), "input must not be reordered")
}

func TestResolveVisibleCascadesHiddenParents(t *testing.T) {
	form := []model.Question{
		{ID: "Q1", Order: 1},
		{ID: "Q2", Order: 2, ParentID: "Q1", Condition: cond(model.OperatorEquals, "yes")},
		{ID: "Q3", Order: 3, ParentID: "Q2", Condition: cond(model.OperatorNotEquals, "none")},
	}

	// A stale answer for Q2 survives from before Q1 changed
	answers := model.AnswerMap{"Q1": model.Text("no"), "Q2": model.Text("pumps")}
	assert.Equal(t, []string{"Q1"}, ids(ResolveVisible(form, answers)))

	answers["Q1"] = model.Text("yes")
	assert.Equal(t, []string{"Q1", "Q2", "Q3"}, ids(ResolveVisible(form, answers)))
}

func TestResolveVisibleIsIdempotent(t *testing.T) {
	form := irrigationForm()
	answers := model.AnswerMap{"Q1": model.Text("gravity")}

	first := ResolveVisible(form, answers)
	second := ResolveVisible(form, answers)
	assert.Equal(t, first, second)
}

func TestResolveVisibleParentsPrecedeDependents(t *testing.T) {
	form := []model.Question{
		{ID: "Q3", Order: 3, ParentID: "Q2"},
		{ID: "Q2", Order: 2, ParentID: "Q1"},
		{ID: "Q1", Order: 1},
		{ID: "Q4", Order: 4, ParentID: "Q1", Condition: cond(model.OperatorIncludes, "lights")},
	}
	answers := model.AnswerMap{
		"Q1": model.List("lights", "pumps"),
		"Q2": model.Text("x"),
	}

	visible := ResolveVisible(form, answers)
	pos := make(map[string]int)
	for i, q := range visible {
		pos[q.ID] = i
	}
	for _, q := range visible {
		if q.IsRoot() {
			continue
		}
		parentPos, ok := pos[q.ParentID]
		assert.True(t, ok, "parent of %s must be visible", q.ID)
		assert.Less(t, parentPos, pos[q.ID])
	}
	assert.Equal(t, []string{"Q1", "Q2", "Q3", "Q4"}, ids(visible))
}

func TestRoots(t *testing.T) {
	form := append(irrigationForm(), model.Question{ID: "Q0", Order: 0})
	assert.Equal(t, []string{"Q0", "Q1"}, ids(Roots(form)))
}
