package conditional

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/model"
)

func irrigationForm() []model.Question {
	return []model.Question{
		{
			ID: "Q1", Order: 1, Kind: model.KindSingleChoice, Required: true, Active: true,
			Options: []model.Option{{Value: "gravity", Label: "Gravity"}, {Value: "drip", Label: "Drip"}},
		},
		{
			ID: "Q2", Order: 2, Kind: model.KindText, Required: true, Active: true,
			ParentID: "Q1", Condition: cond(model.OperatorEquals, "gravity"),
		},
	}
}

func codes(issues []model.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Code)
	}
	return out
}

func TestValidateRootIsTriviallyValid(t *testing.T) {
	report := Validate(model.Question{ID: "Q9", Order: 9}, irrigationForm())
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidateWellFormedDependency(t *testing.T) {
	form := irrigationForm()
	report := Validate(form[1], form)
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
	assert.Empty(t, report.Warnings)
}

func TestValidateDanglingParent(t *testing.T) {
	q := model.Question{ID: "Q3", Order: 3, ParentID: "missing", Condition: cond(model.OperatorEquals, "x")}
	report := Validate(q, irrigationForm())
	assert.False(t, report.Valid)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, model.CodeDanglingParent, report.Errors[0].Code)
	assert.Equal(t, "parentId", report.Errors[0].Field)
}

func TestValidateParentOrder(t *testing.T) {
	tests := []struct {
		name  string
		order int
		valid bool
	}{
		{"child after parent", 2, true},
		{"child at parent order", 1, false},
		{"child before parent", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := irrigationForm()
			q := form[1]
			q.Order = tt.order
			report := Validate(q, form)
			assert.Equal(t, tt.valid, report.Valid)
			if !tt.valid {
				assert.Contains(t, codes(report.Errors), model.CodeParentOrder)
			}
		})
	}
}

func TestValidateCycle(t *testing.T) {
	// A -> B -> C -> A, each citing the previous as parent
	form := []model.Question{
		{ID: "A", Order: 1, ParentID: "C", Condition: cond(model.OperatorEquals, "x")},
		{ID: "B", Order: 2, ParentID: "A", Condition: cond(model.OperatorEquals, "x")},
		{ID: "C", Order: 3, ParentID: "B", Condition: cond(model.OperatorEquals, "x")},
	}

	for _, q := range form {
		t.Run(q.ID, func(t *testing.T) {
			report := Validate(q, form)
			assert.False(t, report.Valid)
			assert.Contains(t, codes(report.Errors), model.CodeCycle)

			var mentionsCycle bool
			for _, issue := range report.Errors {
				if issue.Code == model.CodeCycle {
					mentionsCycle = assert.Contains(t, issue.Message, "cyclic")
				}
			}
			assert.True(t, mentionsCycle)
		})
	}
}

func TestValidateSelfParent(t *testing.T) {
	q := model.Question{ID: "A", Order: 1, ParentID: "A", Condition: cond(model.OperatorEquals, "x")}
	report := Validate(q, []model.Question{q})
	assert.False(t, report.Valid)
	assert.ElementsMatch(t, []string{model.CodeParentOrder, model.CodeCycle}, codes(report.Errors))
}

func TestValidateCallsDoNotShareState(t *testing.T) {
	form := []model.Question{
		{ID: "A", Order: 1},
		{ID: "B", Order: 2, ParentID: "A", Condition: cond(model.OperatorEquals, "x")},
		{ID: "C", Order: 3, ParentID: "B", Condition: cond(model.OperatorEquals, "x")},
	}
	for i := 0; i < 3; i++ {
		for _, q := range form {
			assert.True(t, Validate(q, form).Valid, "question %s run %d", q.ID, i)
		}
	}
}

func TestValidateWarnings(t *testing.T) {
	parent := model.Question{
		ID: "P", Order: 1, Kind: model.KindMultiChoice,
		Options: []model.Option{{Value: "solar"}, {Value: "wind"}},
	}

	tests := []struct {
		name      string
		condition *model.Condition
		want      []string
	}{
		{"includes on multi-choice is fine", cond(model.OperatorIncludes, "solar"), []string{}},
		{"equals on multi-choice", cond(model.OperatorEquals, "solar"), []string{model.CodeOperatorKind}},
		{"stale option value", cond(model.OperatorIncludes, "diesel"), []string{model.CodeStaleOption}},
		{"Other sentinel is never stale", cond(model.OperatorIncludes, model.OtherSentinel), []string{}},
		{"missing condition", nil, []string{model.CodeMissingCondition}},
		{"unknown operator", cond(model.Operator("like"), "solar"), []string{model.CodeUnknownOperator, model.CodeOperatorKind}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			child := model.Question{ID: "C", Order: 2, ParentID: "P", Condition: tt.condition}
			report := Validate(child, []model.Question{parent})
			assert.True(t, report.Valid, "warnings never block")
			assert.ElementsMatch(t, tt.want, codes(report.Warnings))
		})
	}
}

func TestValidateUnknownOperatorFailClosed(t *testing.T) {
	form := irrigationForm()
	q := form[1]
	q.Condition = cond(model.Operator("like"), "gravity")

	report := NewValidator(model.PolicyFailClosed).Validate(q, form)
	assert.False(t, report.Valid)
	assert.Equal(t, []string{model.CodeUnknownOperator}, codes(report.Errors))
}

func TestValidateReorder(t *testing.T) {
	form := []model.Question{
		{ID: "A", Order: 1},
		{ID: "B", Order: 3, ParentID: "A", Condition: cond(model.OperatorEquals, "x")},
		{ID: "C", Order: 5, ParentID: "B", Condition: cond(model.OperatorEquals, "x")},
	}

	t.Run("move within bounds", func(t *testing.T) {
		assert.True(t, ValidateReorder("B", 4, form).Valid)
	})

	t.Run("move before parent", func(t *testing.T) {
		report := ValidateReorder("B", 1, form)
		assert.False(t, report.Valid)
		assert.Equal(t, []string{model.CodeParentOrder}, codes(report.Errors))
	})

	t.Run("move past dependent", func(t *testing.T) {
		report := ValidateReorder("B", 6, form)
		assert.False(t, report.Valid)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, model.CodeParentOrder, report.Errors[0].Code)
		assert.Equal(t, "C", report.Errors[0].QuestionID)
	})

	t.Run("root moved past its dependent", func(t *testing.T) {
		report := ValidateReorder("A", 3, form)
		assert.False(t, report.Valid)
		assert.Equal(t, "B", report.Errors[0].QuestionID)
	})

	t.Run("does not mutate input", func(t *testing.T) {
		ValidateReorder("B", 100, form)
		assert.Equal(t, 3, form[1].Order)
	})
}

func TestGraphDependents(t *testing.T) {
	form := []model.Question{
		{ID: "A", Order: 1},
		{ID: "D", Order: 4, ParentID: "B"},
		{ID: "B", Order: 2, ParentID: "A"},
		{ID: "C", Order: 3, ParentID: "A"},
		{ID: "E", Order: 5},
	}
	g := NewGraph(form)

	assert.Equal(t, []string{"B", "C", "D"}, ids(g.Dependents("A")))
	assert.Equal(t, []string{"D"}, ids(g.Dependents("B")))
	assert.Empty(t, g.Dependents("E"))
	assert.Equal(t, []string{"B", "C"}, ids(g.Children("A")))

	// Re-parenting keeps the adjacency current
	d, _ := g.Question("D")
	moved := *d
	moved.ParentID = "E"
	g.Put(moved)
	assert.Equal(t, []string{"B", "C"}, ids(g.Dependents("A")))
	assert.Equal(t, []string{"D"}, ids(g.Dependents("E")))
}

func TestDependentRefs(t *testing.T) {
	g := NewGraph([]model.Question{
		{ID: "A", Order: 1, Prompt: "Uses irrigation?"},
		{ID: "B", Order: 2, ParentID: "A", Prompt: "Irrigation method", Active: true, Condition: cond(model.OperatorEquals, "yes")},
	})
	refs := g.DependentRefs("A")
	require.Len(t, refs, 1)
	assert.Equal(t, model.DependentRef{ID: "B", Prompt: "Irrigation method", Condition: "equals yes", Active: true}, refs[0])
	assert.Empty(t, g.DependentRefs("B"))
}

func TestGraphDependentsWithCycle(t *testing.T) {
	g := NewGraph([]model.Question{
		{ID: "A", Order: 1, ParentID: "B"},
		{ID: "B", Order: 2, ParentID: "A"},
	})
	deps := g.Dependents("A")
	require.Len(t, deps, 1)
	assert.Equal(t, "B", deps[0].ID)
}

func TestAnalyze(t *testing.T) {
	form := append(irrigationForm(),
		model.Question{ID: "Q3", Order: 2, Prompt: "Duplicate slot"},
		model.Question{ID: "Q4", Order: 4, ParentID: "gone", Condition: cond(model.OperatorEquals, "x")},
	)

	analysis := Validator{}.Analyze("F1", NewGraph(form))
	assert.Equal(t, "F1", analysis.FormID)
	assert.Equal(t, 4, analysis.TotalQuestions)
	assert.Equal(t, 2, analysis.RootQuestions)
	assert.Equal(t, 2, analysis.ConditionalQuestions)
	assert.Equal(t, 50.0, analysis.ConditionalPercent)
	require.Len(t, analysis.Dependencies["Q1"], 1)
	assert.Equal(t, "equals gravity", analysis.Dependencies["Q1"][0].Condition)

	var problemCodes []string
	for _, p := range analysis.Problems {
		problemCodes = append(problemCodes, codes(p.Errors)...)
		problemCodes = append(problemCodes, codes(p.Warnings)...)
	}
	assert.Contains(t, problemCodes, model.CodeDanglingParent)
	assert.Contains(t, problemCodes, model.CodeDuplicateOrder)
}

func TestValidateEdit(t *testing.T) {
	form := []model.Question{
		{ID: "A", Order: 1},
		{ID: "B", Order: 3, ParentID: "A", Condition: cond(model.OperatorEquals, "x")},
		{ID: "C", Order: 5, ParentID: "B", Condition: cond(model.OperatorEquals, "x")},
	}

	t.Run("re-parenting into a cycle", func(t *testing.T) {
		b := form[1]
		b.ParentID = "C"
		report := NewValidator(model.PolicyFailOpen).ValidateEdit(b, form)
		assert.False(t, report.Valid)
		assert.Contains(t, codes(report.Errors), model.CodeCycle)
	})

	t.Run("order change overtaking a dependent", func(t *testing.T) {
		b := form[1]
		b.Order = 7
		report := Validator{}.ValidateEdit(b, form)
		assert.False(t, report.Valid)
		assert.Equal(t, "C", report.Errors[0].QuestionID)
	})

	t.Run("prompt change", func(t *testing.T) {
		b := form[1]
		b.Prompt = "Reworded"
		assert.True(t, Validator{}.ValidateEdit(b, form).Valid)
	})
}
