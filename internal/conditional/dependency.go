package conditional

import (
	"fmt"
	"sort"

	"audite/internal/model"
)

// Validator checks the structural validity of conditional questions
type Validator struct {
	Policy model.Policy
}

// NewValidator creates a validator with the given unknown-operator policy
func NewValidator(policy model.Policy) Validator {
	return Validator{Policy: policy}
}

// Validate checks q against the other questions of its form using the
// fail-open policy. q replaces any question with the same ID in all.
func Validate(q model.Question, all []model.Question) model.DependencyReport {
	return Validator{}.Validate(q, all)
}

// ValidateReorder checks moving question id to newOrder using the fail-open policy
func ValidateReorder(id string, newOrder int, all []model.Question) model.DependencyReport {
	return Validator{}.ValidateReorder(id, newOrder, all)
}

// Validate checks q against the other questions of its form.
// q replaces any question with the same ID in all, so the same call serves
// create and update.
func (v Validator) Validate(q model.Question, all []model.Question) model.DependencyReport {
	g := NewGraph(all)
	g.Put(q)
	return v.Check(g, q.ID)
}

// ValidateReorder checks moving question id to newOrder. The moved question
// must still follow its parent and precede each of its direct dependents.
// An unknown id yields a valid empty report.
func (v Validator) ValidateReorder(id string, newOrder int, all []model.Question) model.DependencyReport {
	g := NewGraph(all)
	current, ok := g.Question(id)
	if !ok {
		return newReport()
	}

	moved := *current
	moved.Order = newOrder
	return v.checkEdit(g, moved)
}

// ValidateEdit checks an update of q: q itself as in Validate, plus the
// order of every question that already depends on it
func (v Validator) ValidateEdit(q model.Question, all []model.Question) model.DependencyReport {
	return v.checkEdit(NewGraph(all), q)
}

func (v Validator) checkEdit(g *Graph, q model.Question) model.DependencyReport {
	g.Put(q)
	report := v.Check(g, q.ID)
	for _, child := range g.Children(q.ID) {
		if q.Order >= child.Order {
			report.Errors = append(report.Errors, model.Issue{
				Code:       model.CodeParentOrder,
				Message:    fmt.Sprintf("dependent question %s (order %d) must come after its parent (order %d)", child.ID, child.Order, q.Order),
				Field:      "order",
				QuestionID: child.ID,
			})
		}
	}
	report.Valid = len(report.Errors) == 0
	return report
}

// Check validates the question id already present in g
func (v Validator) Check(g *Graph, id string) model.DependencyReport {
	report := newReport()

	q, ok := g.Question(id)
	if !ok || q.IsRoot() {
		return report
	}

	parent, ok := g.Question(q.ParentID)
	if !ok {
		report.Errors = append(report.Errors, model.Issue{
			Code:       model.CodeDanglingParent,
			Message:    fmt.Sprintf("parent question %s not found in form", q.ParentID),
			Field:      "parentId",
			QuestionID: q.ID,
		})
		report.Valid = false
		return report
	}

	if parent.Order >= q.Order {
		report.Errors = append(report.Errors, model.Issue{
			Code:       model.CodeParentOrder,
			Message:    fmt.Sprintf("parent must precede dependent: parent order %d, question order %d", parent.Order, q.Order),
			Field:      "order",
			QuestionID: q.ID,
		})
	}

	if g.cyclic(q.ID) {
		report.Errors = append(report.Errors, model.Issue{
			Code:       model.CodeCycle,
			Message:    "cyclic dependency detected between questions",
			Field:      "parentId",
			QuestionID: q.ID,
		})
	}

	v.checkCondition(&report, q, parent)

	report.Valid = len(report.Errors) == 0
	return report
}

func (v Validator) checkCondition(report *model.DependencyReport, q, parent *model.Question) {
	cond := q.Condition
	if cond == nil || cond.Operator == "" || cond.Value == "" {
		report.Warnings = append(report.Warnings, model.Issue{
			Code:       model.CodeMissingCondition,
			Message:    "no condition configured; question shows whenever its parent is answered",
			Field:      "condition",
			QuestionID: q.ID,
		})
		return
	}

	if !cond.Operator.Known() {
		issue := model.Issue{
			Code:       model.CodeUnknownOperator,
			Message:    fmt.Sprintf("unknown operator %q", cond.Operator),
			Field:      "condition.operator",
			QuestionID: q.ID,
		}
		if v.Policy == model.PolicyFailClosed {
			report.Errors = append(report.Errors, issue)
		} else {
			issue.Message += "; question will always be shown"
			report.Warnings = append(report.Warnings, issue)
		}
	}

	if parent.Kind == model.KindMultiChoice &&
		cond.Operator != model.OperatorIncludes && cond.Operator != model.OperatorNotIncludes {
		report.Warnings = append(report.Warnings, model.Issue{
			Code:       model.CodeOperatorKind,
			Message:    "multi-choice parents should use the includes or not_includes operators",
			Field:      "condition.operator",
			QuestionID: q.ID,
		})
	}

	if len(parent.Options) > 0 && cond.Value != model.OtherSentinel && !parent.HasOptionValue(cond.Value) {
		report.Warnings = append(report.Warnings, model.Issue{
			Code:       model.CodeStaleOption,
			Message:    fmt.Sprintf("condition value %q is not among the parent's options", cond.Value),
			Field:      "condition.value",
			QuestionID: q.ID,
		})
	}
}

// Analyze reports the conditional structure of the whole graph
func (v Validator) Analyze(formID string, g *Graph) model.FormAnalysis {
	questions := g.Questions()
	analysis := model.FormAnalysis{
		FormID:         formID,
		TotalQuestions: len(questions),
		Dependencies:   make(map[string][]model.DependentRef),
		Problems:       []model.QuestionProblems{},
	}

	byOrder := make(map[int][]string)
	for i := range questions {
		q := &questions[i]
		byOrder[q.Order] = append(byOrder[q.Order], q.ID)

		if q.IsRoot() {
			analysis.RootQuestions++
			continue
		}
		analysis.ConditionalQuestions++
		analysis.Dependencies[q.ParentID] = append(analysis.Dependencies[q.ParentID], model.DependentRef{
			ID:        q.ID,
			Prompt:    truncate(q.Prompt, 100),
			Condition: describeCondition(q.Condition),
			Active:    q.Active,
		})

		report := v.Check(g, q.ID)
		if !report.Valid {
			analysis.Problems = append(analysis.Problems, model.QuestionProblems{
				QuestionID: q.ID,
				Prompt:     truncate(q.Prompt, 100),
				Errors:     report.Errors,
				Warnings:   report.Warnings,
			})
		}
	}

	orders := make([]int, 0, len(byOrder))
	for order := range byOrder {
		orders = append(orders, order)
	}
	sort.Ints(orders)
	for _, order := range orders {
		ids := byOrder[order]
		if len(ids) < 2 {
			continue
		}
		analysis.Problems = append(analysis.Problems, model.QuestionProblems{
			QuestionID: ids[1],
			Prompt:     truncate(g.nodes[ids[1]].Prompt, 100),
			Errors:     []model.Issue{},
			Warnings: []model.Issue{{
				Code:       model.CodeDuplicateOrder,
				Message:    fmt.Sprintf("order %d is shared by questions %v", order, ids),
				Field:      "order",
				QuestionID: ids[1],
			}},
		})
	}

	if analysis.TotalQuestions > 0 {
		pct := float64(analysis.ConditionalQuestions) / float64(analysis.TotalQuestions) * 100
		analysis.ConditionalPercent = float64(int(pct*100+0.5)) / 100
	}
	return analysis
}

func newReport() model.DependencyReport {
	return model.DependencyReport{
		Valid:    true,
		Errors:   []model.Issue{},
		Warnings: []model.Issue{},
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
