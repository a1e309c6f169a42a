package conditional

import (
	"sort"

	"audite/internal/model"
)

// ResolveVisible returns the currently visible questions using the fail-open policy
func ResolveVisible(questions []model.Question, answers model.AnswerMap) []model.Question {
	return Evaluator{}.ResolveVisible(questions, answers)
}

// ResolveVisible walks the questions in display order and keeps those whose
// condition holds. Parents precede dependents, so a dependent of a hidden
// question is hidden too. The input slice is not modified.
func (e Evaluator) ResolveVisible(questions []model.Question, answers model.AnswerMap) []model.Question {
	ordered := SortByOrder(questions)

	visible := make([]model.Question, 0, len(ordered))
	shown := make(map[string]bool, len(ordered))
	for i := range ordered {
		q := &ordered[i]
		if !q.IsRoot() && !shown[q.ParentID] {
			continue
		}
		if e.Visible(q, answers) {
			visible = append(visible, *q)
			shown[q.ID] = true
		}
	}
	return visible
}

// SortByOrder returns a copy of questions sorted by display order.
// Ties keep their input order.
func SortByOrder(questions []model.Question) []model.Question {
	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})
	return ordered
}

// Roots returns the questions without a parent, in display order
func Roots(questions []model.Question) []model.Question {
	var roots []model.Question
	for _, q := range SortByOrder(questions) {
		if q.IsRoot() {
			roots = append(roots, q)
		}
	}
	return roots
}
