// Package conditional decides which questions of a form are visible for a
// set of answers and guards the question dependency graph against invalid
// edits. Every function is a pure computation over its arguments.
package conditional

import (
	"log/slog"
	"strings"

	"golang.org/x/text/cases"

	"audite/internal/model"
)

// Evaluator evaluates conditions and visibility under a degradation policy.
// The zero value fails open and does not log.
type Evaluator struct {
	Policy model.Policy
	Logger *slog.Logger
}

// NewEvaluator creates an evaluator with the given policy and optional logger
func NewEvaluator(policy model.Policy, logger *slog.Logger) Evaluator {
	return Evaluator{Policy: policy, Logger: logger}
}

// Visible reports whether q should be shown given the accumulated answers
func (e Evaluator) Visible(q *model.Question, answers model.AnswerMap) bool {
	if q.IsRoot() {
		return true
	}

	parent, answered := answers[q.ParentID]
	if !answered {
		return false
	}

	// A dependent without a usable condition shows as soon as its parent is answered
	if q.Condition == nil || q.Condition.Value == "" || q.Condition.Operator == "" {
		return true
	}

	result, known := holds(*q.Condition, parent, answers.Other(q.ParentID))
	if known {
		return result
	}

	if e.Logger != nil {
		e.Logger.Warn("unknown condition operator",
			slog.String("question_id", q.ID),
			slog.String("operator", string(q.Condition.Operator)),
			slog.String("policy", string(e.policy())))
	}
	return e.policy() != model.PolicyFailClosed
}

// Holds evaluates a condition against a parent answer and its "other" text.
// Unknown operators follow the evaluator policy.
func (e Evaluator) Holds(cond model.Condition, parent model.Value, otherText string) bool {
	result, known := holds(cond, parent, otherText)
	if known {
		return result
	}
	return e.policy() != model.PolicyFailClosed
}

func (e Evaluator) policy() model.Policy {
	if e.Policy == "" {
		return model.PolicyFailOpen
	}
	return e.Policy
}

// holds returns the comparison result and whether the operator was recognized
func holds(cond model.Condition, parent model.Value, otherText string) (bool, bool) {
	// Filled "other" text counts as choosing Other whatever the operator
	if cond.Value == model.OtherSentinel && strings.TrimSpace(otherText) != "" {
		return true, true
	}

	switch cond.Operator {
	case model.OperatorEquals:
		return equal(parent, cond.Value), true
	case model.OperatorNotEquals:
		return !equal(parent, cond.Value), true
	case model.OperatorIncludes:
		return includes(parent, cond.Value), true
	case model.OperatorNotIncludes:
		return !includes(parent, cond.Value), true
	default:
		return false, false
	}
}

func equal(answer model.Value, expected string) bool {
	if answer.IsList() {
		return contains(answer.List, expected)
	}
	return fold(answer.String()) == fold(expected)
}

func includes(answer model.Value, expected string) bool {
	if answer.IsList() {
		return contains(answer.List, expected)
	}
	return strings.Contains(fold(answer.String()), fold(expected))
}

func contains(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}

// fold applies Unicode case folding. Casers are stateful, so one is built per call.
func fold(s string) string {
	return cases.Fold().String(s)
}
