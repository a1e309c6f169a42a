package conditional

import (
	"sort"

	"audite/internal/model"
)

const (
	reasonMissing   = "required question without answer"
	reasonHidden    = "answer for a question that should not be visible"
	reasonUnknownID = "answer for a question that is not part of the form"
)

// ValidateSubmission checks an answer batch using the fail-open policy
func ValidateSubmission(sub model.Submission, questions []model.Question) model.SubmissionReport {
	return Evaluator{}.ValidateSubmission(sub, questions)
}

// ValidateSubmission checks that a whole answer batch agrees with the
// visibility logic: every visible required question is answered and no
// answer targets a hidden question. The batch is valid only when both
// lists are empty.
func (e Evaluator) ValidateSubmission(sub model.Submission, questions []model.Question) model.SubmissionReport {
	report := model.SubmissionReport{
		Valid:           true,
		MissingRequired: []model.Violation{},
		UnexpectedExtra: []model.Violation{},
	}

	visible := e.ResolveVisible(questions, sub.Preprocess())
	visibleIDs := make(map[string]bool, len(visible))
	for _, q := range visible {
		visibleIDs[q.ID] = true
		if !q.Required {
			continue
		}
		if _, answered := sub[q.ID]; !answered {
			report.MissingRequired = append(report.MissingRequired, model.Violation{
				QuestionID: q.ID,
				Prompt:     q.Prompt,
				Reason:     reasonMissing,
			})
		}
	}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	keys := make([]string, 0, len(sub))
	for key := range sub {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	reported := make(map[string]bool)
	for _, key := range keys {
		if visibleIDs[key] {
			continue
		}
		if base, ok := model.SplitOtherKey(key); ok && !known[key] {
			// "Other" text travels with its question
			if visibleIDs[base] {
				continue
			}
			key = base
		}
		if reported[key] {
			continue
		}
		reported[key] = true

		reason := reasonHidden
		if !known[key] {
			reason = reasonUnknownID
		}
		report.UnexpectedExtra = append(report.UnexpectedExtra, model.Violation{
			QuestionID: key,
			Reason:     reason,
		})
	}

	report.Valid = len(report.MissingRequired) == 0 && len(report.UnexpectedExtra) == 0
	return report
}
