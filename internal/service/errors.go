package service

import (
	"errors"
	"fmt"
	"strings"

	"audite/internal/model"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrSessionSubmitted = errors.New("session already submitted")
	ErrHasDependents    = errors.New("question has dependent questions")
)

// DependencyError rejects a question write that breaks the dependency graph
type DependencyError struct {
	Report model.DependencyReport
}

func (e *DependencyError) Error() string {
	msgs := make([]string, 0, len(e.Report.Errors))
	for _, issue := range e.Report.Errors {
		msgs = append(msgs, issue.Message)
	}
	return "invalid question dependency: " + strings.Join(msgs, "; ")
}

// SubmissionError rejects an answer batch that disagrees with the visibility logic
type SubmissionError struct {
	Report model.SubmissionReport
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("invalid submission: %d missing required, %d unexpected",
		len(e.Report.MissingRequired), len(e.Report.UnexpectedExtra))
}

// DependentsError lists the questions that block a delete
type DependentsError struct {
	QuestionID string
	Dependents []model.DependentRef
}

func (e *DependentsError) Error() string {
	return fmt.Sprintf("question %s has %d dependent questions", e.QuestionID, len(e.Dependents))
}

func (e *DependentsError) Unwrap() error {
	return ErrHasDependents
}
