package model

// Issue codes reported by the dependency validator
const (
	CodeDanglingParent   = "dangling_parent"
	CodeParentOrder      = "parent_order"
	CodeCycle            = "cyclic_dependency"
	CodeUnknownOperator  = "unknown_operator"
	CodeOperatorKind     = "operator_kind_mismatch"
	CodeStaleOption      = "stale_condition_value"
	CodeDuplicateOrder   = "duplicate_order"
	CodeMissingCondition = "missing_condition"
)

// Issue is one configuration error or warning, addressed to a field
type Issue struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
}

// DependencyReport is the outcome of validating one question's dependency
type DependencyReport struct {
	Valid    bool    `json:"valid"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// Violation is a per-question submission problem
type Violation struct {
	QuestionID string `json:"questionId"`
	Prompt     string `json:"prompt,omitempty"`
	Reason     string `json:"reason"`
}

// SubmissionReport is the outcome of validating a whole answer batch
type SubmissionReport struct {
	Valid           bool        `json:"valid"`
	MissingRequired []Violation `json:"missingRequired"`
	UnexpectedExtra []Violation `json:"unexpectedExtra"`
}

// DependentRef is a short reference to a dependent question
type DependentRef struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Condition string `json:"condition,omitempty"`
	Active    bool   `json:"active"`
}

// QuestionProblems lists the validation findings of one question
type QuestionProblems struct {
	QuestionID string  `json:"questionId"`
	Prompt     string  `json:"prompt"`
	Errors     []Issue `json:"errors"`
	Warnings   []Issue `json:"warnings"`
}

// FormAnalysis describes the conditional structure of a form
type FormAnalysis struct {
	FormID               string                    `json:"formId"`
	TotalQuestions       int                       `json:"totalQuestions"`
	RootQuestions        int                       `json:"rootQuestions"`
	ConditionalQuestions int                       `json:"conditionalQuestions"`
	ConditionalPercent   float64                   `json:"conditionalPercent"`
	Dependencies         map[string][]DependentRef `json:"dependencies"`
	Problems             []QuestionProblems        `json:"problems"`
}
