package model

import "time"

// Priority ranks a suggestion; higher values sort first
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort weight of the priority; unknown values rank as low
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// SuggestionSource tells where a suggestion came from
type SuggestionSource string

const (
	SourceRule   SuggestionSource = "rule"   // Category-wide triggered rule
	SourceOption SuggestionSource = "option" // Text attached to a chosen option
)

// Suggestion is a recommendation materialized for one session
type Suggestion struct {
	ID                 string           `json:"id"`
	Source             SuggestionSource `json:"source"`
	Category           string           `json:"category"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	EstimatedSavings   string           `json:"estimatedSavings,omitempty"`
	CostTier           string           `json:"costTier,omitempty"`
	Payback            string           `json:"payback,omitempty"`
	ImplementationTime string           `json:"implementationTime,omitempty"`
	Priority           Priority         `json:"priority"`
	Actions            []string         `json:"actions,omitempty"`
	QuestionID         string           `json:"questionId,omitempty"`
	OptionLabel        string           `json:"optionLabel,omitempty"`
}

// Phases groups suggestions by time horizon
type Phases struct {
	Immediate  []Suggestion `json:"immediate"`  // up to 3 months
	ShortTerm  []Suggestion `json:"shortTerm"`  // 3 to 6 months
	MediumTerm []Suggestion `json:"mediumTerm"` // beyond 6 months or unknown
}

// PlanTotals summarizes an implementation plan
type PlanTotals struct {
	Suggestions  int              `json:"suggestions"`
	ByPriority   map[Priority]int `json:"byPriority"`
	Immediate    int              `json:"immediate"`
	ShortTerm    int              `json:"shortTerm"`
	MediumTerm   int              `json:"mediumTerm"`
	TimelineMths int              `json:"timelineMonths"` // Largest upper bound across suggestions
}

// Plan is the phased implementation plan of a session
type Plan struct {
	Phases Phases     `json:"phases"`
	Totals PlanTotals `json:"totals"`
}

// Profile is a set of flags derived from the answers
type Profile struct {
	HighConsumption bool            `json:"highConsumption"`
	HasRenewables   bool            `json:"hasRenewables"`
	NeedsMonitoring bool            `json:"needsMonitoring"`
	SectorFlags     map[string]bool `json:"sectorFlags"`
}

// SessionResult is the user-facing payload of a completed session
type SessionResult struct {
	SessionID    string       `json:"sessionId"`
	FormID       string       `json:"formId"`
	CategoryName string       `json:"categoryName"`
	Sector       Sector       `json:"sector"`
	Suggestions  []Suggestion `json:"suggestions"`
	Plan         Plan         `json:"plan"`
	Profile      Profile      `json:"profile"`
	AnswerCount  int          `json:"answerCount"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}
