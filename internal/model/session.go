package model

import "time"

// SessionStatus is the lifecycle stage of a respondent session
type SessionStatus string

const (
	SessionNotStarted SessionStatus = "not_started"
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// Draft is the in-progress answer state of a session, kept until submission
type Draft struct {
	SessionID string     `json:"sessionId"`
	FormID    string     `json:"formId"`
	Answers   Submission `json:"answers"`
	StartedAt time.Time  `json:"startedAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// SessionStatusView reports the progress of a session
type SessionStatusView struct {
	SessionID       string        `json:"sessionId"`
	FormID          string        `json:"formId,omitempty"`
	Status          SessionStatus `json:"status"`
	Answered        int           `json:"answered"`
	Visible         int           `json:"visible"`
	ProgressPercent float64       `json:"progressPercent"`
	StartedAt       *time.Time    `json:"startedAt,omitempty"`
	LastAnsweredAt  *time.Time    `json:"lastAnsweredAt,omitempty"`
}
