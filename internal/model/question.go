package model

import (
	"strings"
	"time"
)

// AnswerKind defines how a question is answered
type AnswerKind string

const (
	KindSingleChoice AnswerKind = "single_choice"
	KindMultiChoice  AnswerKind = "multi_choice"
	KindText         AnswerKind = "text"
	KindNumber       AnswerKind = "number"
	KindRanking      AnswerKind = "ranking" // Ordered list of option values
)

// Operator compares a parent answer against a condition value
type Operator string

const (
	OperatorEquals      Operator = "equals"
	OperatorNotEquals   Operator = "not_equals"
	OperatorIncludes    Operator = "includes"
	OperatorNotIncludes Operator = "not_includes"
	OperatorUnknown     Operator = "unknown"
)

// OtherSentinel is the condition value that matches a filled "other, please specify" field
const OtherSentinel = "Other"

// ParseOperator maps both canonical and legacy spellings to an Operator.
// Unrecognized input yields OperatorUnknown so callers can apply their policy.
func ParseOperator(s string) Operator {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "equals", "=", "==", "eq":
		return OperatorEquals
	case "not_equals", "!=", "<>", "ne":
		return OperatorNotEquals
	case "includes", "contains":
		return OperatorIncludes
	case "not_includes", "not_contains":
		return OperatorNotIncludes
	default:
		return OperatorUnknown
	}
}

// Known reports whether the operator is one of the four supported comparisons
func (o Operator) Known() bool {
	switch o {
	case OperatorEquals, OperatorNotEquals, OperatorIncludes, OperatorNotIncludes:
		return true
	}
	return false
}

// UnmarshalText normalizes legacy operator spellings on decode
func (o *Operator) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*o = ""
		return nil
	}
	parsed := ParseOperator(string(text))
	if parsed == OperatorUnknown {
		// Keep the raw value so the validator can report it
		*o = Operator(text)
		return nil
	}
	*o = parsed
	return nil
}

// Option is one selectable answer of a choice question
type Option struct {
	ID         string `json:"id,omitempty" bson:"id,omitempty" yaml:"id,omitempty"`
	Value      string `json:"value" bson:"value" yaml:"value"`
	Label      string `json:"label" bson:"label" yaml:"label"`
	Suggestion string `json:"suggestion,omitempty" bson:"suggestion,omitempty" yaml:"suggestion,omitempty"` // Attached recommendation text
}

// Key returns the identifier used in per-option suggestion IDs
func (o Option) Key() string {
	if o.ID != "" {
		return o.ID
	}
	return o.Value
}

// Condition gates a dependent question on its parent's answer
type Condition struct {
	Value    string   `json:"value" bson:"value" yaml:"value"`
	Operator Operator `json:"operator" bson:"operator" yaml:"operator"`
}

// Question is a single question of a form
type Question struct {
	ID               string     `json:"id" bson:"_id,omitempty" yaml:"id"`
	FormID           string     `json:"formId" bson:"formId" yaml:"-"`
	Prompt           string     `json:"prompt" bson:"prompt" yaml:"prompt"`
	Subtitle         string     `json:"subtitle,omitempty" bson:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Kind             AnswerKind `json:"kind" bson:"kind" yaml:"kind"`
	Options          []Option   `json:"options,omitempty" bson:"options,omitempty" yaml:"options,omitempty"`
	HasOther         bool       `json:"hasOther" bson:"hasOther" yaml:"hasOther"`
	OtherPlaceholder string     `json:"otherPlaceholder,omitempty" bson:"otherPlaceholder,omitempty" yaml:"otherPlaceholder,omitempty"`
	Order            int        `json:"order" bson:"order" yaml:"order"`
	Required         bool       `json:"required" bson:"required" yaml:"required"`
	Active           bool       `json:"active" bson:"active" yaml:"active"`
	ParentID         string     `json:"parentId,omitempty" bson:"parentId,omitempty" yaml:"parentId,omitempty"`
	Condition        *Condition `json:"condition,omitempty" bson:"condition,omitempty" yaml:"condition,omitempty"`
	CreatedAt        time.Time  `json:"createdAt" bson:"createdAt" yaml:"-"`
	UpdatedAt        time.Time  `json:"updatedAt" bson:"updatedAt" yaml:"-"`
}

// IsRoot reports whether the question has no parent and is therefore always visible
func (q *Question) IsRoot() bool {
	return q.ParentID == ""
}

// HasOptionValue reports whether value is one of the declared option values
func (q *Question) HasOptionValue(value string) bool {
	for _, opt := range q.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}
