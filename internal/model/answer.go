package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OtherSuffix is appended to a question ID to key its "other" free text in an AnswerMap
const OtherSuffix = "_other"

// OtherKey returns the synthetic AnswerMap key holding a question's "other" text
func OtherKey(questionID string) string {
	return questionID + OtherSuffix
}

// SplitOtherKey returns the question ID of a synthetic "other" key
func SplitOtherKey(key string) (string, bool) {
	if !strings.HasSuffix(key, OtherSuffix) || len(key) == len(OtherSuffix) {
		return "", false
	}
	return strings.TrimSuffix(key, OtherSuffix), true
}

// Value holds one answer. Exactly one slot is populated: Text, List or Number.
type Value struct {
	Text   string   `bson:"text,omitempty"`
	List   []string `bson:"list,omitempty"`
	Number *float64 `bson:"number,omitempty"`
}

// Text builds a scalar text value
func Text(s string) Value { return Value{Text: s} }

// List builds a multi-value answer
func List(items ...string) Value {
	if items == nil {
		items = []string{}
	}
	return Value{List: items}
}

// Number builds a numeric answer
func Number(n float64) Value { return Value{Number: &n} }

// IsList reports whether the value holds a list of selections
func (v Value) IsList() bool { return v.List != nil }

// IsNumber reports whether the value holds a number
func (v Value) IsNumber() bool { return v.Number != nil }

// IsEmpty reports whether nothing was answered
func (v Value) IsEmpty() bool {
	switch {
	case v.IsNumber():
		return false
	case v.IsList():
		return len(v.List) == 0
	default:
		return strings.TrimSpace(v.Text) == ""
	}
}

// String renders the scalar form of the value; lists are comma-joined
func (v Value) String() string {
	switch {
	case v.IsNumber():
		return strconv.FormatFloat(*v.Number, 'f', -1, 64)
	case v.IsList():
		return strings.Join(v.List, ", ")
	default:
		return v.Text
	}
}

// Selected returns the chosen values: the list for multi answers, the scalar otherwise
func (v Value) Selected() []string {
	if v.IsList() {
		return v.List
	}
	if v.IsEmpty() {
		return nil
	}
	return []string{v.String()}
}

// MarshalJSON writes the populated slot as a bare JSON value
func (v Value) MarshalJSON() ([]byte, error) {
	switch {
	case v.IsNumber():
		return json.Marshal(*v.Number)
	case v.IsList():
		return json.Marshal(v.List)
	default:
		return json.Marshal(v.Text)
	}
}

// UnmarshalJSON accepts a string, number, boolean, array or null
func (v *Value) UnmarshalJSON(data []byte) error {
	*v = Value{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	switch data[0] {
	case '"':
		return json.Unmarshal(data, &v.Text)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		v.List = make([]string, 0, len(raw))
		for _, item := range raw {
			var inner Value
			if err := inner.UnmarshalJSON(item); err != nil {
				return err
			}
			v.List = append(v.List, inner.String())
		}
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		v.Text = strconv.FormatBool(b)
		return nil
	case '{':
		return fmt.Errorf("unexpected object for answer value")
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		v.Number = &n
		return nil
	}
}

// Response is one submitted answer, optionally with "other, please specify" text
type Response struct {
	Value Value  `json:"value"`
	Other string `json:"other,omitempty"`
}

// UnmarshalJSON accepts either a bare value or a {"value": ..., "other": ...} object
func (r *Response) UnmarshalJSON(data []byte) error {
	*r = Response{}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var composite struct {
			Value Value  `json:"value"`
			Other string `json:"other"`
		}
		if err := json.Unmarshal(trimmed, &composite); err != nil {
			return err
		}
		r.Value = composite.Value
		r.Other = composite.Other
		return nil
	}
	return r.Value.UnmarshalJSON(trimmed)
}

// MarshalJSON writes a bare value unless other text is present
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Other == "" {
		return r.Value.MarshalJSON()
	}
	return json.Marshal(struct {
		Value Value  `json:"value"`
		Other string `json:"other"`
	}{r.Value, r.Other})
}

// Submission is the raw per-session answer batch keyed by question ID
type Submission map[string]Response

// AnswerMap is the transient questionID -> value view used during evaluation.
// "Other" text lives under OtherKey(questionID).
type AnswerMap map[string]Value

// Preprocess splits composite responses into the value slot plus the synthetic
// "_other" slot so conditions can see the free text.
func (s Submission) Preprocess() AnswerMap {
	answers := make(AnswerMap, len(s))
	// Raw "_other" entries sent by older clients go first so composite text wins
	for id, resp := range s {
		if _, ok := SplitOtherKey(id); !ok {
			continue
		}
		if text := resp.Value.String(); strings.TrimSpace(text) != "" {
			answers[id] = Text(text)
		}
	}
	for id, resp := range s {
		if _, ok := SplitOtherKey(id); ok {
			continue
		}
		answers[id] = resp.Value
		if strings.TrimSpace(resp.Other) != "" {
			answers[OtherKey(id)] = Text(resp.Other)
		}
	}
	return answers
}

// Other returns the "other" text recorded for a question
func (m AnswerMap) Other(questionID string) string {
	return m[OtherKey(questionID)].Text
}

// Answer is one persisted answer of a session
type Answer struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	SessionID  string    `json:"sessionId" bson:"sessionId"`
	FormID     string    `json:"formId" bson:"formId"`
	QuestionID string    `json:"questionId" bson:"questionId"`
	Value      Value     `json:"value" bson:"value"`
	Other      string    `json:"other,omitempty" bson:"other,omitempty"`
	IPAddress  string    `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty" bson:"userAgent,omitempty"`
	AnsweredAt time.Time `json:"answeredAt" bson:"answeredAt"`
}

// AnswerMapFrom projects persisted answers into an AnswerMap
func AnswerMapFrom(answers []*Answer) AnswerMap {
	m := make(AnswerMap, len(answers))
	for _, a := range answers {
		m[a.QuestionID] = a.Value
		if strings.TrimSpace(a.Other) != "" {
			m[OtherKey(a.QuestionID)] = Text(a.Other)
		}
	}
	return m
}
