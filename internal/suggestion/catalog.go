// Package suggestion maps completed answer sets to recommendations and
// groups them into a phased implementation plan.
package suggestion

import (
	_ "embed"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"audite/internal/model"
)

//go:embed catalog.yaml
var catalogYAML []byte

var defaultCatalog = MustParseCatalog(catalogYAML)

// DefaultCatalog returns the built-in rule catalog. It is read-only.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// Trigger describes when a rule fires. Exactly one field is set.
type Trigger struct {
	Keywords  []string `yaml:"keywords"`
	NoneOf    []string `yaml:"none_of"`
	Threshold *float64 `yaml:"threshold"`
	Always    bool     `yaml:"always"`
}

// Template is the suggestion a rule materializes when it fires
type Template struct {
	Category           string         `yaml:"category"`
	Title              string         `yaml:"title"`
	Description        string         `yaml:"description"`
	EstimatedSavings   string         `yaml:"estimatedSavings"`
	CostTier           string         `yaml:"costTier"`
	Payback            string         `yaml:"payback"`
	ImplementationTime string         `yaml:"implementationTime"`
	Priority           model.Priority `yaml:"priority"`
	Actions            []string       `yaml:"actions"`
}

// Rule is one catalog entry with its compiled trigger predicate
type Rule struct {
	ID       string   `yaml:"id"`
	Trigger  Trigger  `yaml:"trigger"`
	Template Template `yaml:",inline"`

	match func(model.AnswerMap) bool
}

// Fires reports whether the rule triggers for the answers
func (r *Rule) Fires(answers model.AnswerMap) bool {
	return r.match(answers)
}

// Suggestion materializes the rule template. The ID is the rule ID so
// repeated evaluation yields the same record.
func (r *Rule) Suggestion() model.Suggestion {
	t := r.Template
	return model.Suggestion{
		ID:                 r.ID,
		Source:             model.SourceRule,
		Category:           t.Category,
		Title:              t.Title,
		Description:        t.Description,
		EstimatedSavings:   t.EstimatedSavings,
		CostTier:           t.CostTier,
		Payback:            t.Payback,
		ImplementationTime: t.ImplementationTime,
		Priority:           t.Priority,
		Actions:            append([]string(nil), t.Actions...),
	}
}

// Catalog holds the rules of every recognized sector plus the generic fallback
type Catalog struct {
	Sectors map[model.Sector][]Rule `yaml:"sectors"`
	Generic []Rule                  `yaml:"generic"`
}

// Rules returns the rules for a sector and whether the sector has its own list.
// Sectors without a list get the generic rules.
func (c *Catalog) Rules(sector model.Sector) ([]Rule, bool) {
	if rules, ok := c.Sectors[sector]; ok && sector.Recognized() {
		return rules, true
	}
	return c.Generic, false
}

// ParseCatalog decodes and compiles a YAML rule catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Generic) == 0 {
		return nil, errors.New("catalog has no generic rules")
	}

	seen := make(map[string]bool)
	compileAll := func(rules []Rule) error {
		for i := range rules {
			r := &rules[i]
			if r.ID == "" {
				return fmt.Errorf("rule %d: missing id", i)
			}
			if seen[r.ID] {
				return fmt.Errorf("rule %s: duplicate id", r.ID)
			}
			seen[r.ID] = true
			if err := r.compile(); err != nil {
				return fmt.Errorf("rule %s: %w", r.ID, err)
			}
		}
		return nil
	}

	for sector, rules := range c.Sectors {
		if !sector.Recognized() {
			return nil, fmt.Errorf("unknown sector %q", sector)
		}
		if err := compileAll(rules); err != nil {
			return nil, err
		}
	}
	if err := compileAll(c.Generic); err != nil {
		return nil, err
	}
	return &c, nil
}

// MustParseCatalog is like ParseCatalog but panics on error
func MustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic("suggestion: " + err.Error())
	}
	return c
}

func (r *Rule) compile() error {
	t := r.Trigger
	set := 0
	if len(t.Keywords) > 0 {
		set++
	}
	if len(t.NoneOf) > 0 {
		set++
	}
	if t.Threshold != nil {
		set++
	}
	if t.Always {
		set++
	}
	if set != 1 {
		return fmt.Errorf("trigger must set exactly one of keywords, none_of, threshold, always")
	}

	switch {
	case len(t.Keywords) > 0:
		words := normalizeAll(t.Keywords)
		r.match = func(answers model.AnswerMap) bool { return anyContains(answers, words) }
	case len(t.NoneOf) > 0:
		words := normalizeAll(t.NoneOf)
		r.match = func(answers model.AnswerMap) bool { return !anyContains(answers, words) }
	case t.Threshold != nil:
		limit := *t.Threshold
		r.match = func(answers model.AnswerMap) bool { return anyExceeds(answers, limit) }
	default:
		r.match = func(model.AnswerMap) bool { return true }
	}

	if r.Template.Priority == "" {
		r.Template.Priority = model.PriorityMedium
	}
	return nil
}

// anyContains reports whether any text or list answer contains one of words.
// words must already be normalized.
func anyContains(answers model.AnswerMap, words []string) bool {
	for _, v := range answers {
		var texts []string
		switch {
		case v.IsNumber():
			continue
		case v.IsList():
			texts = v.List
		default:
			texts = []string{v.Text}
		}
		for _, text := range texts {
			text = normalize(text)
			if text == "" {
				continue
			}
			for _, w := range words {
				if strings.Contains(text, w) {
					return true
				}
			}
		}
	}
	return false
}

// anyExceeds reports whether any numeric answer, or text that parses as a
// number once thousands separators are removed, is greater than limit
func anyExceeds(answers model.AnswerMap, limit float64) bool {
	for _, v := range answers {
		switch {
		case v.IsNumber():
			if finite(*v.Number) && *v.Number > limit {
				return true
			}
		case v.IsList():
			continue
		default:
			n, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v.Text), ",", ""), 64)
			if err == nil && finite(n) && n > limit {
				return true
			}
		}
	}
	return false
}

// finite rejects "Inf" and "NaN", which ParseFloat accepts as text
func finite(n float64) bool {
	return !math.IsInf(n, 0) && !math.IsNaN(n)
}

// normalize folds case and strips diacritics so "Irrigación" matches "irrigacion"
func normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	out, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

func normalizeAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if n := normalize(strings.TrimSpace(w)); n != "" {
			out = append(out, n)
		}
	}
	return out
}
