// Package seed loads questionnaire definitions from YAML files, lints them
// offline and upserts them through the repositories.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"audite/internal/conditional"
	"audite/internal/model"
	"audite/internal/repository"
)

// IDSeparator joins a form ID and a question key into a question ID
const IDSeparator = "."

// File is the root of a seed document
type File struct {
	Categories []CategorySpec `yaml:"categories"`
}

// CategorySpec declares a category and its forms
type CategorySpec struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Sector      string     `yaml:"sector,omitempty"` // Derived from the name when empty
	Description string     `yaml:"description,omitempty"`
	Icon        string     `yaml:"icon,omitempty"`
	Color       string     `yaml:"color,omitempty"`
	Order       int        `yaml:"order"`
	Forms       []FormSpec `yaml:"forms"`
}

// FormSpec declares a form and its questions
type FormSpec struct {
	ID               string         `yaml:"id"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description,omitempty"`
	Order            int            `yaml:"order"`
	EstimatedMinutes int            `yaml:"estimatedMinutes,omitempty"`
	Questions        []QuestionSpec `yaml:"questions"`
}

// QuestionSpec is a question as written in a seed file. IDs and parent
// references are local to the form until Normalize prefixes them.
type QuestionSpec struct {
	model.Question `yaml:",inline"`
	Disabled       bool `yaml:"disabled,omitempty"`
}

// Parse decodes a seed document and normalizes it
func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("seed file is empty")
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseFile reads and parses the seed file at path
func ParseFile(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	return Parse(fh)
}

// Normalize fills derived fields: category sectors, question form IDs,
// prefixed question IDs and active flags
func (f *File) Normalize() error {
	for ci := range f.Categories {
		c := &f.Categories[ci]
		if strings.TrimSpace(c.ID) == "" {
			return fmt.Errorf("category %d: id is required", ci+1)
		}
		if c.Sector == "" {
			c.Sector = c.Name
		}
		c.Sector = string(model.ParseSector(c.Sector))

		for fi := range c.Forms {
			form := &c.Forms[fi]
			if strings.TrimSpace(form.ID) == "" {
				return fmt.Errorf("category %s form %d: id is required", c.ID, fi+1)
			}
			for qi := range form.Questions {
				q := &form.Questions[qi]
				if strings.TrimSpace(q.ID) == "" {
					return fmt.Errorf("form %s question %d: id is required", form.ID, qi+1)
				}
				q.FormID = form.ID
				q.ID = QuestionID(form.ID, q.ID)
				if q.ParentID != "" {
					q.ParentID = QuestionID(form.ID, q.ParentID)
				}
				q.Active = !q.Disabled
			}
		}
	}
	return nil
}

// QuestionID prefixes a form-local question key with its form ID.
// Keys that already carry the prefix are returned unchanged.
func QuestionID(formID, key string) string {
	prefix := formID + IDSeparator
	if strings.HasPrefix(key, prefix) {
		return key
	}
	return prefix + key
}

// QuestionList returns the normalized questions of a form
func (fs *FormSpec) QuestionList() []model.Question {
	out := make([]model.Question, 0, len(fs.Questions))
	for _, q := range fs.Questions {
		out = append(out, q.Question)
	}
	return out
}

// FormReport is the lint result of one form
type FormReport struct {
	FormID   string
	Analysis model.FormAnalysis
	Issues   []model.Issue // Field-level problems found before graph analysis
}

// HasErrors reports whether the form has blocking problems
func (r FormReport) HasErrors() bool {
	if len(r.Issues) > 0 {
		return true
	}
	for _, p := range r.Analysis.Problems {
		if len(p.Errors) > 0 {
			return true
		}
	}
	return false
}

// Lint checks every form of the file without touching storage
func Lint(f *File, policy model.Policy) []FormReport {
	validator := conditional.NewValidator(policy)

	var reports []FormReport
	for _, c := range f.Categories {
		for i := range c.Forms {
			form := &c.Forms[i]
			questions := form.QuestionList()
			reports = append(reports, FormReport{
				FormID:   form.ID,
				Analysis: validator.Analyze(form.ID, conditional.NewGraph(questions)),
				Issues:   fieldIssues(questions),
			})
		}
	}
	return reports
}

func fieldIssues(questions []model.Question) []model.Issue {
	issues := []model.Issue{}
	seen := make(map[string]bool, len(questions))
	for _, q := range questions {
		if seen[q.ID] {
			issues = append(issues, model.Issue{Code: "duplicate_id", Message: "question id is used twice", Field: "id", QuestionID: q.ID})
		}
		seen[q.ID] = true

		if strings.TrimSpace(q.Prompt) == "" {
			issues = append(issues, model.Issue{Code: "missing_prompt", Message: "prompt is required", Field: "prompt", QuestionID: q.ID})
		}
		switch q.Kind {
		case model.KindSingleChoice, model.KindMultiChoice, model.KindRanking:
			if len(q.Options) == 0 {
				issues = append(issues, model.Issue{Code: "missing_options", Message: fmt.Sprintf("%s question needs options", q.Kind), Field: "options", QuestionID: q.ID})
			}
		case model.KindText, model.KindNumber:
		default:
			issues = append(issues, model.Issue{Code: "unknown_kind", Message: fmt.Sprintf("unknown question kind %q", q.Kind), Field: "kind", QuestionID: q.ID})
		}
	}
	return issues
}

// Store is the set of repositories a seed is written to
type Store struct {
	Categories repository.CategoryRepo
	Forms      repository.FormRepo
	Questions  repository.QuestionRepo
}

// Summary counts the records written by Apply
type Summary struct {
	Categories int
	Forms      int
	Questions  int
}

// Apply upserts every category, form and question of the file. Records are
// keyed by ID, so applying the same file twice is idempotent.
func Apply(ctx context.Context, f *File, store Store, now time.Time) (Summary, error) {
	var sum Summary
	for _, c := range f.Categories {
		category := &model.Category{
			ID:          c.ID,
			Name:        c.Name,
			Sector:      model.Sector(c.Sector),
			Description: c.Description,
			Icon:        c.Icon,
			Color:       c.Color,
			Active:      true,
			Order:       c.Order,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := store.Categories.Upsert(ctx, category); err != nil {
			return sum, fmt.Errorf("upsert category %s: %w", c.ID, err)
		}
		sum.Categories++

		for i := range c.Forms {
			fs := &c.Forms[i]
			form := &model.Form{
				ID:               fs.ID,
				CategoryID:       c.ID,
				Name:             fs.Name,
				Description:      fs.Description,
				Active:           true,
				Order:            fs.Order,
				EstimatedMinutes: fs.EstimatedMinutes,
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := store.Forms.Upsert(ctx, form); err != nil {
				return sum, fmt.Errorf("upsert form %s: %w", fs.ID, err)
			}
			sum.Forms++

			for _, q := range fs.QuestionList() {
				q.CreatedAt = now
				q.UpdatedAt = now
				if err := store.Questions.Upsert(ctx, &q); err != nil {
					return sum, fmt.Errorf("upsert question %s: %w", q.ID, err)
				}
				sum.Questions++
			}
		}
	}
	return sum, nil
}
