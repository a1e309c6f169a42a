package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"audite/internal/conditional"
	"audite/internal/metrics"
	"audite/internal/model"
	"audite/internal/repository"
)

// Placeholder ID for dry-run checks of unsaved questions
const newQuestionID = "(new)"

// FormService handles categories, forms and the question dependency graph
type FormService struct {
	categoryRepo repository.CategoryRepo
	formRepo     repository.FormRepo
	questionRepo repository.QuestionRepo
	validator    conditional.Validator
	evaluator    conditional.Evaluator
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewFormService creates a new form service
func NewFormService(
	categoryRepo repository.CategoryRepo,
	formRepo repository.FormRepo,
	questionRepo repository.QuestionRepo,
	evaluator conditional.Evaluator,
	m *metrics.Metrics,
	logger *slog.Logger,
) *FormService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &FormService{
		categoryRepo: categoryRepo,
		formRepo:     formRepo,
		questionRepo: questionRepo,
		validator:    conditional.NewValidator(evaluator.Policy),
		evaluator:    evaluator,
		metrics:      m,
		logger:       logger,
	}
}

// ListCategories returns the active categories
func (s *FormService) ListCategories(ctx context.Context) ([]*model.Category, error) {
	return s.categoryRepo.List(ctx, true)
}

// CreateCategory stores a category, deriving its sector from the name when unset
func (s *FormService) CreateCategory(ctx context.Context, category *model.Category) error {
	if strings.TrimSpace(category.Name) == "" {
		return fmt.Errorf("%w: category name is required", ErrInvalidInput)
	}
	if category.Sector == "" {
		category.Sector = model.ParseSector(category.Name)
	}
	category.Active = true
	return s.categoryRepo.Create(ctx, category)
}

// ListForms returns the active forms of a category
func (s *FormService) ListForms(ctx context.Context, categoryID string) ([]*model.Form, error) {
	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %s: %w", categoryID, ErrNotFound)
	}
	return s.formRepo.GetByCategory(ctx, categoryID, true)
}

// CreateForm stores a form under an existing category
func (s *FormService) CreateForm(ctx context.Context, form *model.Form) error {
	if strings.TrimSpace(form.Name) == "" {
		return fmt.Errorf("%w: form name is required", ErrInvalidInput)
	}
	category, err := s.categoryRepo.GetByID(ctx, form.CategoryID)
	if err != nil {
		return err
	}
	if category == nil {
		return fmt.Errorf("category %s: %w", form.CategoryID, ErrNotFound)
	}
	form.Active = true
	return s.formRepo.Create(ctx, form)
}

// GetForm retrieves a form by ID
func (s *FormService) GetForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}
	return form, nil
}

// Questions returns the questions of a form; admins also see inactive ones
func (s *FormService) Questions(ctx context.Context, formID string, activeOnly bool) ([]model.Question, error) {
	if _, err := s.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	return s.questionRepo.GetByForm(ctx, formID, activeOnly)
}

// VisibleQuestions resolves the active questions shown for the given answers.
// Without answers only the root questions are shown.
func (s *FormService) VisibleQuestions(ctx context.Context, formID string, answers model.AnswerMap) ([]model.Question, error) {
	questions, err := s.Questions(ctx, formID, true)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return conditional.Roots(questions), nil
	}
	return s.evaluator.ResolveVisible(questions, answers), nil
}

// CheckQuestion validates a question against its form without saving it.
// A question without ID is checked as a new one.
func (s *FormService) CheckQuestion(ctx context.Context, q *model.Question) (model.DependencyReport, error) {
	if q.ID != "" {
		existing, err := s.getQuestion(ctx, q.ID)
		if err != nil {
			return model.DependencyReport{}, err
		}
		q.FormID = existing.FormID
	}
	all, err := s.formQuestions(ctx, q.FormID)
	if err != nil {
		return model.DependencyReport{}, err
	}
	if q.ID == "" {
		candidate := *q
		candidate.ID = newQuestionID
		return s.validator.Validate(candidate, all), nil
	}
	return s.validator.ValidateEdit(*q, all), nil
}

// CreateQuestion validates and stores a new question. The returned report
// carries the warnings of an accepted write.
func (s *FormService) CreateQuestion(ctx context.Context, q *model.Question) (model.DependencyReport, error) {
	if err := checkQuestionFields(q); err != nil {
		return model.DependencyReport{}, err
	}
	all, err := s.formQuestions(ctx, q.FormID)
	if err != nil {
		return model.DependencyReport{}, err
	}

	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.Active = true
	report := s.validator.Validate(*q, all)
	if err := s.recordCheck(report); err != nil {
		return report, err
	}

	if err := s.questionRepo.Create(ctx, q); err != nil {
		return report, err
	}
	s.logger.Info("question created", "question_id", q.ID, "form_id", q.FormID, "warnings", len(report.Warnings))
	return report, nil
}

// UpdateQuestion validates and replaces an existing question
func (s *FormService) UpdateQuestion(ctx context.Context, q *model.Question) (model.DependencyReport, error) {
	existing, err := s.getQuestion(ctx, q.ID)
	if err != nil {
		return model.DependencyReport{}, err
	}
	q.FormID = existing.FormID
	q.CreatedAt = existing.CreatedAt
	// Activation only changes through DeleteQuestion
	q.Active = existing.Active
	if err := checkQuestionFields(q); err != nil {
		return model.DependencyReport{}, err
	}

	all, err := s.questionRepo.GetByForm(ctx, q.FormID, false)
	if err != nil {
		return model.DependencyReport{}, err
	}
	report := s.validator.ValidateEdit(*q, all)
	if err := s.recordCheck(report); err != nil {
		return report, err
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return report, err
	}
	return report, nil
}

// DeleteQuestion soft-disables a question. A question with dependents is
// refused unless force is set, in which case its dependents go with it.
func (s *FormService) DeleteQuestion(ctx context.Context, id string, force bool) ([]model.DependentRef, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.questionRepo.GetByForm(ctx, q.FormID, false)
	if err != nil {
		return nil, err
	}

	g := conditional.NewGraph(all)
	refs := g.DependentRefs(id)
	if len(refs) > 0 && !force {
		return refs, &DependentsError{QuestionID: id, Dependents: refs}
	}

	ids := make([]string, 0, len(refs)+1)
	ids = append(ids, id)
	for _, ref := range refs {
		ids = append(ids, ref.ID)
	}
	if err := s.questionRepo.SetActive(ctx, ids, false); err != nil {
		return refs, err
	}
	s.logger.Info("question disabled", "question_id", id, "dependents", len(refs))
	return refs, nil
}

// ReorderQuestion moves a question to a new display position
func (s *FormService) ReorderQuestion(ctx context.Context, id string, order int) (model.DependencyReport, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return model.DependencyReport{}, err
	}
	all, err := s.questionRepo.GetByForm(ctx, q.FormID, false)
	if err != nil {
		return model.DependencyReport{}, err
	}

	report := s.validator.ValidateReorder(id, order, all)
	if err := s.recordCheck(report); err != nil {
		return report, err
	}
	return report, s.questionRepo.UpdateOrder(ctx, id, order)
}

// Dependents lists the direct and indirect dependents of a question
func (s *FormService) Dependents(ctx context.Context, id string) ([]model.DependentRef, error) {
	q, err := s.getQuestion(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.questionRepo.GetByForm(ctx, q.FormID, false)
	if err != nil {
		return nil, err
	}
	return conditional.NewGraph(all).DependentRefs(id), nil
}

// Analyze reports the conditional structure of a form
func (s *FormService) Analyze(ctx context.Context, formID string) (model.FormAnalysis, error) {
	all, err := s.Questions(ctx, formID, false)
	if err != nil {
		return model.FormAnalysis{}, err
	}
	return s.validator.Analyze(formID, conditional.NewGraph(all)), nil
}

func (s *FormService) formQuestions(ctx context.Context, formID string) ([]model.Question, error) {
	if _, err := s.GetForm(ctx, formID); err != nil {
		return nil, err
	}
	return s.questionRepo.GetByForm(ctx, formID, false)
}

func (s *FormService) getQuestion(ctx context.Context, id string) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, fmt.Errorf("question %s: %w", id, ErrNotFound)
	}
	return q, nil
}

func (s *FormService) recordCheck(report model.DependencyReport) error {
	if !report.Valid {
		s.metrics.DependencyChecks.WithLabelValues(metrics.ResultRejected).Inc()
		return &DependencyError{Report: report}
	}
	s.metrics.DependencyChecks.WithLabelValues(metrics.ResultAccepted).Inc()
	return nil
}

func checkQuestionFields(q *model.Question) error {
	if strings.TrimSpace(q.Prompt) == "" {
		return fmt.Errorf("%w: question prompt is required", ErrInvalidInput)
	}
	switch q.Kind {
	case model.KindSingleChoice, model.KindMultiChoice, model.KindRanking:
		if len(q.Options) == 0 {
			return fmt.Errorf("%w: %s question needs options", ErrInvalidInput, q.Kind)
		}
	case model.KindText, model.KindNumber:
	default:
		return fmt.Errorf("%w: unknown question kind %q", ErrInvalidInput, q.Kind)
	}
	return nil
}
