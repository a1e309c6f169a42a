package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"audite/internal/cache"
	"audite/internal/metrics"
	"audite/internal/model"
	"audite/internal/repository"
	"audite/internal/suggestion"
)

// SuggestionService builds, caches and counts the results of completed sessions
type SuggestionService struct {
	categoryRepo repository.CategoryRepo
	formRepo     repository.FormRepo
	questionRepo repository.QuestionRepo
	answerRepo   repository.AnswerRepository
	resultCache  cache.ResultCache
	stats        cache.SuggestionStats
	mapper       *suggestion.Mapper
	metrics      *metrics.Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// NewSuggestionService creates a new suggestion service
func NewSuggestionService(
	categoryRepo repository.CategoryRepo,
	formRepo repository.FormRepo,
	questionRepo repository.QuestionRepo,
	answerRepo repository.AnswerRepository,
	resultCache cache.ResultCache,
	stats cache.SuggestionStats,
	mapper *suggestion.Mapper,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SuggestionService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &SuggestionService{
		categoryRepo: categoryRepo,
		formRepo:     formRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		resultCache:  resultCache,
		stats:        stats,
		mapper:       mapper,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// CheckSector resolves the category of a form and rejects unrecognized
// sectors under the fail-closed policy
func (s *SuggestionService) CheckSector(ctx context.Context, form *model.Form) (*model.Category, error) {
	category, err := s.categoryRepo.GetByID(ctx, form.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, fmt.Errorf("category %s: %w", form.CategoryID, ErrNotFound)
	}
	if !category.Sector.Recognized() && s.mapper.Policy == model.PolicyFailClosed {
		return nil, fmt.Errorf("category %s: %w: %q", category.ID, suggestion.ErrUnrecognizedSector, category.Sector)
	}
	return category, nil
}

// Complete builds the result of a freshly submitted session, caches it and
// counts the issued suggestions
func (s *SuggestionService) Complete(ctx context.Context, sessionID string, form *model.Form, answers model.AnswerMap, questions []model.Question) (*model.SessionResult, error) {
	category, err := s.CheckSector(ctx, form)
	if err != nil {
		return nil, err
	}
	result, err := s.build(sessionID, form, category, answers, questions)
	if err != nil {
		return nil, err
	}

	if err := s.resultCache.Set(ctx, result); err != nil {
		s.logger.Warn("failed to cache session result", "session_id", sessionID, "error", err)
	}

	ids := make([]string, 0, len(result.Suggestions))
	for _, sg := range result.Suggestions {
		ids = append(ids, sg.ID)
		s.metrics.Suggestions.WithLabelValues(string(result.Sector), string(sg.Source)).Inc()
	}
	if err := s.stats.Record(ctx, result.Sector, ids); err != nil {
		s.logger.Warn("failed to record suggestion stats", "session_id", sessionID, "error", err)
	}

	s.logger.Info("session result built",
		"session_id", sessionID,
		"sector", result.Sector,
		"suggestions", len(result.Suggestions),
	)
	return result, nil
}

// ForSession returns the cached result of a session, rebuilding it from the
// persisted answers when the cache has expired
func (s *SuggestionService) ForSession(ctx context.Context, sessionID string) (*model.SessionResult, error) {
	cached, err := s.resultCache.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to read cached result", "session_id", sessionID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	answers, err := s.answerRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("session %s has no submitted answers: %w", sessionID, ErrNotFound)
	}

	form, err := s.formRepo.GetByID(ctx, answers[0].FormID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", answers[0].FormID, ErrNotFound)
	}
	category, err := s.CheckSector(ctx, form)
	if err != nil {
		return nil, err
	}
	// Inactive questions still carry the option text of answers given before
	questions, err := s.questionRepo.GetByForm(ctx, form.ID, false)
	if err != nil {
		return nil, err
	}

	result, err := s.build(sessionID, form, category, model.AnswerMapFrom(answers), questions)
	if err != nil {
		return nil, err
	}
	if err := s.resultCache.Set(ctx, result); err != nil {
		s.logger.Warn("failed to cache session result", "session_id", sessionID, "error", err)
	}
	return result, nil
}

// Top returns the most issued suggestions of a sector
func (s *SuggestionService) Top(ctx context.Context, sector model.Sector, limit int) ([]cache.SuggestionCount, error) {
	if !sector.Recognized() {
		return nil, fmt.Errorf("%w: unknown sector %q", ErrInvalidInput, sector)
	}
	return s.stats.Top(ctx, sector, limit)
}

func (s *SuggestionService) build(sessionID string, form *model.Form, category *model.Category, answers model.AnswerMap, questions []model.Question) (*model.SessionResult, error) {
	suggestions, err := s.mapper.Map(category.Sector, answers, questions)
	if err != nil {
		return nil, err
	}
	if !category.Sector.Recognized() {
		s.metrics.PolicyFallbacks.WithLabelValues("sector").Inc()
	}

	return &model.SessionResult{
		SessionID:    sessionID,
		FormID:       form.ID,
		CategoryName: category.Name,
		Sector:       category.Sector,
		Suggestions:  suggestions,
		Plan:         suggestion.Plan(suggestions),
		Profile:      suggestion.BuildProfile(category.Sector, answers),
		AnswerCount:  countAnswers(answers),
		GeneratedAt:  s.now(),
	}, nil
}

// countAnswers ignores the synthetic "other" slots
func countAnswers(answers model.AnswerMap) int {
	n := 0
	for id := range answers {
		if _, ok := model.SplitOtherKey(id); !ok {
			n++
		}
	}
	return n
}

// IsUnrecognizedSector reports whether err stems from the fail-closed sector check
func IsUnrecognizedSector(err error) bool {
	return errors.Is(err, suggestion.ErrUnrecognizedSector)
}
