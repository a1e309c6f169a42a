package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"audite/internal/cache"
	"audite/internal/conditional"
	"audite/internal/metrics"
	"audite/internal/model"
	"audite/internal/repository"
)

// SubmitMeta carries request details stored with each answer
type SubmitMeta struct {
	FormID    string // Needed only when the session has no draft
	IPAddress string
	UserAgent string
}

// VisibleQuestionsEvent is pushed to live clients after each draft save
type VisibleQuestionsEvent struct {
	SessionID string           `json:"sessionId"`
	FormID    string           `json:"formId"`
	Questions []model.Question `json:"questions"`
}

// SessionCompletedEvent is pushed to live clients once answers are stored
type SessionCompletedEvent struct {
	SessionID   string `json:"sessionId"`
	Suggestions int    `json:"suggestions"`
}

// SessionService drives a respondent session from draft to submission
type SessionService struct {
	formRepo     repository.FormRepo
	questionRepo repository.QuestionRepo
	answerRepo   repository.AnswerRepository
	draftCache   cache.DraftCache
	evaluator    conditional.Evaluator
	suggestions  *SuggestionService
	metrics      *metrics.Metrics
	logger       *slog.Logger
	broadcaster  Broadcaster
	now          func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	formRepo repository.FormRepo,
	questionRepo repository.QuestionRepo,
	answerRepo repository.AnswerRepository,
	draftCache cache.DraftCache,
	evaluator conditional.Evaluator,
	suggestions *SuggestionService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *SessionService {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.New()
	}
	return &SessionService{
		formRepo:     formRepo,
		questionRepo: questionRepo,
		answerRepo:   answerRepo,
		draftCache:   draftCache,
		evaluator:    evaluator,
		suggestions:  suggestions,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *SessionService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// Start opens a new session on a form
func (s *SessionService) Start(ctx context.Context, formID string) (*model.Draft, error) {
	if _, err := s.getForm(ctx, formID); err != nil {
		return nil, err
	}

	now := s.now()
	draft := &model.Draft{
		SessionID: uuid.NewString(),
		FormID:    formID,
		Answers:   model.Submission{},
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := s.draftCache.Set(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.logger.Info("session started", "session_id", draft.SessionID, "form_id", formID)
	return draft, nil
}

// SaveDraft merges answers into the in-progress draft and returns the
// questions visible for the merged answers. Empty answers clear their slot.
func (s *SessionService) SaveDraft(ctx context.Context, sessionID, formID string, answers model.Submission) ([]model.Question, error) {
	if err := s.checkOpen(ctx, sessionID); err != nil {
		return nil, err
	}

	draft, err := s.draftCache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		// Expired or never started: recreate from the client's form ID
		if formID == "" {
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
		}
		if _, err := s.getForm(ctx, formID); err != nil {
			return nil, err
		}
		draft = &model.Draft{SessionID: sessionID, FormID: formID, Answers: model.Submission{}, StartedAt: s.now()}
	} else if formID != "" && formID != draft.FormID {
		return nil, fmt.Errorf("%w: session %s belongs to form %s", ErrInvalidInput, sessionID, draft.FormID)
	}

	if draft.Answers == nil {
		draft.Answers = model.Submission{}
	}
	for id, resp := range answers {
		if resp.Value.IsEmpty() && strings.TrimSpace(resp.Other) == "" {
			delete(draft.Answers, id)
			continue
		}
		draft.Answers[id] = resp
	}
	draft.UpdatedAt = s.now()

	if err := s.draftCache.Set(ctx, draft); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}
	s.metrics.DraftSaves.Inc()

	visible, err := s.resolve(ctx, draft.FormID, draft.Answers.Preprocess())
	if err != nil {
		return nil, err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToSession(sessionID, MsgVisibleQuestions, VisibleQuestionsEvent{
			SessionID: sessionID,
			FormID:    draft.FormID,
			Questions: visible,
		})
	}
	return visible, nil
}

// Submit validates and stores the final answer batch of a session, then
// builds its suggestions. A nil submission submits the saved draft.
// The returned result is nil when answers were stored but building the
// suggestions failed; they can be rebuilt later from the stored answers.
func (s *SessionService) Submit(ctx context.Context, sessionID string, sub model.Submission, meta SubmitMeta) (*model.SessionResult, error) {
	if err := s.checkOpen(ctx, sessionID); err != nil {
		s.metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	draft, err := s.draftCache.Get(ctx, sessionID)
	if err != nil {
		s.logger.Warn("failed to load draft", "session_id", sessionID, "error", err)
	}
	formID := meta.FormID
	if draft != nil {
		if formID == "" {
			formID = draft.FormID
		} else if formID != draft.FormID {
			return nil, fmt.Errorf("%w: session %s belongs to form %s", ErrInvalidInput, sessionID, draft.FormID)
		}
		if sub == nil {
			sub = draft.Answers
		}
	}
	if formID == "" {
		return nil, fmt.Errorf("%w: form ID is required for a session without draft", ErrInvalidInput)
	}
	if len(sub) == 0 {
		return nil, fmt.Errorf("%w: no answers to submit", ErrInvalidInput)
	}

	form, err := s.getForm(ctx, formID)
	if err != nil {
		return nil, err
	}
	if _, err := s.suggestions.CheckSector(ctx, form); err != nil {
		s.metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	questions, err := s.questionRepo.GetByForm(ctx, form.ID, true)
	if err != nil {
		return nil, err
	}
	report := s.evaluator.ValidateSubmission(sub, questions)
	if !report.Valid {
		s.metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
		s.logger.Info("submission rejected",
			"session_id", sessionID,
			"missing_required", len(report.MissingRequired),
			"unexpected_extra", len(report.UnexpectedExtra),
		)
		return nil, &SubmissionError{Report: report}
	}

	answers := buildAnswers(sessionID, form.ID, sub, questions, meta, s.now())
	if err := s.answerRepo.CreateBatch(ctx, answers); err != nil {
		if errors.Is(err, repository.ErrAlreadySubmitted) {
			s.metrics.Submissions.WithLabelValues(metrics.ResultRejected).Inc()
			return nil, fmt.Errorf("session %s: %w", sessionID, ErrSessionSubmitted)
		}
		s.metrics.Submissions.WithLabelValues(metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to store answers: %w", err)
	}
	s.metrics.Submissions.WithLabelValues(metrics.ResultAccepted).Inc()
	s.logger.Info("session submitted", "session_id", sessionID, "form_id", form.ID, "answers", len(answers))

	if err := s.draftCache.Delete(ctx, sessionID); err != nil {
		s.logger.Warn("failed to delete draft", "session_id", sessionID, "error", err)
	}

	// Answers are stored at this point; suggestions can be rebuilt later
	result, err := s.suggestions.Complete(ctx, sessionID, form, sub.Preprocess(), questions)
	if err != nil {
		s.logger.Error("failed to build suggestions", "session_id", sessionID, "error", err)
		result = nil
	}

	if s.broadcaster != nil {
		event := SessionCompletedEvent{SessionID: sessionID}
		if result != nil {
			event.Suggestions = len(result.Suggestions)
		}
		s.broadcaster.BroadcastToSession(sessionID, MsgSessionCompleted, event)
		s.broadcaster.DisconnectSession(sessionID)
	}
	return result, nil
}

// Status reports the progress of a session
func (s *SessionService) Status(ctx context.Context, sessionID string) (*model.SessionStatusView, error) {
	stored, err := s.answerRepo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(stored) > 0 {
		return s.completedStatus(ctx, sessionID, stored)
	}

	draft, err := s.draftCache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft == nil {
		return &model.SessionStatusView{SessionID: sessionID, Status: model.SessionNotStarted}, nil
	}

	visible, err := s.resolve(ctx, draft.FormID, draft.Answers.Preprocess())
	if err != nil {
		return nil, err
	}
	answered := 0
	for _, q := range visible {
		if _, ok := draft.Answers[q.ID]; ok {
			answered++
		}
	}

	startedAt, updatedAt := draft.StartedAt, draft.UpdatedAt
	view := &model.SessionStatusView{
		SessionID:       sessionID,
		FormID:          draft.FormID,
		Status:          model.SessionInProgress,
		Answered:        answered,
		Visible:         len(visible),
		ProgressPercent: percent(answered, len(visible)),
		LastAnsweredAt:  &updatedAt,
	}
	if !startedAt.IsZero() {
		view.StartedAt = &startedAt
	}
	return view, nil
}

// Visible returns the questions currently visible for a session. Without a
// draft, formID selects the form and only its root questions are visible.
func (s *SessionService) Visible(ctx context.Context, sessionID, formID string) ([]model.Question, error) {
	draft, err := s.draftCache.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load draft: %w", err)
	}
	if draft != nil {
		return s.resolve(ctx, draft.FormID, draft.Answers.Preprocess())
	}
	if formID == "" {
		return nil, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if _, err := s.getForm(ctx, formID); err != nil {
		return nil, err
	}
	return s.resolve(ctx, formID, nil)
}

func (s *SessionService) completedStatus(ctx context.Context, sessionID string, stored []*model.Answer) (*model.SessionStatusView, error) {
	formID := stored[0].FormID
	var last time.Time
	answered := make(map[string]bool, len(stored))
	for _, a := range stored {
		answered[a.QuestionID] = true
		if a.AnsweredAt.After(last) {
			last = a.AnsweredAt
		}
	}

	questions, err := s.questionRepo.GetByForm(ctx, formID, false)
	if err != nil {
		return nil, err
	}
	visible := s.evaluator.ResolveVisible(questions, model.AnswerMapFrom(stored))

	return &model.SessionStatusView{
		SessionID:       sessionID,
		FormID:          formID,
		Status:          model.SessionCompleted,
		Answered:        len(answered),
		Visible:         len(visible),
		ProgressPercent: 100,
		LastAnsweredAt:  &last,
	}, nil
}

func (s *SessionService) resolve(ctx context.Context, formID string, answers model.AnswerMap) ([]model.Question, error) {
	questions, err := s.questionRepo.GetByForm(ctx, formID, true)
	if err != nil {
		return nil, err
	}
	return s.evaluator.ResolveVisible(questions, answers), nil
}

func (s *SessionService) checkOpen(ctx context.Context, sessionID string) error {
	submitted, err := s.answerRepo.ExistsForSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if submitted {
		return fmt.Errorf("session %s: %w", sessionID, ErrSessionSubmitted)
	}
	return nil
}

func (s *SessionService) getForm(ctx context.Context, formID string) (*model.Form, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, fmt.Errorf("form %s: %w", formID, ErrNotFound)
	}
	return form, nil
}

// buildAnswers turns a validated batch into one record per question. Raw
// "_other" entries are folded into the answer of their question.
func buildAnswers(sessionID, formID string, sub model.Submission, questions []model.Question, meta SubmitMeta, now time.Time) []*model.Answer {
	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.ID] = true
	}

	byQuestion := make(map[string]*model.Answer, len(sub))
	record := func(questionID string) *model.Answer {
		if a, ok := byQuestion[questionID]; ok {
			return a
		}
		a := &model.Answer{
			SessionID:  sessionID,
			FormID:     formID,
			QuestionID: questionID,
			IPAddress:  meta.IPAddress,
			UserAgent:  meta.UserAgent,
			AnsweredAt: now,
		}
		byQuestion[questionID] = a
		return a
	}

	for id, resp := range sub {
		if base, ok := model.SplitOtherKey(id); ok && !known[id] {
			text := strings.TrimSpace(resp.Value.String())
			if text == "" {
				continue
			}
			if a := record(base); a.Other == "" {
				a.Other = text
			}
			continue
		}
		a := record(id)
		a.Value = resp.Value
		if other := strings.TrimSpace(resp.Other); other != "" {
			a.Other = other
		}
	}

	out := make([]*model.Answer, 0, len(byQuestion))
	for _, a := range byQuestion {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	pct := float64(part) / float64(total) * 100
	return float64(int(pct*100+0.5)) / 100
}
