package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"

	"audite/internal/cache"
	"audite/internal/conditional"
	"audite/internal/metrics"
	"audite/internal/model"
	"audite/internal/repository/memrepo"
	"audite/internal/suggestion"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeDraftCache struct {
	items map[string]*model.Draft
}

func (c *fakeDraftCache) Set(_ context.Context, d *model.Draft) error {
	cp := *d
	cp.Answers = model.Submission{}
	for k, v := range d.Answers {
		cp.Answers[k] = v
	}
	c.items[d.SessionID] = &cp
	return nil
}

func (c *fakeDraftCache) Get(_ context.Context, sessionID string) (*model.Draft, error) {
	return c.items[sessionID], nil
}

func (c *fakeDraftCache) Delete(_ context.Context, sessionID string) error {
	delete(c.items, sessionID)
	return nil
}

type fakeResultCache struct {
	items map[string]*model.SessionResult
}

func (c *fakeResultCache) Set(_ context.Context, r *model.SessionResult) error {
	c.items[r.SessionID] = r
	return nil
}

func (c *fakeResultCache) Get(_ context.Context, sessionID string) (*model.SessionResult, error) {
	return c.items[sessionID], nil
}

type fakeStats struct {
	counts map[model.Sector]map[string]int
}

func (s *fakeStats) Record(_ context.Context, sector model.Sector, ids []string) error {
	if s.counts[sector] == nil {
		s.counts[sector] = map[string]int{}
	}
	for _, id := range ids {
		s.counts[sector][id]++
	}
	return nil
}

func (s *fakeStats) Top(_ context.Context, sector model.Sector, limit int) ([]cache.SuggestionCount, error) {
	out := []cache.SuggestionCount{}
	for id, n := range s.counts[sector] {
		out = append(out, cache.SuggestionCount{SuggestionID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].SuggestionID < out[j].SuggestionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

type sentMessage struct {
	sessionID string
	msgType   string
	payload   interface{}
}

type fakeBroadcaster struct {
	mu           sync.Mutex
	sent         []sentMessage
	disconnected []string
}

func (b *fakeBroadcaster) BroadcastToSession(sessionID string, msgType string, payload interface{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, sentMessage{sessionID, msgType, payload})
}

func (b *fakeBroadcaster) DisconnectSession(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnected = append(b.disconnected, sessionID)
}

// fixture wires every service over in-memory fakes
type fixture struct {
	categories  *memrepo.Categories
	forms       *memrepo.Forms
	questions   *memrepo.Questions
	answers     *memrepo.Answers
	drafts      *fakeDraftCache
	results     *fakeResultCache
	stats       *fakeStats
	broadcaster *fakeBroadcaster
	metrics     *metrics.Metrics

	formSvc       *FormService
	sessionSvc    *SessionService
	suggestionSvc *SuggestionService
}

func newFixture(policy model.Policy) *fixture {
	f := &fixture{
		categories:  memrepo.NewCategories(),
		forms:       memrepo.NewForms(),
		questions:   memrepo.NewQuestions(),
		answers:     memrepo.NewAnswers(),
		drafts:      &fakeDraftCache{items: map[string]*model.Draft{}},
		results:     &fakeResultCache{items: map[string]*model.SessionResult{}},
		stats:       &fakeStats{counts: map[model.Sector]map[string]int{}},
		broadcaster: &fakeBroadcaster{},
		metrics:     metrics.New(),
	}

	logger := discardLogger()
	evaluator := conditional.NewEvaluator(policy, logger)
	mapper := suggestion.NewMapper(nil, policy, logger)

	f.formSvc = NewFormService(f.categories, f.forms, f.questions, evaluator, f.metrics, logger)
	f.suggestionSvc = NewSuggestionService(f.categories, f.forms, f.questions, f.answers, f.results, f.stats, mapper, f.metrics, logger)
	f.sessionSvc = NewSessionService(f.forms, f.questions, f.answers, f.drafts, evaluator, f.suggestionSvc, f.metrics, logger)
	f.sessionSvc.SetBroadcaster(f.broadcaster)
	return f
}

// seedIrrigation stores an agricultural form:
// Q1 uses irrigation? -> Q2 method (if yes) -> Q3 pump type (if includes "pump");
// Q4 consumption is a required root.
func (f *fixture) seedIrrigation() {
	f.categories.Items["cat-agro"] = &model.Category{ID: "cat-agro", Name: "Agropecuario", Sector: model.SectorAgricultural, Active: true}
	f.forms.Items["form-1"] = &model.Form{ID: "form-1", CategoryID: "cat-agro", Name: "Campo", Active: true}

	for _, q := range []model.Question{
		{ID: "Q1", FormID: "form-1", Prompt: "Uses irrigation?", Kind: model.KindSingleChoice, Order: 1, Required: true, Active: true,
			Options: []model.Option{{Value: "yes", Label: "Yes"}, {Value: "no", Label: "No"}}},
		{ID: "Q2", FormID: "form-1", Prompt: "Irrigation method", Kind: model.KindText, Order: 2, Required: true, Active: true,
			ParentID: "Q1", Condition: &model.Condition{Operator: model.OperatorEquals, Value: "yes"}},
		{ID: "Q3", FormID: "form-1", Prompt: "Pump type", Kind: model.KindText, Order: 3, Active: true,
			ParentID: "Q2", Condition: &model.Condition{Operator: model.OperatorIncludes, Value: "pump"}},
		{ID: "Q4", FormID: "form-1", Prompt: "Monthly kWh", Kind: model.KindNumber, Order: 4, Required: true, Active: true},
	} {
		f.questions.Items[q.ID] = q
	}
}
