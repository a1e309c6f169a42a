// Package memrepo holds in-memory versions of the repositories for tests
// that exercise services and handlers without MongoDB
package memrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"audite/internal/model"
	"audite/internal/repository"
)

// Categories implements repository.CategoryRepo
type Categories struct {
	mu    sync.RWMutex
	Items map[string]*model.Category
}

// NewCategories creates an empty category store
func NewCategories() *Categories {
	return &Categories{Items: make(map[string]*model.Category)}
}

func (r *Categories) Create(_ context.Context, c *model.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.Items[c.ID] = c
	return nil
}

func (r *Categories) Upsert(ctx context.Context, c *model.Category) error {
	return r.Create(ctx, c)
}

func (r *Categories) GetByID(_ context.Context, id string) (*model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Items[id], nil
}

func (r *Categories) List(_ context.Context, activeOnly bool) ([]*model.Category, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Category{}
	for _, c := range r.Items {
		if !activeOnly || c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Forms implements repository.FormRepo
type Forms struct {
	mu    sync.RWMutex
	Items map[string]*model.Form
}

// NewForms creates an empty form store
func NewForms() *Forms {
	return &Forms{Items: make(map[string]*model.Form)}
}

func (r *Forms) Create(_ context.Context, f *model.Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	r.Items[f.ID] = f
	return nil
}

func (r *Forms) Upsert(ctx context.Context, f *model.Form) error {
	return r.Create(ctx, f)
}

func (r *Forms) GetByID(_ context.Context, id string) (*model.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.Items[id], nil
}

func (r *Forms) GetByCategory(_ context.Context, categoryID string, activeOnly bool) ([]*model.Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*model.Form{}
	for _, f := range r.Items {
		if f.CategoryID == categoryID && (!activeOnly || f.Active) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Questions implements repository.QuestionRepo
type Questions struct {
	mu    sync.RWMutex
	Items map[string]model.Question
}

// NewQuestions creates a question store holding qs
func NewQuestions(qs ...model.Question) *Questions {
	r := &Questions{Items: make(map[string]model.Question)}
	for _, q := range qs {
		r.Items[q.ID] = q
	}
	return r
}

func (r *Questions) Create(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	r.Items[q.ID] = *q
	return nil
}

func (r *Questions) GetByID(_ context.Context, id string) (*model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q, ok := r.Items[id]
	if !ok {
		return nil, nil
	}
	return &q, nil
}

func (r *Questions) Update(_ context.Context, q *model.Question) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Items[q.ID] = *q
	return nil
}

func (r *Questions) Upsert(ctx context.Context, q *model.Question) error {
	return r.Update(ctx, q)
}

func (r *Questions) UpdateOrder(_ context.Context, id string, order int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if q, ok := r.Items[id]; ok {
		q.Order = order
		r.Items[id] = q
	}
	return nil
}

func (r *Questions) SetActive(_ context.Context, ids []string, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if q, ok := r.Items[id]; ok {
			q.Active = active
			r.Items[id] = q
		}
	}
	return nil
}

func (r *Questions) GetByForm(_ context.Context, formID string, activeOnly bool) ([]model.Question, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []model.Question{}
	for _, q := range r.Items {
		if q.FormID == formID && (!activeOnly || q.Active) {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Answers implements repository.AnswerRepository
type Answers struct {
	mu        sync.RWMutex
	BySession map[string][]*model.Answer
	// FailWith makes CreateBatch fail, simulating a storage outage
	FailWith error
}

// NewAnswers creates an empty answer store
func NewAnswers() *Answers {
	return &Answers{BySession: make(map[string][]*model.Answer)}
}

func (r *Answers) EnsureIndexes(context.Context) error { return nil }

func (r *Answers) CreateBatch(_ context.Context, answers []*model.Answer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailWith != nil {
		return r.FailWith
	}
	if len(answers) > 0 && len(r.BySession[answers[0].SessionID]) > 0 {
		return repository.ErrAlreadySubmitted
	}
	for _, a := range answers {
		if a.ID == "" {
			a.ID = uuid.NewString()
		}
		r.BySession[a.SessionID] = append(r.BySession[a.SessionID], a)
	}
	return nil
}

func (r *Answers) GetBySessionID(_ context.Context, sessionID string) ([]*model.Answer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.BySession[sessionID], nil
}

func (r *Answers) ExistsForSession(_ context.Context, sessionID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.BySession[sessionID]) > 0, nil
}

var (
	_ repository.CategoryRepo     = (*Categories)(nil)
	_ repository.FormRepo         = (*Forms)(nil)
	_ repository.QuestionRepo     = (*Questions)(nil)
	_ repository.AnswerRepository = (*Answers)(nil)
)
