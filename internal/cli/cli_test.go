package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/repository/memrepo"
	"audite/internal/seed"
)

type memStore struct {
	store  seed.Store
	opened int
	closed int
}

func newMemStore() *memStore {
	return &memStore{store: seed.Store{
		Categories: memrepo.NewCategories(),
		Forms:      memrepo.NewForms(),
		Questions:  memrepo.NewQuestions(),
	}}
}

func (m *memStore) open(context.Context) (seed.Store, func(), error) {
	m.opened++
	return m.store, func() { m.closed++ }, nil
}

func run(t *testing.T, open StoreOpener, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLintCommand(t *testing.T) {
	out, err := run(t, nil, "lint", "--file", "../seed/testdata/valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "form-1")
	assert.Contains(t, out, "ok")

	out, err = run(t, nil, "lint", "-f", "../seed/testdata/broken.yaml")
	assert.ErrorIs(t, err, ErrLintFailed)
	assert.Contains(t, out, "dangling_parent")
	assert.Contains(t, out, "unknown_kind")

	_, err = run(t, nil, "lint")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	mem := newMemStore()

	out, err := run(t, mem.open, "seed", "--file", "../seed/testdata/valid.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 2 categories, 1 forms, 3 questions")
	assert.Equal(t, 1, mem.opened)
	assert.Equal(t, 1, mem.closed)

	questions := mem.store.Questions.(*memrepo.Questions)
	assert.Contains(t, questions.Items, "form-1.q2")
}

func TestSeedCommandRefusesBrokenFile(t *testing.T) {
	mem := newMemStore()

	_, err := run(t, mem.open, "seed", "--file", "../seed/testdata/broken.yaml")
	assert.ErrorIs(t, err, ErrLintFailed)
	assert.Zero(t, mem.opened)

	out, err := run(t, mem.open, "seed", "--file", "../seed/testdata/broken.yaml", "--force")
	require.NoError(t, err)
	assert.Contains(t, out, "3 questions")
}

func TestSeedCommandDryRun(t *testing.T) {
	mem := newMemStore()

	out, err := run(t, mem.open, "seed", "--file", "../seed/testdata/valid.yaml", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "dry run")
	assert.Zero(t, mem.opened)
}

func TestSeedCommandStoreError(t *testing.T) {
	failing := func(context.Context) (seed.Store, func(), error) {
		return seed.Store{}, nil, errors.New("mongo down")
	}
	_, err := run(t, failing, "seed", "--file", "../seed/testdata/valid.yaml")
	assert.EqualError(t, err, "mongo down")
}
