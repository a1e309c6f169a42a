package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/model"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestDraftCache(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	drafts := NewDraftCache(client, time.Hour)

	missing, err := drafts.Get(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	draft := &model.Draft{
		SessionID: "s1",
		FormID:    "f1",
		Answers: model.Submission{
			"Q1": {Value: model.Text("gravity")},
			"Q2": {Value: model.List("a", "b"), Other: "c"},
			"Q3": {Value: model.Number(42)},
		},
	}
	require.NoError(t, drafts.Set(ctx, draft))
	assert.Equal(t, time.Hour, mr.TTL("session:s1:draft"))

	got, err := drafts.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FormID)
	assert.Equal(t, draft.Answers, got.Answers)

	require.NoError(t, drafts.Delete(ctx, "s1"))
	got, err = drafts.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestDraftCacheExpires(t *testing.T) {
	ctx := context.Background()
	mr, client := newRedis(t)
	drafts := NewDraftCache(client, time.Minute)

	require.NoError(t, drafts.Set(ctx, &model.Draft{SessionID: "s1"}))
	mr.FastForward(2 * time.Minute)

	got, err := drafts.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestResultCache(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	results := NewResultCache(client, time.Hour)

	in := &model.SessionResult{
		SessionID:   "s1",
		Sector:      model.SectorAgricultural,
		Suggestions: []model.Suggestion{{ID: "agro_01", Priority: model.PriorityHigh}},
		AnswerCount: 3,
	}
	require.NoError(t, results.Set(ctx, in))

	out, err := results.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, "agro_01", out.Suggestions[0].ID)
	assert.Equal(t, 3, out.AnswerCount)

	out, err = results.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestSuggestionStats(t *testing.T) {
	ctx := context.Background()
	_, client := newRedis(t)
	stats := NewSuggestionStats(client)

	require.NoError(t, stats.Record(ctx, model.SectorIndustrial, []string{"industrial_01", "industrial_03"}))
	require.NoError(t, stats.Record(ctx, model.SectorIndustrial, []string{"industrial_03"}))
	require.NoError(t, stats.Record(ctx, model.SectorServices, []string{"servicios_01"}))
	require.NoError(t, stats.Record(ctx, model.SectorServices, nil))

	top, err := stats.Top(ctx, model.SectorIndustrial, 5)
	require.NoError(t, err)
	assert.Equal(t, []SuggestionCount{
		{SuggestionID: "industrial_03", Count: 2, Rank: 1},
		{SuggestionID: "industrial_01", Count: 1, Rank: 2},
	}, top)

	top, err = stats.Top(ctx, model.SectorAgricultural, 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}
