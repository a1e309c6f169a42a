package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"audite/internal/model"
)

// SuggestionStats counts how often each suggestion is issued, per sector (Redis ZSET)
type SuggestionStats interface {
	Record(ctx context.Context, sector model.Sector, suggestionIDs []string) error
	Top(ctx context.Context, sector model.Sector, limit int) ([]SuggestionCount, error)
}

// SuggestionCount is one entry of the popularity ranking
type SuggestionCount struct {
	SuggestionID string `json:"suggestionId"`
	Count        int    `json:"count"`
	Rank         int    `json:"rank"`
}

type suggestionStats struct {
	client *redis.Client
}

// NewSuggestionStats creates a new suggestion popularity counter
func NewSuggestionStats(client *redis.Client) SuggestionStats {
	return &suggestionStats{
		client: client,
	}
}

func (c *suggestionStats) key(sector model.Sector) string {
	return fmt.Sprintf("suggestions:%s:top", sector)
}

func (c *suggestionStats) Record(ctx context.Context, sector model.Sector, suggestionIDs []string) error {
	if len(suggestionIDs) == 0 {
		return nil
	}
	key := c.key(sector)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range suggestionIDs {
			pipe.ZIncrBy(ctx, key, 1, id)
		}
		return nil
	})
	return err
}

func (c *suggestionStats) Top(ctx context.Context, sector model.Sector, limit int) ([]SuggestionCount, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(sector), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]SuggestionCount, len(results))
	for i, z := range results {
		entries[i] = SuggestionCount{
			SuggestionID: z.Member.(string),
			Count:        int(z.Score),
			Rank:         i + 1,
		}
	}
	return entries, nil
}
