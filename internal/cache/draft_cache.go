package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"audite/internal/model"
)

// DraftCache keeps the in-progress answers of a session until it is submitted
type DraftCache interface {
	Set(ctx context.Context, draft *model.Draft) error
	Get(ctx context.Context, sessionID string) (*model.Draft, error)
	Delete(ctx context.Context, sessionID string) error
}

type draftCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftCache creates a new draft cache; drafts expire ttl after their last save
func NewDraftCache(client *redis.Client, ttl time.Duration) DraftCache {
	return &draftCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *draftCache) key(sessionID string) string {
	return fmt.Sprintf("session:%s:draft", sessionID)
}

func (c *draftCache) Set(ctx context.Context, draft *model.Draft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(draft.SessionID), data, c.ttl).Err()
}

func (c *draftCache) Get(ctx context.Context, sessionID string) (*model.Draft, error) {
	data, err := c.client.Get(ctx, c.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var draft model.Draft
	if err := json.Unmarshal(data, &draft); err != nil {
		return nil, err
	}
	if draft.Answers == nil {
		draft.Answers = model.Submission{}
	}
	return &draft, nil
}

func (c *draftCache) Delete(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, c.key(sessionID)).Err()
}
