package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DueCache keeps a per-user sorted set of knowledge-point ids scored by due
// time, so "what is due now" never needs a table scan. The cache is
// advisory: progress_records remains the source of truth and a cold cache
// only costs a rebuild.
type DueCache struct {
	client *redis.Client
}

// NewDueCache wraps a redis client.
func NewDueCache(client *redis.Client) *DueCache {
	return &DueCache{client: client}
}

func dueKey(userID string) string {
	return "due:" + userID
}

// SetDue records (or moves) a point's due time for a user.
func (c *DueCache) SetDue(ctx context.Context, userID, knowledgePointID string, dueAt time.Time) error {
	err := c.client.ZAdd(ctx, dueKey(userID), redis.Z{
		Score:  float64(dueAt.Unix()),
		Member: knowledgePointID,
	}).Err()
	if err != nil {
		return fmt.Errorf("cache due time: %w", err)
	}
	return nil
}

// DueBefore returns the point ids due at or before cutoff, soonest first.
func (c *DueCache) DueBefore(ctx context.Context, userID string, cutoff time.Time) ([]string, error) {
	ids, err := c.client.ZRangeByScore(ctx, dueKey(userID), &redis.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff.Unix()),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read due queue: %w", err)
	}
	return ids, nil
}

// Remove drops a point from the user's due queue.
func (c *DueCache) Remove(ctx context.Context, userID, knowledgePointID string) error {
	if err := c.client.ZRem(ctx, dueKey(userID), knowledgePointID).Err(); err != nil {
		return fmt.Errorf("remove from due queue: %w", err)
	}
	return nil
}

// Rebuild replaces a user's due queue wholesale from stored records.
func (c *DueCache) Rebuild(ctx context.Context, userID string, dueAt map[string]time.Time) error {
	key := dueKey(userID)
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	for id, t := range dueAt {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(t.Unix()), Member: id})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("rebuild due queue: %w", err)
	}
	return nil
}
