package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"immersive-exam-service/internal/app"
	"immersive-exam-service/internal/domain"
)

// ResultsCache caches final leaderboards in Redis (JSON per exam) and falls
// back to the wrapped archive on cache miss. Writes go through to the
// archive first so the cache never holds results the archive lost.
type ResultsCache struct {
	client *redis.Client
	inner  app.ResultsArchive
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewResultsCache(client *redis.Client, inner app.ResultsArchive, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		client: client,
		inner:  inner,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ResultsCache) SaveLeaderboard(ctx context.Context, lb domain.Leaderboard) error {
	if err := c.inner.SaveLeaderboard(ctx, lb); err != nil {
		return err
	}
	data, err := json.Marshal(lb)
	if err != nil {
		return fmt.Errorf("marshal leaderboard: %w", err)
	}
	return c.client.Set(ctx, c.key(lb.ExamID), data, c.ttlWithJitter()).Err()
}

func (c *ResultsCache) LoadLeaderboard(ctx context.Context, examID string) (domain.Leaderboard, error) {
	if lb, ok := c.cached(ctx, examID); ok {
		return lb, nil
	}

	result, err, _ := c.sf.Do(examID, func() (interface{}, error) {
		// Re-check in case another goroutine filled the cache.
		if lb, ok := c.cached(ctx, examID); ok {
			return lb, nil
		}

		lb, err := c.inner.LoadLeaderboard(ctx, examID)
		if err != nil {
			return domain.Leaderboard{}, err
		}

		if data, err := json.Marshal(lb); err == nil {
			_ = c.client.Set(ctx, c.key(examID), data, c.ttlWithJitter()).Err()
		}
		return lb, nil
	})
	if err != nil {
		return domain.Leaderboard{}, err
	}
	return result.(domain.Leaderboard), nil
}

func (c *ResultsCache) cached(ctx context.Context, examID string) (domain.Leaderboard, bool) {
	data, err := c.client.Get(ctx, c.key(examID)).Bytes()
	if err != nil {
		return domain.Leaderboard{}, false
	}
	var lb domain.Leaderboard
	if err := json.Unmarshal(data, &lb); err != nil {
		return domain.Leaderboard{}, false
	}
	return lb, true
}

func (c *ResultsCache) key(examID string) string {
	return "exam:" + examID + ":results"
}

func (c *ResultsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
