package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	cacheKey        = "recommend:all"
	DefaultCacheTTL = 10 * time.Minute
)

// Cache keeps the last full recommendation list in Redis. A nil Cache or nil client is a no-op.
type Cache struct {
	RDB *redis.Client
	TTL time.Duration
}

func (c *Cache) enabled() bool {
	return c != nil && c.RDB != nil
}

func (c *Cache) Get(ctx context.Context) ([]Recommendation, bool) {
	if !c.enabled() {
		return nil, false
	}
	raw, err := c.RDB.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Msg("recommend cache read")
		}
		return nil, false
	}
	var recs []Recommendation
	if err := json.Unmarshal(raw, &recs); err != nil {
		log.Warn().Err(err).Msg("recommend cache decode")
		return nil, false
	}
	return recs, true
}

func (c *Cache) Set(ctx context.Context, recs []Recommendation) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return
	}
	ttl := c.TTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if err := c.RDB.Set(ctx, cacheKey, raw, ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("recommend cache write")
	}
}

func (c *Cache) Invalidate(ctx context.Context) error {
	if !c.enabled() {
		return nil
	}
	return c.RDB.Del(ctx, cacheKey).Err()
}
