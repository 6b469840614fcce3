package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ora-civic/ora/internal/ai"
	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

const (
	// DefaultTrendingTTL is how long a trending ranking stays cached.
	DefaultTrendingTTL = 5 * time.Minute

	// TrendingKeyPrefix identifies trending ranking entries in Redis.
	TrendingKeyPrefix = "ora:trending:"
)

// TrendingCache keeps model rankings in Redis keyed by the exact candidate set,
// so a new post or a changed page invalidates the entry.
type TrendingCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTrendingCache creates a TrendingCache. A non-positive ttl uses DefaultTrendingTTL.
func NewTrendingCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *TrendingCache {
	if ttl <= 0 {
		ttl = DefaultTrendingTTL
	}

	return &TrendingCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("trending_cache"),
	}
}

// Get returns the cached ranking for the candidate IDs.
func (c *TrendingCache) Get(ctx context.Context, ids []string) ([]ai.RankedPost, bool) {
	key := trendingKey(ids)

	data, err := c.client.Do(ctx, c.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if !rueidis.IsRedisNil(err) {
			c.logger.Warn("Failed to get trending ranking from Redis", zap.Error(err))
		}
		return nil, false
	}

	var ranking []ai.RankedPost
	if err := sonic.Unmarshal(data, &ranking); err != nil {
		c.logger.Warn("Invalid trending ranking in Redis", zap.String("key", key), zap.Error(err))
		return nil, false
	}

	c.logger.Debug("Retrieved trending ranking from cache", zap.Int("posts", len(ranking)))

	return ranking, true
}

// Set caches a ranking for the candidate IDs. Failures are logged only.
func (c *TrendingCache) Set(ctx context.Context, ids []string, ranking []ai.RankedPost) {
	data, err := sonic.Marshal(ranking)
	if err != nil {
		c.logger.Warn("Failed to encode trending ranking", zap.Error(err))
		return
	}

	key := trendingKey(ids)
	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(rueidis.BinaryString(data)).Ex(c.ttl).Build()).Error()
	if err != nil {
		c.logger.Warn("Failed to set trending ranking in Redis", zap.Error(err))
	}
}

func trendingKey(ids []string) string {
	sum := sha256.Sum256([]byte(strings.Join(ids, ",")))
	return TrendingKeyPrefix + hex.EncodeToString(sum[:16])
}
