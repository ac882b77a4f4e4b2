package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"resource-ledger/pkg/logger"
	"resource-ledger/pkg/rediskey"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

var (
	cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_cache_hits_total"})
	cacheMiss = prometheus.NewCounter(prometheus.CounterOpts{Name: "leaderboard_cache_miss_total"})
)

func init() {
	prometheus.MustRegister(cacheHits, cacheMiss)
}

var errCacheMiss = errors.New("cache miss")

// pageStore is the byte store behind the page cache.
type pageStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisStore struct {
	rdb *redis.Client
}

func (s redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, errCacheMiss
	}
	return b, err
}

func (s redisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

// PageCache is a read-through cache of ranked pages. Concurrent misses for
// the same page share one query. Entries may be stale for up to ttl.
type PageCache struct {
	store pageStore
	ttl   time.Duration
	group singleflight.Group
}

func newPageCache(store pageStore, ttl time.Duration) *PageCache {
	return &PageCache{store: store, ttl: ttl}
}

// Load returns the cached page or runs load once for all concurrent callers
// of the same key. load receives a context detached from the caller's
// cancellation so one caller giving up does not fail the others.
func (c *PageCache) Load(ctx context.Context, window Window, page, pageSize int, load func(ctx context.Context) (*Page, error)) (*Page, error) {
	key := rediskey.BuildLeaderboardPageKey(string(window), page, pageSize)
	log := logger.FromContext(ctx).With(zap.String("key", key))

	if b, err := c.store.Get(ctx, key); err == nil {
		var cached Page
		if err := json.Unmarshal(b, &cached); err == nil {
			cacheHits.Inc()
			return &cached, nil
		}
	} else if !errors.Is(err, errCacheMiss) {
		log.Warn("leaderboard cache read failed", zap.Error(err))
	}
	cacheMiss.Inc()

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		p, err := load(shared)
		if err != nil {
			return nil, err
		}
		if b, err := json.Marshal(p); err == nil {
			if err := c.store.Set(shared, key, b, c.ttl); err != nil {
				log.Warn("leaderboard cache write failed", zap.Error(err))
			}
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Page), nil
}
