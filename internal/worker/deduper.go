package worker

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"donezo/internal/logger"
)

// Deduper reports whether key is seen for the first time within its TTL.
type Deduper interface {
	AcquireOnce(ctx context.Context, key string) bool
}

type RedisDeduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisDeduper(rdb *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{rdb: rdb, ttl: ttl, prefix: "donezo:dedup:"}
}

// AcquireOnce fails open: when Redis is unreachable the key is treated as new,
// so a notification may repeat but is never lost.
func (d *RedisDeduper) AcquireOnce(ctx context.Context, key string) bool {
	ok, err := d.rdb.SetNX(ctx, d.prefix+key, 1, d.ttl).Result()
	if err != nil {
		logger.Warn("Worker: redis dedup check failed, allowing",
			zap.String("dedup_key", key),
			zap.Error(err))
		return true
	}
	if !ok {
		logger.Debug("Worker: skipped duplicate", zap.String("dedup_key", key))
	}
	return ok
}

func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// MemoryDeduper is used when no Redis address is configured. State is lost on
// restart.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryDeduper(ttl time.Duration) *MemoryDeduper {
	return &MemoryDeduper{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (d *MemoryDeduper) AcquireOnce(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if expires, ok := d.seen[key]; ok && now.Before(expires) {
		return false
	}

	for k, expires := range d.seen {
		if !now.Before(expires) {
			delete(d.seen, k)
		}
	}
	d.seen[key] = now.Add(d.ttl)
	return true
}
