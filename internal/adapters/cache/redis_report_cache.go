package cache

import (
	"context"
	"errors"
	"fmt"
	"sla-attribution-service/internal/domain"
	"sla-attribution-service/internal/platform/obs"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "sla:report:"

	fieldRunID    = "run_id"
	fieldWorkbook = "workbook"
)

// RedisReportCache keeps rendered report workbooks in redis for a fixed TTL.
// Keys are input digests, so an entry never needs invalidation; it just ages out.
type RedisReportCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) (*RedisReportCache, error) {
	if client == nil {
		return nil, errors.New("report cache: redis client is nil")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("report cache: ttl must be positive, got %s", ttl)
	}
	return &RedisReportCache{client: client, ttl: ttl, prefix: defaultKeyPrefix}, nil
}

// Dial connects to redis at addr and verifies the connection.
func Dial(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dial redis %q: %w", addr, err)
	}

	return client, nil
}

// Get returns the cached report for key. A miss is not an error.
func (c *RedisReportCache) Get(ctx context.Context, key string) (_ domain.CachedReport, _ bool, err error) {
	defer obs.Time(ctx, "report.cache.Get")(&err)

	key = strings.TrimSpace(key)
	if key == "" {
		return domain.CachedReport{}, false, errors.New("get report cache: key must not be empty")
	}

	fields, err := c.client.HGetAll(ctx, c.prefix+key).Result()
	if err != nil {
		return domain.CachedReport{}, false, fmt.Errorf("get report cache: key=%s: %w", key, err)
	}
	workbook, ok := fields[fieldWorkbook]
	if !ok {
		return domain.CachedReport{}, false, nil
	}

	return domain.CachedReport{RunID: fields[fieldRunID], Workbook: []byte(workbook)}, true, nil
}

// Put stores the report as one hash so the workbook and its run id expire together.
func (c *RedisReportCache) Put(ctx context.Context, key string, report domain.CachedReport) (err error) {
	defer obs.Time(ctx, "report.cache.Put")(&err)

	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("put report cache: key must not be empty")
	}

	k := c.prefix + key
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, fieldRunID, report.RunID, fieldWorkbook, report.Workbook)
		pipe.Expire(ctx, k, c.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("put report cache: key=%s: %w", key, err)
	}

	return nil
}
