package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"

	"github.com/iWorld-y/custom_search/app/gateway/internal/biz"
	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"

	defaultCacheTTL     = 7 * 24 * time.Hour
	defaultCacheMaxSize = 1000

	redisKeyPrefix = "customsearch:"
)

// NewCacheOptions 补全缓存配置缺省值
func NewCacheOptions(c *conf.Cache) biz.CacheOptions {
	opts := biz.CacheOptions{
		Driver:  DriverMemory,
		MaxSize: defaultCacheMaxSize,
		TTL:     int(defaultCacheTTL / time.Second),
	}
	if c == nil {
		return opts
	}
	opts.Enabled = c.Enabled
	if c.Driver != "" {
		opts.Driver = c.Driver
	}
	if c.MaxSize > 0 {
		opts.MaxSize = int(c.MaxSize)
	}
	if c.Ttl > 0 {
		opts.TTL = int(c.Ttl)
	}
	return opts
}

// NewCache 按驱动创建缓存
func NewCache(opts biz.CacheOptions, d *Data, logger log.Logger) (biz.Cache, error) {
	ttl := time.Duration(opts.TTL) * time.Second
	helper := log.NewHelper(logger)

	switch opts.Driver {
	case DriverMemory:
		helper.Infof("cache driver: memory (maxsize=%d, ttl=%v)", opts.MaxSize, ttl)
		return NewMemoryCache(opts.MaxSize, ttl), nil
	case DriverRedis:
		if d == nil || d.rdb == nil {
			return nil, fmt.Errorf("cache driver redis requires data.redis.addr")
		}
		helper.Infof("cache driver: redis (ttl=%v)", ttl)
		return &redisCache{rdb: d.rdb, ttl: ttl}, nil
	case DriverPostgres:
		if d == nil || d.db == nil {
			return nil, fmt.Errorf("cache driver postgres requires data.database.source")
		}
		helper.Infof("cache driver: postgres (ttl=%v)", ttl)
		return &postgresCache{db: d.db, ttl: ttl}, nil
	default:
		return nil, fmt.Errorf("unknown cache driver: %s", opts.Driver)
	}
}

// memoryCache 进程内 LRU，条目到期自动淘汰
type memoryCache struct {
	lru *expirable.LRU[string, *search.Envelope]
}

func NewMemoryCache(size int, ttl time.Duration) biz.Cache {
	return &memoryCache{lru: expirable.NewLRU[string, *search.Envelope](size, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string) (*search.Envelope, bool, error) {
	env, ok := c.lru.Get(key)
	return env, ok, nil
}

func (c *memoryCache) Set(_ context.Context, key string, env *search.Envelope) error {
	c.lru.Add(key, env)
	return nil
}

func (c *memoryCache) Clear(context.Context) error {
	c.lru.Purge()
	return nil
}

func (c *memoryCache) Len(context.Context) (int, error) {
	return c.lru.Len(), nil
}

// redisCache 以 JSON 存储，过期交给 Redis
type redisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func (c *redisCache) Get(ctx context.Context, key string) (*search.Envelope, bool, error) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var env search.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false, fmt.Errorf("decode cached envelope: %w", err)
	}
	return &env, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, env *search.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err()
}

func (c *redisCache) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := c.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	return keys, iter.Err()
}

func (c *redisCache) Clear(ctx context.Context) error {
	keys, err := c.keys(ctx)
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.rdb.Del(ctx, keys...).Err()
}

func (c *redisCache) Len(ctx context.Context) (int, error) {
	keys, err := c.keys(ctx)
	return len(keys), err
}

// postgresCache 存在 search_cache 表中，读取时过滤过期行
type postgresCache struct {
	db  *sql.DB
	ttl time.Duration
}

func (c *postgresCache) Get(ctx context.Context, key string) (*search.Envelope, bool, error) {
	var payload []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM search_cache WHERE cache_key = $1 AND expires_at > NOW()`, key,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var env search.Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, false, fmt.Errorf("decode cached envelope: %w", err)
	}
	return &env, true, nil
}

func (c *postgresCache) Set(ctx context.Context, key string, env *search.Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO search_cache (cache_key, payload, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (cache_key) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at
	`, key, payload, time.Now().Add(c.ttl))
	if err != nil {
		return err
	}
	// 顺带清理过期行
	_, err = c.db.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at <= NOW()`)
	return err
}

func (c *postgresCache) Clear(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM search_cache`)
	return err
}

func (c *postgresCache) Len(ctx context.Context) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_cache WHERE expires_at > NOW()`).Scan(&n)
	return n, err
}
