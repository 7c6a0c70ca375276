package biz

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/engine"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// ErrSearXNGNotConfigured 当前后端不是 SearXNG
var ErrSearXNGNotConfigured = kerrors.NotFound("SEARXNG_NOT_CONFIGURED", "SearXNG backend is not configured")

// Searcher 搜索核心，由 engine.Engine 实现
type Searcher interface {
	Search(ctx context.Context, q search.Query) (*search.Envelope, error)
	Raw(ctx context.Context, text string) (json.RawMessage, error)
}

// Cache 查询结果缓存
type Cache interface {
	Get(ctx context.Context, key string) (*search.Envelope, bool, error)
	Set(ctx context.Context, key string, env *search.Envelope) error
	Clear(ctx context.Context) error
	Len(ctx context.Context) (int, error)
}

// CacheStats 缓存统计
type CacheStats struct {
	Enabled bool   `json:"enabled"`
	Driver  string `json:"driver"`
	Size    int    `json:"size"`
	MaxSize int    `json:"maxsize"`
	TTL     int    `json:"ttl"`
}

// CacheOptions 缓存的描述信息，用于统计
type CacheOptions struct {
	Enabled bool
	Driver  string
	MaxSize int
	TTL     int // 秒
}

type SearchUseCase struct {
	searcher Searcher
	cache    Cache
	opts     CacheOptions
	log      *log.Helper
}

func NewSearchUseCase(searcher Searcher, cache Cache, opts CacheOptions, logger log.Logger) *SearchUseCase {
	return &SearchUseCase{
		searcher: searcher,
		cache:    cache,
		opts:     opts,
		log:      log.NewHelper(logger),
	}
}

// CacheKey 对查询参数的有序 JSON 取 md5
func CacheKey(q search.Query) string {
	data, _ := json.Marshal(map[string]any{
		"query":        q.Text,
		"num":          q.Count,
		"start":        q.Start,
		"lr":           q.Language,
		"safe":         string(q.Safe),
		"dateRestrict": q.DateRestrict,
	})
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// Search 先查缓存，未命中时调用搜索核心并写回。缓存故障按未命中处理。
func (uc *SearchUseCase) Search(ctx context.Context, q search.Query) (*search.Envelope, error) {
	key := CacheKey(q)
	if uc.opts.Enabled && uc.cache != nil {
		env, ok, err := uc.cache.Get(ctx, key)
		if err != nil {
			uc.log.WithContext(ctx).Warnf("cache get failed: %v", err)
		} else if ok {
			uc.log.WithContext(ctx).Infof("cache hit for query: %s", q.Text)
			return env, nil
		}
	}

	uc.log.WithContext(ctx).Infof("performing search for query: %s", q.Text)
	env, err := uc.searcher.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	if uc.opts.Enabled && uc.cache != nil {
		if err := uc.cache.Set(ctx, key, env); err != nil {
			uc.log.WithContext(ctx).Warnf("cache set failed: %v", err)
		}
	}
	return env, nil
}

// Raw 返回 SearXNG 原始响应
func (uc *SearchUseCase) Raw(ctx context.Context, text string) (json.RawMessage, error) {
	raw, err := uc.searcher.Raw(ctx, text)
	if errors.Is(err, engine.ErrRawUnsupported) {
		return nil, ErrSearXNGNotConfigured
	}
	return raw, err
}

// ClearCache 清空缓存
func (uc *SearchUseCase) ClearCache(ctx context.Context) error {
	if uc.cache == nil {
		return nil
	}
	if err := uc.cache.Clear(ctx); err != nil {
		return kerrors.InternalServer("CACHE_CLEAR_FAILED", err.Error()).WithCause(err)
	}
	uc.log.WithContext(ctx).Info("cache cleared")
	return nil
}

// Stats 缓存统计
func (uc *SearchUseCase) Stats(ctx context.Context) CacheStats {
	stats := CacheStats{
		Enabled: uc.opts.Enabled,
		Driver:  uc.opts.Driver,
		MaxSize: uc.opts.MaxSize,
		TTL:     uc.opts.TTL,
	}
	if uc.cache != nil {
		n, err := uc.cache.Len(ctx)
		if err != nil {
			uc.log.WithContext(ctx).Warnf("cache len failed: %v", err)
		}
		stats.Size = n
	}
	return stats
}
