package data

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/custom_search/app/gateway/internal/biz"
	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

func envelope(t *testing.T, text string) *search.Envelope {
	t.Helper()
	q, err := search.NewQuery(text)
	require.NoError(t, err)
	item, ok := search.Normalize(search.RawRecord{URL: "https://www.example.com/a", Title: text})
	require.True(t, ok)
	return search.Assemble([]search.Item{item}, 100, q, time.Millisecond, search.Navigate(q, 1))
}

func TestNewCacheOptions(t *testing.T) {
	opts := NewCacheOptions(nil)
	assert.False(t, opts.Enabled)
	assert.Equal(t, DriverMemory, opts.Driver)
	assert.Equal(t, 1000, opts.MaxSize)
	assert.Equal(t, 604800, opts.TTL)

	opts = NewCacheOptions(&conf.Cache{Enabled: true, Driver: "redis", Ttl: 60, MaxSize: 5})
	assert.True(t, opts.Enabled)
	assert.Equal(t, "redis", opts.Driver)
	assert.Equal(t, 5, opts.MaxSize)
	assert.Equal(t, 60, opts.TTL)
}

func TestNewCacheDriverRequiresConnection(t *testing.T) {
	_, err := NewCache(biz.CacheOptions{Driver: DriverRedis, TTL: 60}, &Data{}, log.DefaultLogger)
	assert.Error(t, err)
	_, err = NewCache(biz.CacheOptions{Driver: DriverPostgres, TTL: 60}, &Data{}, log.DefaultLogger)
	assert.Error(t, err)
	_, err = NewCache(biz.CacheOptions{Driver: "memcached"}, &Data{}, log.DefaultLogger)
	assert.Error(t, err)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(2, time.Hour)

	_, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "a", envelope(t, "a")))
	require.NoError(t, c.Set(ctx, "b", envelope(t, "b")))
	require.NoError(t, c.Set(ctx, "c", envelope(t, "c")))

	n, _ := c.Len(ctx)
	assert.Equal(t, 2, n, "oldest entry is evicted at maxsize")
	_, ok, _ = c.Get(ctx, "a")
	assert.False(t, ok)
	env, ok, _ := c.Get(ctx, "c")
	require.True(t, ok)
	assert.Equal(t, "c", env.Queries.Request[0].SearchTerms)

	require.NoError(t, c.Clear(ctx))
	n, _ = c.Len(ctx)
	assert.Equal(t, 0, n)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(10, 20*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", envelope(t, "k")))

	assert.Eventually(t, func() bool {
		_, ok, _ := c.Get(ctx, "k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

// 需要本地 Redis：REDIS_ADDR=127.0.0.1:6379
func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	d, cleanup, err := NewData(&conf.Data{Redis: &conf.Redis{Addr: addr}}, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	c, err := NewCache(biz.CacheOptions{Driver: DriverRedis, TTL: 60}, d, log.DefaultLogger)
	require.NoError(t, err)
	testCacheRoundTrip(t, c)
}

// 需要本地 PostgreSQL：POSTGRES_DSN=postgres://...
func TestPostgresCache(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	d, cleanup, err := NewData(&conf.Data{Database: &conf.Database{Driver: "postgres", Source: dsn}}, log.DefaultLogger)
	require.NoError(t, err)
	defer cleanup()

	c, err := NewCache(biz.CacheOptions{Driver: DriverPostgres, TTL: 60}, d, log.DefaultLogger)
	require.NoError(t, err)
	testCacheRoundTrip(t, c)
}

func testCacheRoundTrip(t *testing.T, c biz.Cache) {
	ctx := context.Background()
	require.NoError(t, c.Clear(ctx))

	want := envelope(t, "round trip")
	require.NoError(t, c.Set(ctx, "rt", want))

	got, ok, err := c.Get(ctx, "rt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, want.Items[0].Link, got.Items[0].Link)
	assert.Equal(t, want.SearchInformation, got.SearchInformation)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, c.Clear(ctx))
	_, ok, err = c.Get(ctx, "rt")
	require.NoError(t, err)
	assert.False(t, ok)
}
