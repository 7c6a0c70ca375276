package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// mockBackend 按预设返回结果的后端
type mockBackend struct {
	name       string
	addressing search.Addressing
	batch      *search.Batch
	err        error
	block      bool // 阻塞直到 ctx 结束
	calls      int
}

func (m *mockBackend) Name() string { return m.name }

func (m *mockBackend) Addressing() search.Addressing { return m.addressing }

func (m *mockBackend) Fetch(ctx context.Context, _ search.Session, q search.Query) (*search.Batch, error) {
	m.calls++
	if m.block {
		<-ctx.Done()
		return nil, fmt.Errorf("navigate: %w", ctx.Err())
	}
	return m.batch, m.err
}

// rawMockBackend 额外支持 Raw
type rawMockBackend struct {
	mockBackend
	raw json.RawMessage
}

func (m *rawMockBackend) Raw(context.Context, search.Session, string) (json.RawMessage, error) {
	return m.raw, m.err
}

type mockSession struct{}

func (mockSession) Fetch(context.Context, string) ([]byte, error) { return nil, nil }

type mockPool struct {
	mu         sync.Mutex
	acquired   int
	released   int
	acquireErr error
}

func (p *mockPool) Acquire(context.Context) (search.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return mockSession{}, nil
}

func (p *mockPool) Release(search.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released++
}

func records(n int) []search.RawRecord {
	out := make([]search.RawRecord, n)
	for i := range out {
		out[i] = search.RawRecord{
			URL:     fmt.Sprintf("https://www.site%d.example/page", i+1),
			Title:   fmt.Sprintf("Result %d", i+1),
			Snippet: "snippet",
		}
	}
	return out
}

func TestSearchFullPage(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo", addressing: search.AddressFullPage,
		batch: &search.Batch{Records: records(5), TotalEstimate: 500}}
	pool := &mockPool{}
	e := New(backend, pool, time.Second)

	q, err := search.NewQuery("rust", search.WithCount(5))
	require.NoError(t, err)
	env, err := e.Search(context.Background(), q)
	require.NoError(t, err)

	assert.Len(t, env.Items, 5)
	assert.Nil(t, env.Queries.PreviousPage)
	require.Len(t, env.Queries.NextPage, 1)
	assert.Equal(t, 6, env.Queries.NextPage[0].StartIndex)
	assert.Equal(t, "500", env.SearchInformation.TotalResults)
	for _, it := range env.Items {
		assert.NotContains(t, it.DisplayLink, "www.")
	}
	assert.Equal(t, 1, pool.acquired)
	assert.Equal(t, 1, pool.released)
}

func TestSearchEmptyResultIsSuccess(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo", batch: &search.Batch{}}
	e := New(backend, &mockPool{}, time.Second)

	q, _ := search.NewQuery("nothing here")
	env, err := e.Search(context.Background(), q)
	require.NoError(t, err)
	assert.NotNil(t, env.Items)
	assert.Empty(t, env.Items)
	assert.Equal(t, "0", env.SearchInformation.TotalResults)
	assert.Nil(t, env.Queries.NextPage)
}

func TestSearchDropsInvalidRecords(t *testing.T) {
	raws := []search.RawRecord{
		{URL: "/relative/path", Title: "relative"},
		{URL: "https://valid.example/a", Title: "A"},
		{URL: "javascript:void(0)", Title: "js"},
		{URL: "http://valid.example/b", Title: "B"},
	}
	backend := &mockBackend{name: "duckduckgo", batch: &search.Batch{Records: raws, TotalEstimate: 400}}
	e := New(backend, &mockPool{}, time.Second)

	q, _ := search.NewQuery("x")
	env, err := e.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, env.Items, 2)
	assert.Equal(t, "https://valid.example/a", env.Items[0].Link)
	assert.Equal(t, "http://valid.example/b", env.Items[1].Link)
}

func TestSearchRejectsInvalidQueryBeforeBackend(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo", batch: &search.Batch{}}
	pool := &mockPool{}
	e := New(backend, pool, time.Second)

	_, err := e.Search(context.Background(), search.Query{Text: "rust", Count: 10, Start: 95, Safe: search.SafeOff})
	require.Error(t, err)
	assert.True(t, search.IsInvalidQuery(err))
	assert.Equal(t, 0, backend.calls)
	assert.Equal(t, 0, pool.acquired)
}

func TestSearchTimeoutIsBackendUnavailable(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo", block: true}
	pool := &mockPool{}
	e := New(backend, pool, 20*time.Millisecond)

	q, _ := search.NewQuery("slow")
	_, err := e.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, search.IsBackendUnavailable(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, pool.released, "session is released on failure")
}

func TestSearchCallerCancellation(t *testing.T) {
	backend := &mockBackend{name: "searxng", block: true}
	e := New(backend, &mockPool{}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	q, _ := search.NewQuery("x")
	_, err := e.Search(ctx, q)
	require.Error(t, err)
	assert.True(t, search.IsBackendUnavailable(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearchBackendError(t *testing.T) {
	backend := &mockBackend{name: "searxng", err: errors.New("status 502")}
	e := New(backend, &mockPool{}, time.Second)

	q, _ := search.NewQuery("x")
	_, err := e.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, search.IsBackendUnavailable(err))
	assert.Contains(t, err.Error(), "status 502")
}

func TestSearchAcquireError(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo"}
	e := New(backend, &mockPool{acquireErr: errors.New("browser gone")}, time.Second)

	q, _ := search.NewQuery("x")
	_, err := e.Search(context.Background(), q)
	require.Error(t, err)
	assert.True(t, search.IsBackendUnavailable(err))
	assert.Equal(t, 0, backend.calls)
}

func TestSearchFullPageWindow(t *testing.T) {
	backend := &mockBackend{name: "duckduckgo", addressing: search.AddressFullPage,
		batch: &search.Batch{Records: records(12), TotalEstimate: 1200}}
	e := New(backend, &mockPool{}, time.Second)

	q, _ := search.NewQuery("x", search.WithCount(5), search.WithStart(11))
	env, err := e.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, env.Items, 2)
	assert.Equal(t, "Result 11", env.Items[0].Title)
	assert.Nil(t, env.Queries.NextPage, "short page has no next")
	require.Len(t, env.Queries.PreviousPage, 1)
	assert.Equal(t, 6, env.Queries.PreviousPage[0].StartIndex)
}

func TestSearchPagedWindow(t *testing.T) {
	// start=8,count=5 请求第 2 页，页内偏移 2
	backend := &mockBackend{name: "searxng", addressing: search.AddressPaged,
		batch: &search.Batch{Records: records(7), TotalEstimate: 99}}
	e := New(backend, &mockPool{}, time.Second)

	q, _ := search.NewQuery("x", search.WithCount(5), search.WithStart(8))
	env, err := e.Search(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, env.Items, 5)
	assert.Equal(t, "Result 3", env.Items[0].Title)
	assert.LessOrEqual(t, len(env.Items), q.Count)
}

// staticBackend 只读的后端，可并发调用
type staticBackend struct {
	batch *search.Batch
}

func (staticBackend) Name() string { return "duckduckgo" }

func (staticBackend) Addressing() search.Addressing { return search.AddressFullPage }

func (b staticBackend) Fetch(context.Context, search.Session, search.Query) (*search.Batch, error) {
	return b.batch, nil
}

func TestSearchConcurrent(t *testing.T) {
	pool := &mockPool{}
	e := New(staticBackend{batch: &search.Batch{Records: records(3), TotalEstimate: 300}}, pool, time.Second)
	q, _ := search.NewQuery("x")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env, err := e.Search(context.Background(), q)
			if assert.NoError(t, err) {
				assert.Len(t, env.Items, 3)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, pool.acquired)
	assert.Equal(t, 8, pool.released)
}

func TestRaw(t *testing.T) {
	plain := New(&mockBackend{name: "duckduckgo"}, &mockPool{}, time.Second)
	_, err := plain.Raw(context.Background(), "x")
	assert.ErrorIs(t, err, ErrRawUnsupported)

	rb := &rawMockBackend{mockBackend: mockBackend{name: "searxng"}, raw: json.RawMessage(`{"results":[]}`)}
	pool := &mockPool{}
	e := New(rb, pool, time.Second)
	raw, err := e.Raw(context.Background(), "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"results":[]}`, string(raw))
	assert.Equal(t, 1, pool.released)
}
