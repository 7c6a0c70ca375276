package backlinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/client"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// mockSearcher 每个查询返回同一组链接
type mockSearcher struct {
	links []string
	err   error
	calls []client.Params
}

func (m *mockSearcher) Search(_ context.Context, p client.Params) (*search.Envelope, error) {
	m.calls = append(m.calls, p)
	if m.err != nil {
		return nil, m.err
	}
	q, err := search.NewQuery(p.Query, search.WithCount(p.Num), search.WithStart(p.Start))
	if err != nil {
		return nil, err
	}
	var items []search.Item
	for i := p.Start - 1; i < len(m.links) && len(items) < p.Num; i++ {
		if it, ok := search.Normalize(search.RawRecord{URL: m.links[i], Title: "Community forum", Snippet: "mentions it"}); ok {
			items = append(items, it)
		}
	}
	return search.Assemble(items, int64(len(m.links)), q, time.Millisecond, search.Navigate(q, len(items))), nil
}

func TestCleanDomain(t *testing.T) {
	assert.Equal(t, "example.com", CleanDomain("https://www.Example.com/"))
	assert.Equal(t, "example.com", CleanDomain("http://example.com"))
	assert.Equal(t, "example.com", CleanDomain(" example.com "))
}

func TestQueriesExcludeCompetitorSite(t *testing.T) {
	for _, q := range Queries("example.com") {
		assert.Contains(t, q, `"example.com"`)
		assert.Contains(t, q, "-site:example.com")
	}
}

func TestDetectType(t *testing.T) {
	assert.Equal(t, "blog", DetectType("Write for us", ""))
	assert.Equal(t, "forum", DetectType("Community", "discussion thread"))
	assert.Equal(t, "news", DetectType("Daily News", ""))
	assert.Equal(t, "platform", DetectType("", "business directory"))
	assert.Equal(t, "blog", DetectType("anything", "else"))
}

func TestFindDeduplicatesAndFilters(t *testing.T) {
	m := &mockSearcher{links: []string{
		"https://www.blog-a.example/post",
		"https://www.facebook.com/page",
		"https://example.com/own-page",
		"https://shop.example.com/x",
		"https://blog-b.example/",
	}}
	f := NewFinder(m, "secret")

	ops, err := f.Find(context.Background(), "https://www.example.com", 50)
	require.NoError(t, err)
	require.Len(t, ops, 2, "same links from every query variation are deduplicated")
	assert.Equal(t, "https://www.blog-a.example/post", ops[0].URL)
	assert.Equal(t, "blog-a.example", ops[0].Domain)
	assert.Equal(t, "forum", ops[0].Type)
	assert.Equal(t, "competitor:example.com", ops[0].Keyword)
	assert.Equal(t, "https://blog-b.example/", ops[1].URL)

	require.Len(t, m.calls, 3, "one short page per query variation")
	for _, c := range m.calls {
		assert.Equal(t, "secret", c.Key)
		assert.Equal(t, 10, c.Num)
	}
}

func TestFindFollowsNextPageAndStopsAtLimit(t *testing.T) {
	var links []string
	for i := 0; i < 25; i++ {
		links = append(links, "https://site"+string(rune('a'+i))+".example/")
	}
	m := &mockSearcher{links: links}
	f := NewFinder(m, "")

	ops, err := f.Find(context.Background(), "example.com", 15)
	require.NoError(t, err)
	assert.Len(t, ops, 15)
	require.Len(t, m.calls, 2)
	assert.Equal(t, 11, m.calls[1].Start)
}

func TestFindSearchErrorMovesOn(t *testing.T) {
	m := &mockSearcher{err: errors.New("boom")}
	ops, err := NewFinder(m, "").Find(context.Background(), "example.com", 10)
	require.NoError(t, err)
	assert.Empty(t, ops)
	assert.Len(t, m.calls, 3)

	_, err = NewFinder(m, "").Find(context.Background(), "  ", 10)
	assert.Error(t, err)
}
