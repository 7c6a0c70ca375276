package service

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

func TestParseQuery(t *testing.T) {
	v, _ := url.ParseQuery("q=+golang+&cx=abc&num=5&start=11&lr=lang_de&safe=high&dateRestrict=d7")
	q, err := ParseQuery(v)
	require.NoError(t, err)
	assert.Equal(t, "golang", q.Text)
	assert.Equal(t, 5, q.Count)
	assert.Equal(t, 11, q.Start)
	assert.Equal(t, "lang_de", q.Language)
	assert.Equal(t, search.SafeStrict, q.Safe)
	assert.Equal(t, "d7", q.DateRestrict)
}

func TestParseQueryDefaults(t *testing.T) {
	q, err := ParseQuery(url.Values{"q": {"rust"}})
	require.NoError(t, err)
	assert.Equal(t, search.DefaultCount, q.Count)
	assert.Equal(t, search.DefaultStart, q.Start)
	assert.Equal(t, search.SafeOff, q.Safe)
}

func TestParseQueryInvalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"q=%20%20",
		"q=x&num=0",
		"q=x&num=11",
		"q=x&num=abc",
		"q=x&start=92",
		"q=x&safe=maybe",
		"q=x&dateRestrict=7d",
	} {
		v, _ := url.ParseQuery(raw)
		_, err := ParseQuery(v)
		assert.True(t, search.IsInvalidQuery(err), raw)
	}
}

func TestQueryArgsRedactDropsKey(t *testing.T) {
	v, _ := url.ParseQuery("q=rust&key=topsecret&num=2")
	out := QueryArgs(v).Redact()
	assert.NotContains(t, out, "topsecret")
	assert.Contains(t, out, "q=rust")
	assert.Contains(t, out, "num=2")
	assert.Equal(t, "topsecret", v.Get("key"), "original values are untouched")
}
