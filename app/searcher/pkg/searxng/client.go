package searxng

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// BreakerSettings 熔断参数
type BreakerSettings struct {
	MaxFailures uint32
	OpenTimeout time.Duration
}

// Client SearXNG JSON API 后端，按页码寻址
type Client struct {
	baseURL string
	breaker *gobreaker.CircuitBreaker[[]byte]
}

var _ search.Backend = (*Client)(nil)

// NewClient 创建一个新的 SearXNG 客户端
func NewClient(baseURL string, bs BreakerSettings) *Client {
	if bs.MaxFailures == 0 {
		bs.MaxFailures = 5
	}
	if bs.OpenTimeout <= 0 {
		bs.OpenTimeout = 30 * time.Second
	}
	maxFailures := bs.MaxFailures
	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "searxng",
		MaxRequests: 1,
		Timeout:     bs.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Warnf("熔断器 %s 状态变化: %s -> %s", name, from, to)
		},
		IsSuccessful: func(err error) bool {
			// 调用方主动取消不计入失败
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		breaker: cb,
	}
}

func (c *Client) Name() string { return "searxng" }

func (c *Client) Addressing() search.Addressing { return search.AddressPaged }

// State 当前熔断器状态
func (c *Client) State() gobreaker.State { return c.breaker.State() }

// SearchResponse SearXNG 响应结构，results 逐条解码
type SearchResponse struct {
	Query           string            `json:"query"`
	NumberOfResults float64           `json:"number_of_results"`
	Results         []json.RawMessage `json:"results"`
}

// SearchResult SearXNG 单条结果
type SearchResult struct {
	Title         string `json:"title"`
	URL           string `json:"url"`
	Content       string `json:"content"`
	Engine        string `json:"engine"`
	Thumbnail     string `json:"thumbnail"`
	ImgSrc        string `json:"img_src"`
	PublishedDate string `json:"publishedDate"`
}

// dateRestrict 单位对应的天数
var dateUnits = map[byte]int{'d': 1, 'w': 7, 'm': 30, 'y': 365}

// SearXNG 支持的 time_range，由小到大
var timeRanges = []struct {
	name string
	days int
}{
	{"day", 1},
	{"week", 7},
	{"month", 31},
	{"year", 366},
}

// TimeRange 返回能覆盖 dateRestrict 的最小 time_range，超过一年时返回空串（不限时间）
func TimeRange(dateRestrict string) string {
	if len(dateRestrict) < 2 {
		return ""
	}
	unit, ok := dateUnits[dateRestrict[0]]
	n, err := strconv.Atoi(dateRestrict[1:])
	if !ok || err != nil || n < 0 || n > 1000 {
		return ""
	}
	days := unit * n
	for _, tr := range timeRanges {
		if days <= tr.days {
			return tr.name
		}
	}
	return ""
}

// SearchURL 构造 /search 请求地址
func (c *Client) SearchURL(q search.Query) (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/search"

	v := url.Values{}
	v.Set("q", q.Text)
	v.Set("format", "json")
	v.Set("categories", "general")
	v.Set("pageno", fmt.Sprint(search.PageNumber(q)))
	if q.Safe == search.SafeOff || q.Safe == "" {
		v.Set("safesearch", "0")
	} else {
		v.Set("safesearch", "1")
	}
	if lang := q.LanguageCode(); lang != "" {
		v.Set("language", lang)
	}
	if tr := TimeRange(q.DateRestrict); tr != "" {
		v.Set("time_range", tr)
	}
	u.RawQuery = v.Encode()
	return u.String(), nil
}

// Fetch 请求一页结果。单条记录解码失败只跳过该条。
func (c *Client) Fetch(ctx context.Context, sess search.Session, q search.Query) (*search.Batch, error) {
	body, err := c.get(ctx, sess, q)
	if err != nil {
		return nil, err
	}

	var resp SearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode response failed: %w", err)
	}

	records := make([]search.RawRecord, 0, len(resp.Results))
	for i, raw := range resp.Results {
		var r SearchResult
		if err := json.Unmarshal(raw, &r); err != nil {
			logger.Log.Debugf("跳过无法解析的第 %d 条结果: %v", i, err)
			continue
		}
		rec := search.RawRecord{
			URL:       r.URL,
			Title:     r.Title,
			Snippet:   r.Content,
			Engine:    r.Engine,
			Thumbnail: r.Thumbnail,
			Published: r.PublishedDate,
		}
		if r.ImgSrc != "" {
			rec.Image = &search.Image{ThumbnailLink: r.ImgSrc}
		}
		records = append(records, rec)
	}

	total := int64(resp.NumberOfResults)
	if total <= 0 {
		total = int64(len(records)) * 100
	}
	return &search.Batch{Records: records, TotalEstimate: total}, nil
}

// Raw 返回未经处理的 SearXNG 响应，用于排查
func (c *Client) Raw(ctx context.Context, sess search.Session, text string) (json.RawMessage, error) {
	q := search.Query{Text: text, Count: search.DefaultCount, Start: search.DefaultStart, Safe: search.SafeOff}
	body, err := c.get(ctx, sess, q)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("searxng returned non-JSON body (%d bytes)", len(body))
	}
	return json.RawMessage(body), nil
}

func (c *Client) get(ctx context.Context, sess search.Session, q search.Query) ([]byte, error) {
	target, err := c.SearchURL(q)
	if err != nil {
		return nil, err
	}
	logger.Log.Debugf("SearXNG 请求: %s", target)

	body, err := c.breaker.Execute(func() ([]byte, error) {
		return sess.Fetch(ctx, target)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("searxng circuit open: %w", err)
		}
		return nil, fmt.Errorf("searxng request failed: %w", err)
	}
	return body, nil
}
