package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// SearchPath 网关的查询路由
const SearchPath = "/customsearch/v1"

// Params 一次网关查询的参数，零值字段不发送
type Params struct {
	Query        string
	Key          string
	Num          int
	Start        int
	Language     string
	Safe         string
	DateRestrict string
}

// Encode 编码为查询字符串
func (p Params) Encode() string {
	v := url.Values{}
	v.Set("q", p.Query)
	if p.Key != "" {
		v.Set("key", p.Key)
	}
	if p.Num > 0 {
		v.Set("num", strconv.Itoa(p.Num))
	}
	if p.Start > 0 {
		v.Set("start", strconv.Itoa(p.Start))
	}
	if p.Language != "" {
		v.Set("lr", p.Language)
	}
	if p.Safe != "" {
		v.Set("safe", p.Safe)
	}
	if p.DateRestrict != "" {
		v.Set("dateRestrict", p.DateRestrict)
	}
	return v.Encode()
}

// Client 网关的 Go 客户端
type Client struct {
	cc *khttp.Client
}

// New 创建客户端，endpoint 形如 http://127.0.0.1:8000
func New(ctx context.Context, endpoint string, timeout time.Duration) (*Client, error) {
	cc, err := khttp.NewClient(ctx,
		khttp.WithEndpoint(endpoint),
		khttp.WithTimeout(timeout),
		khttp.WithUserAgent("custom-search-client"),
		khttp.WithErrorDecoder(decodeError),
	)
	if err != nil {
		return nil, err
	}
	return &Client{cc: cc}, nil
}

func (c *Client) Close() error {
	return c.cc.Close()
}

// Search 执行一次查询
func (c *Client) Search(ctx context.Context, p Params) (*search.Envelope, error) {
	var env search.Envelope
	if err := c.cc.Invoke(ctx, http.MethodGet, SearchPath+"?"+p.Encode(), nil, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// PageSearcher 单页查询，Client 实现了它
type PageSearcher interface {
	Search(ctx context.Context, p Params) (*search.Envelope, error)
}

// Walk 从 p.Start 开始沿 nextPage 逐页回调 fn。fn 返回 false、没有下一页或超出可寻址范围时停止。
func Walk(ctx context.Context, s PageSearcher, p Params, fn func(*search.Envelope) bool) error {
	if p.Start <= 0 {
		p.Start = search.DefaultStart
	}
	for p.Start <= search.MaxStart {
		env, err := s.Search(ctx, p)
		if err != nil {
			return err
		}
		if !fn(env) || len(env.Queries.NextPage) == 0 {
			return nil
		}
		p.Start = env.Queries.NextPage[0].StartIndex
	}
	return nil
}

// Collect 沿 nextPage 翻页，直到凑满 limit 条、没有下一页或超出可寻址范围
func (c *Client) Collect(ctx context.Context, p Params, limit int) ([]search.Item, error) {
	if limit <= 0 {
		return nil, nil
	}
	var items []search.Item
	err := Walk(ctx, c, p, func(env *search.Envelope) bool {
		items = append(items, env.Items...)
		return len(items) < limit
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, err
}

// errorBody 网关错误响应 {"error": {...}}
type errorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

func decodeError(_ context.Context, res *http.Response) error {
	if res.StatusCode >= 200 && res.StatusCode <= 299 {
		return nil
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err == nil {
		var body errorBody
		if json.Unmarshal(data, &body) == nil && body.Error.Code != 0 {
			return errors.New(body.Error.Code, body.Error.Reason, body.Error.Message)
		}
	}
	return errors.New(res.StatusCode, errors.UnknownReason, string(data))
}
