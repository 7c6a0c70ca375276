package duckduckgo

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// DefaultBaseURL DuckDuckGo 无 JS 结果页
const DefaultBaseURL = "https://html.duckduckgo.com"

// 按优先级尝试的结果容器选择器，第一个有匹配的生效
var containerSelectors = []string{
	"div.result",
	"div.results_links",
	"div.web-result",
	`div[class*="result"]`,
	".result",
}

// Client 渲染页后端：抓取整页结果，由调用方按窗口切片
type Client struct {
	baseURL string
}

var _ search.Backend = (*Client)(nil)

// NewClient 创建 DuckDuckGo 后端
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/")}
}

func (c *Client) Name() string { return "duckduckgo" }

func (c *Client) Addressing() search.Addressing { return search.AddressFullPage }

// SearchURL 构造结果页地址，只携带查询文本
func (c *Client) SearchURL(q search.Query) string {
	return c.baseURL + "/html/?q=" + url.QueryEscape(q.Text)
}

// Fetch 获取并解析整页结果。页面没有任何结果容器时返回空结果而不是错误。
func (c *Client) Fetch(ctx context.Context, sess search.Session, q search.Query) (*search.Batch, error) {
	target := c.SearchURL(q)
	logger.Log.Debugf("DuckDuckGo 导航: %s", target)

	body, err := sess.Fetch(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("fetch results page: %w", err)
	}

	records, err := ParseResults(body)
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}
	return &search.Batch{
		Records:       records,
		TotalEstimate: int64(len(records)) * 100,
	}, nil
}

// ParseResults 从结果页 HTML 中提取原始记录
func ParseResults(body []byte) ([]search.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var containers *goquery.Selection
	for _, sel := range containerSelectors {
		found := doc.Find(sel)
		if found.Length() > 0 {
			logger.Log.Debugf("选择器 %s 命中 %d 个结果", sel, found.Length())
			containers = found
			break
		}
	}
	if containers == nil {
		logger.Log.Warnf("结果页没有匹配任何选择器，HTML 长度 %d", len(body))
		return []search.RawRecord{}, nil
	}

	records := make([]search.RawRecord, 0, containers.Length())
	containers.Each(func(_ int, s *goquery.Selection) {
		// 广告位
		if s.HasClass("result--ad") {
			return
		}
		link := s.Find("a.result__a").First()
		href, _ := link.Attr("href")
		records = append(records, search.RawRecord{
			URL:     DecodeRedirect(href),
			Title:   collapseSpace(link.Text()),
			Snippet: collapseSpace(s.Find(".result__snippet").First().Text()),
			Engine:  "duckduckgo",
		})
	})
	return records, nil
}

// DecodeRedirect 还原 //duckduckgo.com/l/?uddg=<target> 形式的跳转链接
func DecodeRedirect(href string) string {
	href = strings.TrimSpace(href)
	if !strings.Contains(href, "uddg=") {
		return href
	}
	raw := href
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
