package backlinks

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/client"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// 社交与问答平台不算外链机会
var blacklist = []string{
	"facebook.com", "twitter.com", "linkedin.com",
	"instagram.com", "youtube.com", "pinterest.com",
	"reddit.com", "quora.com", "medium.com",
}

// Opportunity 一个引用了竞品域名的页面
type Opportunity struct {
	URL     string `json:"url"`
	Domain  string `json:"domain"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Type    string `json:"type"`
	Keyword string `json:"keyword"`
}

// Searcher 按页查询，client.Client 实现了它
type Searcher = client.PageSearcher

// Finder 通过多组查询寻找竞品外链
type Finder struct {
	searcher Searcher
	key      string
}

func NewFinder(s Searcher, apiKey string) *Finder {
	return &Finder{searcher: s, key: apiKey}
}

// CleanDomain 去掉协议和 www. 前缀
func CleanDomain(domain string) string {
	domain = strings.TrimSpace(strings.ToLower(domain))
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "www.")
	return strings.TrimRight(domain, "/")
}

// Queries 针对竞品域名的查询变体，均排除竞品自身站点
func Queries(domain string) []string {
	return []string{
		fmt.Sprintf(`"%s" -site:%s`, domain, domain),
		fmt.Sprintf(`"%s" (article OR blog OR post) -site:%s`, domain, domain),
		fmt.Sprintf(`"%s" (directory OR listing) -site:%s`, domain, domain),
	}
}

// Find 依次执行各查询并翻页，按链接去重，最多返回 limit 条
func (f *Finder) Find(ctx context.Context, competitor string, limit int) ([]Opportunity, error) {
	domain := CleanDomain(competitor)
	if domain == "" {
		return nil, fmt.Errorf("competitor domain is empty")
	}

	seen := make(map[string]struct{})
	var out []Opportunity

	for _, q := range Queries(domain) {
		logger.Log.Infof("搜索: %s", q)
		p := client.Params{Query: q, Key: f.key, Num: search.MaxCount, Start: search.DefaultStart}
		err := client.Walk(ctx, f.searcher, p, func(env *search.Envelope) bool {
			for _, it := range env.Items {
				if _, ok := seen[it.Link]; ok {
					continue
				}
				if !IsValidOpportunity(it.Link) || isSameSite(it.Link, domain) {
					continue
				}
				seen[it.Link] = struct{}{}
				out = append(out, Opportunity{
					URL:     it.Link,
					Domain:  ExtractDomain(it.Link),
					Title:   it.Title,
					Snippet: it.Snippet,
					Type:    DetectType(it.Title, it.Snippet),
					Keyword: "competitor:" + domain,
				})
				if len(out) >= limit {
					return false
				}
			}
			return len(env.Items) > 0
		})
		if err != nil {
			logger.Log.Warnf("查询失败 [%s]: %v", q, err)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// IsValidOpportunity 排除黑名单平台
func IsValidOpportunity(link string) bool {
	lower := strings.ToLower(link)
	for _, d := range blacklist {
		if strings.Contains(lower, d) {
			return false
		}
	}
	return true
}

// ExtractDomain 返回去掉 www. 的主机名
func ExtractDomain(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Host, "www.")
}

func isSameSite(link, domain string) bool {
	host := ExtractDomain(link)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// DetectType 根据标题和摘要猜测页面类型
func DetectType(title, snippet string) string {
	text := strings.ToLower(title + " " + snippet)
	switch {
	case containsAny(text, "guest post", "write for us", "contribute"):
		return "blog"
	case containsAny(text, "forum", "community", "discussion"):
		return "forum"
	case containsAny(text, "news", "newspaper", "journal"):
		return "news"
	case containsAny(text, "directory", "listing"):
		return "platform"
	}
	return "blog"
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
