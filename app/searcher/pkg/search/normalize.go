package search

import (
	"net/url"
	"strings"
)

// ItemKind 单条结果的 kind 字段
const ItemKind = "customsearch#result"

// Item 规范化后的单条搜索结果
type Item struct {
	Kind             string         `json:"kind"`
	Title            string         `json:"title"`
	HTMLTitle        string         `json:"htmlTitle"`
	Link             string         `json:"link"`
	DisplayLink      string         `json:"displayLink"`
	Snippet          string         `json:"snippet"`
	HTMLSnippet      string         `json:"htmlSnippet"`
	FormattedURL     string         `json:"formattedUrl"`
	HTMLFormattedURL string         `json:"htmlFormattedUrl"`
	Pagemap          map[string]any `json:"pagemap"`
	Image            *Image         `json:"image,omitempty"`
}

// Image 结果附带的图片信息
type Image struct {
	ContextLink     string `json:"contextLink,omitempty"`
	Height          int    `json:"height,omitempty"`
	Width           int    `json:"width,omitempty"`
	ByteSize        int    `json:"byteSize,omitempty"`
	ThumbnailLink   string `json:"thumbnailLink,omitempty"`
	ThumbnailHeight int    `json:"thumbnailHeight,omitempty"`
	ThumbnailWidth  int    `json:"thumbnailWidth,omitempty"`
}

// & 必须最先替换；strings.Replacer 单趟扫描，不会二次转义
var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML 转义 & < > " '
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// Normalize 将原始记录转换为规范结果。链接为空、相对路径或非 http(s) 时返回 false。
func Normalize(raw RawRecord) (Item, bool) {
	link := strings.TrimSpace(raw.URL)
	if link == "" {
		return Item{}, false
	}
	u, err := url.Parse(link)
	if err != nil {
		return Item{}, false
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return Item{}, false
	}
	link = scheme + link[len(u.Scheme):]

	host := strings.ToLower(u.Host)
	if strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.") == "" {
		return Item{}, false
	}
	displayLink := strings.TrimPrefix(host, "www.")
	formatted := scheme + "://" + host + u.EscapedPath()

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = displayLink
	}
	snippet := strings.TrimSpace(raw.Snippet)

	item := Item{
		Kind:             ItemKind,
		Title:            title,
		HTMLTitle:        EscapeHTML(title),
		Link:             link,
		DisplayLink:      displayLink,
		Snippet:          snippet,
		HTMLSnippet:      EscapeHTML(snippet),
		FormattedURL:     formatted,
		HTMLFormattedURL: EscapeHTML(formatted),
		Pagemap:          pagemap(raw),
	}
	if raw.Image != nil {
		img := *raw.Image
		if img.ContextLink == "" {
			img.ContextLink = link
		}
		item.Image = &img
	}
	return item, true
}

func pagemap(raw RawRecord) map[string]any {
	pm := map[string]any{}
	if raw.Thumbnail != "" {
		pm["cse_thumbnail"] = []map[string]string{{"src": raw.Thumbnail}}
	}
	if raw.Published != "" {
		pm["metatags"] = []map[string]string{{"article:published_time": raw.Published}}
	}
	return pm
}
