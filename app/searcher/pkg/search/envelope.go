package search

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// EnvelopeKind 响应的 kind 字段
	EnvelopeKind = "search#result-set"

	URLType     = "application/json"
	URLTemplate = "https://www.googleapis.com/customsearch/v1?q={searchTerms}&num={count?}&start={startIndex?}&lr={language?}&safe={safe?}&alt=json"

	encodingUTF8 = "utf8"
)

// Envelope 一次查询的完整响应
type Envelope struct {
	Kind              string            `json:"kind"`
	URL               URLInfo           `json:"url"`
	Queries           Queries           `json:"queries"`
	SearchInformation SearchInformation `json:"searchInformation"`
	Items             []Item            `json:"items"`
}

type URLInfo struct {
	Type     string `json:"type"`
	Template string `json:"template"`
}

type Queries struct {
	Request      []QueryEcho `json:"request"`
	NextPage     []QueryEcho `json:"nextPage,omitempty"`
	PreviousPage []QueryEcho `json:"previousPage,omitempty"`
}

// QueryEcho 回显请求参数，也用于描述上一页/下一页
type QueryEcho struct {
	Title          string `json:"title"`
	TotalResults   string `json:"totalResults"`
	SearchTerms    string `json:"searchTerms"`
	Count          int    `json:"count"`
	StartIndex     int    `json:"startIndex"`
	InputEncoding  string `json:"inputEncoding"`
	OutputEncoding string `json:"outputEncoding"`
	Safe           string `json:"safe"`
}

type SearchInformation struct {
	SearchTime            float64 `json:"searchTime"`
	FormattedSearchTime   string  `json:"formattedSearchTime"`
	TotalResults          string  `json:"totalResults"`
	FormattedTotalResults string  `json:"formattedTotalResults"`
}

var numberPrinter = message.NewPrinter(language.English)

// FormatTotal 使用千分位格式化总数，例如 1,234,500
func FormatTotal(n int64) string {
	return numberPrinter.Sprintf("%d", n)
}

// Assemble 组装最终响应。elapsed 只包含后端调用耗时。
func Assemble(items []Item, total int64, q Query, elapsed time.Duration, nav Navigation) *Envelope {
	if total < 0 {
		total = 0
	}
	if items == nil {
		items = []Item{}
	}
	totalStr := strconv.FormatInt(total, 10)

	echo := func(start int) QueryEcho {
		return QueryEcho{
			Title:          "Custom Search - " + q.Text,
			TotalResults:   totalStr,
			SearchTerms:    q.Text,
			Count:          q.Count,
			StartIndex:     start,
			InputEncoding:  encodingUTF8,
			OutputEncoding: encodingUTF8,
			Safe:           string(q.Safe),
		}
	}

	env := &Envelope{
		Kind: EnvelopeKind,
		URL:  URLInfo{Type: URLType, Template: URLTemplate},
		Queries: Queries{
			Request: []QueryEcho{echo(q.Start)},
		},
		SearchInformation: SearchInformation{
			SearchTime:            math.Round(elapsed.Seconds()*1000) / 1000,
			FormattedSearchTime:   fmt.Sprintf("%.2f", elapsed.Seconds()),
			TotalResults:          totalStr,
			FormattedTotalResults: FormatTotal(total),
		},
		Items: items,
	}
	if nav.Next != nil {
		env.Queries.NextPage = []QueryEcho{echo(*nav.Next)}
	}
	if nav.Previous != nil {
		env.Queries.PreviousPage = []QueryEcho{echo(*nav.Previous)}
	}
	return env
}
