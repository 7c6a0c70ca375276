package service

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/custom_search/app/gateway/internal/biz"
	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

const (
	ServiceName    = "custom-search-gateway"
	ServiceVersion = "1.0.0"

	OperationIndex      = "/"
	OperationHealth     = "/health"
	OperationStats      = "/stats"
	OperationSearch     = "/customsearch/v1"
	OperationClearCache = "/cache/clear"
	OperationDebug      = "/debug/searxng"
)

type SearchService struct {
	uc        *biz.SearchUseCase
	rateLimit *conf.RateLimit
	log       *log.Helper
}

func NewSearchService(uc *biz.SearchUseCase, rl *conf.RateLimit, logger log.Logger) *SearchService {
	if rl == nil {
		rl = &conf.RateLimit{}
	}
	return &SearchService{
		uc:        uc,
		rateLimit: rl,
		log:       log.NewHelper(logger),
	}
}

// QueryArgs 作为中间件请求传递的查询参数，记录日志时去掉 key
type QueryArgs url.Values

func (a QueryArgs) Redact() string {
	v := make(url.Values, len(a))
	for k, vs := range a {
		if k == "key" {
			continue
		}
		v[k] = vs
	}
	return v.Encode()
}

// ParseQuery 将 Custom Search 的查询参数转换为 search.Query，cx 仅为兼容而接受
func ParseQuery(v url.Values) (search.Query, error) {
	text := strings.TrimSpace(v.Get("q"))
	if text == "" {
		return search.Query{}, search.ErrInvalidQuery("missing required parameter: q")
	}

	num, err := intParam(v, "num", search.DefaultCount)
	if err != nil {
		return search.Query{}, err
	}
	start, err := intParam(v, "start", search.DefaultStart)
	if err != nil {
		return search.Query{}, err
	}
	safe, err := search.ParseSafeLevel(v.Get("safe"))
	if err != nil {
		return search.Query{}, err
	}

	return search.NewQuery(text,
		search.WithCount(num),
		search.WithStart(start),
		search.WithLanguage(v.Get("lr")),
		search.WithSafe(safe),
		search.WithDateRestrict(v.Get("dateRestrict")),
	)
}

func intParam(v url.Values, name string, def int) (int, error) {
	raw := strings.TrimSpace(v.Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, search.ErrInvalidQuery("invalid %s: %q", name, raw)
	}
	return n, nil
}

func (s *SearchService) Index(ctx http.Context) error {
	return ctx.Result(200, map[string]any{
		"name":        ServiceName,
		"version":     ServiceVersion,
		"description": "Custom Search API compatible endpoint",
		"endpoints": map[string]string{
			"search": OperationSearch,
			"health": OperationHealth,
			"stats":  OperationStats,
		},
	})
}

func (s *SearchService) Health(ctx http.Context) error {
	return ctx.Result(200, map[string]string{
		"status":  "healthy",
		"service": ServiceName,
	})
}

func (s *SearchService) Stats(ctx http.Context) error {
	http.SetOperation(ctx, OperationStats)
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return map[string]any{
			"cache": s.uc.Stats(c),
			"rate_limit": map[string]any{
				"enabled": s.rateLimit.Enabled,
				"calls":   s.rateLimit.Calls,
				"period":  s.rateLimit.Period,
			},
		}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *SearchService) Search(ctx http.Context) error {
	http.SetOperation(ctx, OperationSearch)
	h := ctx.Middleware(func(c context.Context, req any) (any, error) {
		q, err := ParseQuery(url.Values(req.(QueryArgs)))
		if err != nil {
			return nil, err
		}
		return s.uc.Search(c, q)
	})
	out, err := h(ctx, QueryArgs(ctx.Query()))
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *SearchService) ClearCache(ctx http.Context) error {
	http.SetOperation(ctx, OperationClearCache)
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		if err := s.uc.ClearCache(c); err != nil {
			return nil, err
		}
		return map[string]string{"message": "Cache cleared successfully"}, nil
	})
	out, err := h(ctx, nil)
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}

func (s *SearchService) DebugSearXNG(ctx http.Context) error {
	http.SetOperation(ctx, OperationDebug)
	h := ctx.Middleware(func(c context.Context, req any) (any, error) {
		text := strings.TrimSpace(url.Values(req.(QueryArgs)).Get("q"))
		if text == "" {
			return nil, search.ErrInvalidQuery("missing required parameter: q")
		}
		return s.uc.Raw(c, text)
	})
	out, err := h(ctx, QueryArgs(ctx.Query()))
	if err != nil {
		return err
	}
	return ctx.Result(200, out)
}
