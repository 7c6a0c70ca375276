package server

import (
	"encoding/json"
	nethttp "net/http"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/handlers"

	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
	"github.com/iWorld-y/custom_search/app/gateway/internal/service"
)

// NewRateLimiterFromConf 按配置创建限流器，未启用时返回 nil
func NewRateLimiterFromConf(c *conf.RateLimit) *RateLimiter {
	if c == nil || !c.Enabled {
		return nil
	}
	return NewRateLimiter(int(c.Calls), time.Duration(c.Period)*time.Second)
}

var (
	defaultCORSOrigins = []string{"*"}
	defaultCORSHeaders = []string{"Content-Type", "Authorization", "X-Requested-With", "X-Forwarded-For"}
	corsMethods        = []string{nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodOptions}
)

// corsFilter 按配置生成 CORS 过滤器，显式关闭时返回 nil
func corsFilter(c *conf.CORS) http.FilterFunc {
	if c == nil {
		c = &conf.CORS{Enabled: true}
	}
	if !c.Enabled {
		return nil
	}
	origins := c.AllowedOrigins
	if len(origins) == 0 {
		origins = defaultCORSOrigins
	}
	headers := c.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods(corsMethods),
		handlers.AllowedHeaders(headers),
	)
}

func NewHTTPServer(c *conf.Server, auth *conf.Auth, limiter *RateLimiter, s *service.SearchService, logger log.Logger) *http.Server {
	mws := []middleware.Middleware{
		recovery.Recovery(),
		logging.Server(logger),
	}
	if auth != nil && auth.Enabled {
		mws = append(mws, selector.Server(Auth(auth.ApiKey)).
			Path(service.OperationStats, service.OperationSearch, service.OperationClearCache, service.OperationDebug).
			Build())
	}
	if limiter != nil {
		mws = append(mws, selector.Server(RateLimit(limiter)).
			Path(service.OperationSearch).
			Build())
	}

	var opts = []http.ServerOption{
		http.Middleware(mws...),
		http.ErrorEncoder(EncodeError),
	}
	var cors *conf.CORS
	if c != nil {
		cors = c.Cors
	}
	if f := corsFilter(cors); f != nil {
		opts = append(opts, http.Filter(f))
	}
	if c != nil && c.Http != nil {
		if c.Http.Addr != "" {
			opts = append(opts, http.Address(c.Http.Addr))
		}
		if c.Http.Timeout != "" {
			if d, err := time.ParseDuration(c.Http.Timeout); err == nil {
				opts = append(opts, http.Timeout(d))
			}
		}
	}

	srv := http.NewServer(opts...)
	r := srv.Route("/")
	r.GET(service.OperationIndex, s.Index)
	r.GET(service.OperationHealth, s.Health)
	r.GET(service.OperationStats, s.Stats)
	r.GET(service.OperationSearch, s.Search)
	r.POST(service.OperationClearCache, s.ClearCache)
	r.GET(service.OperationDebug, s.DebugSearXNG)
	return srv
}

// 与 Google API 错误响应一致的 status 字段
var statusNames = map[int]string{
	400: "INVALID_ARGUMENT",
	401: "UNAUTHENTICATED",
	403: "PERMISSION_DENIED",
	404: "NOT_FOUND",
	429: "RESOURCE_EXHAUSTED",
	500: "INTERNAL",
	503: "UNAVAILABLE",
	504: "DEADLINE_EXCEEDED",
}

type errorDetail struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// EncodeError 输出 {"error": {"code", "message", "status", "reason"}}
func EncodeError(w nethttp.ResponseWriter, r *nethttp.Request, err error) {
	se := errors.FromError(err)
	code := int(se.Code)
	status, ok := statusNames[code]
	if !ok {
		status = "UNKNOWN"
	}
	body, _ := json.Marshal(map[string]errorDetail{
		"error": {
			Code:    code,
			Message: se.Message,
			Status:  status,
			Reason:  se.Reason,
		},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
