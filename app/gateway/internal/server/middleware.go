package server

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
	"golang.org/x/time/rate"
)

const (
	ReasonInvalidAPIKey     = "INVALID_API_KEY"
	ReasonRateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	anonymousClient = "anonymous"
)

func ErrInvalidAPIKey() *errors.Error {
	return errors.Unauthorized(ReasonInvalidAPIKey, "Invalid API key")
}

func ErrRateLimitExceeded() *errors.Error {
	return errors.New(429, ReasonRateLimitExceeded, "Rate limit exceeded")
}

// requestValues 取出请求中的 key 参数和 X-Forwarded-For
func requestValues(ctx context.Context) (key, forwarded string) {
	tr, ok := transport.FromServerContext(ctx)
	if !ok {
		return "", ""
	}
	forwarded = tr.RequestHeader().Get("X-Forwarded-For")
	if ht, ok := tr.(http.Transporter); ok {
		key = ht.Request().URL.Query().Get("key")
	}
	return key, forwarded
}

// ClientID 限流使用的客户端标识：key，其次 X-Forwarded-For，最后 anonymous
func ClientID(ctx context.Context) string {
	key, forwarded := requestValues(ctx)
	if key != "" {
		return key
	}
	if forwarded != "" {
		// 只取最靠近客户端的地址
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	return anonymousClient
}

// Auth 校验 key 参数
func Auth(apiKey string) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			key, _ := requestValues(ctx)
			if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
				return nil, ErrInvalidAPIKey()
			}
			return handler(ctx, req)
		}
	}
}

// RateLimit 按客户端限流
func RateLimit(l *RateLimiter) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req any) (any, error) {
			if !l.Allow(ClientID(ctx)) {
				return nil, ErrRateLimitExceeded()
			}
			return handler(ctx, req)
		}
	}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 每个客户端一个令牌桶，period 内最多 calls 次
type RateLimiter struct {
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	period    time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewRateLimiter(calls int, period time.Duration) *RateLimiter {
	if calls <= 0 {
		calls = 100
	}
	if period <= 0 {
		period = time.Hour
	}
	return &RateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Limit(float64(calls) / period.Seconds()),
		burst:   calls,
		period:  period,
		now:     time.Now,
	}
}

// Allow 消耗一个令牌
func (l *RateLimiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	c, ok := l.clients[clientID]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientID] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// sweep 移除闲置超过一个周期的客户端，此时令牌桶已经回满
func (l *RateLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.period {
		return
	}
	for id, c := range l.clients {
		if now.Sub(c.lastSeen) >= l.period {
			delete(l.clients, id)
		}
	}
	l.lastSweep = now
}

// Clients 当前跟踪的客户端数量
func (l *RateLimiter) Clients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
