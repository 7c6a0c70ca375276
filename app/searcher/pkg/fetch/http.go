package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

const maxBodySize = 2 << 20 // 2MB

// StatusError 后端返回非 2xx 状态码
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPPool 共享一个 http.Client，限制并发借出的会话数
type HTTPPool struct {
	client    *http.Client
	userAgent string
	accept    string
	sem       *semaphore.Weighted
}

var _ search.Pool = (*HTTPPool)(nil)

// NewHTTPPool 创建 HTTP 会话池
func NewHTTPPool(timeout time.Duration, userAgent, accept string, maxSessions int) *HTTPPool {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if maxSessions <= 0 {
		maxSessions = 4
	}
	return &HTTPPool{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		accept:    accept,
		sem:       semaphore.NewWeighted(int64(maxSessions)),
	}
}

func (p *HTTPPool) Acquire(ctx context.Context) (search.Session, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire http session: %w", err)
	}
	return &httpSession{pool: p}, nil
}

func (p *HTTPPool) Release(sess search.Session) {
	s, ok := sess.(*httpSession)
	if !ok || s.released {
		return
	}
	s.released = true
	p.sem.Release(1)
}

type httpSession struct {
	pool     *HTTPPool
	released bool
}

func (s *httpSession) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	if s.pool.userAgent != "" {
		req.Header.Set("User-Agent", s.pool.userAgent)
	}
	if s.pool.accept != "" {
		req.Header.Set("Accept", s.pool.accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	res, err := s.pool.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body failed: %w", err)
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &StatusError{StatusCode: res.StatusCode, Body: snippet}
	}
	return body, nil
}
