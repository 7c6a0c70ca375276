package factory

import (
	"fmt"
	"time"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/config"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/duckduckgo"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/fetch"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/searxng"
)

// NewBackend 根据配置创建后端及其会话池，cleanup 在进程退出时释放浏览器等资源
func NewBackend(cfg *config.Config) (search.Backend, search.Pool, func(), error) {
	cfg = cfg.WithDefaults()
	sc := cfg.Search
	timeout := time.Duration(sc.Timeout) * time.Second

	switch sc.Provider {
	case config.ProviderSearXNG:
		if sc.SearXNG.BaseURL == "" {
			return nil, nil, nil, fmt.Errorf("searxng base url is missing")
		}
		backend := searxng.NewClient(sc.SearXNG.BaseURL, searxng.BreakerSettings{
			MaxFailures: sc.SearXNG.Breaker.MaxFailures,
			OpenTimeout: time.Duration(sc.SearXNG.Breaker.OpenSeconds) * time.Second,
		})
		pool := fetch.NewHTTPPool(timeout, sc.UserAgent, "application/json", sc.MaxSession)
		logger.Log.Infof("搜索后端: searxng (%s)", sc.SearXNG.BaseURL)
		return backend, pool, func() {}, nil

	case config.ProviderDuckDuckGo:
		backend := duckduckgo.NewClient(sc.DuckDuckGo.BaseURL)
		switch sc.DuckDuckGo.Renderer {
		case config.RendererChrome:
			pool, err := fetch.NewChromePool(fetch.ChromeConfig{
				RemoteURL:    sc.Browser.RemoteURL,
				ExecPath:     sc.Browser.ExecPath,
				Headless:     *sc.Browser.Headless,
				UserAgent:    sc.UserAgent,
				Timeout:      timeout,
				WaitSelector: sc.Browser.WaitSelector,
				WaitTimeout:  time.Duration(sc.Browser.WaitTimeoutMs) * time.Millisecond,
				MaxSessions:  sc.MaxSession,
			})
			if err != nil {
				return nil, nil, nil, fmt.Errorf("browser init failed: %w", err)
			}
			logger.Log.Info("搜索后端: duckduckgo (chrome)")
			return backend, pool, pool.Close, nil
		case config.RendererHTTP:
			pool := fetch.NewHTTPPool(timeout, sc.UserAgent, "text/html", sc.MaxSession)
			logger.Log.Info("搜索后端: duckduckgo (http)")
			return backend, pool, func() {}, nil
		default:
			return nil, nil, nil, fmt.Errorf("unknown duckduckgo renderer: %s", sc.DuckDuckGo.Renderer)
		}

	default:
		return nil, nil, nil, fmt.Errorf("unknown search provider: %s", sc.Provider)
	}
}
