package server

import (
	"github.com/go-kratos/kratos/v2/log"

	"github.com/iWorld-y/custom_search/app/gateway/internal/conf"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/config"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/engine"
	csLogger "github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
)

// SearcherConfig 将 internal/conf.Searcher 转换为 pkg/config.Config
func SearcherConfig(c *conf.Searcher) *config.Config {
	cfg := &config.Config{}
	if c == nil {
		return cfg.WithDefaults()
	}
	cfg.Search = config.SearchConfig{
		Provider:   c.Provider,
		Timeout:    int(c.Timeout),
		UserAgent:  c.UserAgent,
		MaxSession: int(c.MaxSessions),
	}
	if c.Duckduckgo != nil {
		cfg.Search.DuckDuckGo = config.DuckDuckGoConfig{
			BaseURL:  c.Duckduckgo.BaseUrl,
			Renderer: c.Duckduckgo.Renderer,
		}
	}
	if c.Searxng != nil {
		cfg.Search.SearXNG = config.SearXNGConfig{
			BaseURL: c.Searxng.BaseUrl,
			Breaker: config.BreakerConfig{
				MaxFailures: c.Searxng.MaxFailures,
				OpenSeconds: int(c.Searxng.OpenSeconds),
			},
		}
	}
	if c.Browser != nil {
		cfg.Search.Browser = config.BrowserConfig{
			RemoteURL:     c.Browser.RemoteUrl,
			ExecPath:      c.Browser.ExecPath,
			Headless:      c.Browser.Headless,
			WaitSelector:  c.Browser.WaitSelector,
			WaitTimeoutMs: int(c.Browser.WaitTimeoutMs),
		}
	}
	if c.Log != nil {
		cfg.Log = config.LogConfig{
			Level: c.Log.Level,
			File:  c.Log.File,
		}
	}
	return cfg.WithDefaults()
}

// NewSearchEngine 初始化搜索核心
func NewSearchEngine(c *conf.Searcher, logger log.Logger) (*engine.Engine, func(), error) {
	helper := log.NewHelper(logger)
	cfg := SearcherConfig(c)

	// 初始化核心日志
	if err := csLogger.InitLogger(csLogger.Options{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	}); err != nil {
		helper.Errorf("Failed to init searcher logger: %v", err)
		_ = csLogger.InitLogger(csLogger.Options{Level: "info"}) // 降级处理
	}

	eng, closePool, err := engine.NewEngine(cfg)
	if err != nil {
		helper.Errorf("Failed to init search engine: %v", err)
		return nil, nil, err
	}
	helper.Infof("search engine ready: backend=%s", eng.Backend().Name())

	cleanup := func() {
		helper.Info("closing search engine")
		closePool()
	}
	return eng, cleanup, nil
}
