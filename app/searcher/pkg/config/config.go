package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderSearXNG    = "searxng"

	RendererHTTP   = "http"
	RendererChrome = "chrome"

	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Config 搜索核心配置
type Config struct {
	Search SearchConfig `yaml:"search"`
	Log    LogConfig    `yaml:"log"`
}

// SearchConfig 搜索相关配置
type SearchConfig struct {
	Provider   string           `yaml:"provider"`
	Timeout    int              `yaml:"timeout"` // 秒
	UserAgent  string           `yaml:"user_agent"`
	MaxSession int              `yaml:"max_sessions"`
	DuckDuckGo DuckDuckGoConfig `yaml:"duckduckgo"`
	SearXNG    SearXNGConfig    `yaml:"searxng"`
	Browser    BrowserConfig    `yaml:"browser"`
}

// DuckDuckGoConfig 渲染页后端配置
type DuckDuckGoConfig struct {
	BaseURL  string `yaml:"base_url"`
	Renderer string `yaml:"renderer"` // http 或 chrome
}

// SearXNGConfig SearXNG 配置
type SearXNGConfig struct {
	BaseURL string        `yaml:"base_url"`
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	MaxFailures uint32 `yaml:"max_failures"`
	OpenSeconds int    `yaml:"open_seconds"`
}

// BrowserConfig chromedp 配置
type BrowserConfig struct {
	RemoteURL     string `yaml:"remote_url"`
	ExecPath      string `yaml:"exec_path"`
	Headless      *bool  `yaml:"headless"`
	WaitSelector  string `yaml:"wait_selector"`
	WaitTimeoutMs int    `yaml:"wait_timeout_ms"`
}

// LogConfig 日志相关配置
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// LoadConfig 从指定路径加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return cfg.WithDefaults(), nil
}

// WithDefaults 补全缺省值
func (c *Config) WithDefaults() *Config {
	if c == nil {
		c = &Config{}
	}
	s := &c.Search
	s.Provider = strings.ToLower(strings.TrimSpace(s.Provider))
	if s.Provider == "" {
		s.Provider = ProviderDuckDuckGo
	}
	if s.Timeout <= 0 {
		s.Timeout = 30
	}
	if s.UserAgent == "" {
		s.UserAgent = DefaultUserAgent
	}
	if s.MaxSession <= 0 {
		s.MaxSession = 4
	}
	if s.DuckDuckGo.BaseURL == "" {
		s.DuckDuckGo.BaseURL = "https://html.duckduckgo.com"
	}
	if s.DuckDuckGo.Renderer == "" {
		s.DuckDuckGo.Renderer = RendererHTTP
	}
	if s.SearXNG.Breaker.MaxFailures == 0 {
		s.SearXNG.Breaker.MaxFailures = 5
	}
	if s.SearXNG.Breaker.OpenSeconds <= 0 {
		s.SearXNG.Breaker.OpenSeconds = 30
	}
	if s.Browser.Headless == nil {
		headless := true
		s.Browser.Headless = &headless
	}
	if s.Browser.WaitSelector == "" {
		s.Browser.WaitSelector = "div.result"
	}
	if s.Browser.WaitTimeoutMs <= 0 {
		s.Browser.WaitTimeoutMs = 15000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSizeMB <= 0 {
		c.Log.MaxSizeMB = 100
	}
	return c
}
