package conf

type Bootstrap struct {
	Server    *Server
	Data      *Data
	Auth      *Auth
	RateLimit *RateLimit `json:"rate_limit"`
	Cache     *Cache
	Searcher  *Searcher
}

type Server struct {
	Http *HTTP
	Cors *CORS
}

// CORS 未配置时允许所有来源
type CORS struct {
	Enabled        bool
	AllowedOrigins []string `json:"allowed_origins"`
	AllowedHeaders []string `json:"allowed_headers"`
}

type HTTP struct {
	Addr    string
	Timeout string
}

type Data struct {
	Database *Database
	Redis    *Redis
}

type Database struct {
	Driver string
	Source string
}

type Redis struct {
	Addr     string
	Password string
	Db       int32
}

type Auth struct {
	Enabled bool   `json:"enabled"`
	ApiKey  string `json:"api_key"`
}

type RateLimit struct {
	Enabled bool  `json:"enabled"`
	Calls   int32 `json:"calls"`
	Period  int32 `json:"period"` // 秒
}

type Cache struct {
	Enabled bool   `json:"enabled"`
	Driver  string `json:"driver"` // memory, redis, postgres
	Ttl     int32  `json:"ttl"`    // 秒
	MaxSize int32  `json:"max_size"`
}

type Searcher struct {
	Provider    string      `json:"provider"`
	Timeout     int32       `json:"timeout"`
	UserAgent   string      `json:"user_agent"`
	MaxSessions int32       `json:"max_sessions"`
	Duckduckgo  *DuckDuckGo `json:"duckduckgo"`
	Searxng     *SearXNG    `json:"searxng"`
	Browser     *Browser    `json:"browser"`
	Log         *Log        `json:"log"`
}

type DuckDuckGo struct {
	BaseUrl  string `json:"base_url"`
	Renderer string `json:"renderer"`
}

type SearXNG struct {
	BaseUrl     string `json:"base_url"`
	MaxFailures uint32 `json:"max_failures"`
	OpenSeconds int32  `json:"open_seconds"`
}

type Browser struct {
	RemoteUrl     string `json:"remote_url"`
	ExecPath      string `json:"exec_path"`
	Headless      *bool  `json:"headless"`
	WaitSelector  string `json:"wait_selector"`
	WaitTimeoutMs int32  `json:"wait_timeout_ms"`
}

type Log struct {
	Level string `json:"level"`
	File  string `json:"file"`
}
