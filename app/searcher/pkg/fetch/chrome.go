package fetch

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/sync/semaphore"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
)

// ChromeConfig chromedp 浏览器池配置
type ChromeConfig struct {
	// RemoteURL 远程 Chrome 的 CDP WebSocket 地址，为空时本地启动
	RemoteURL    string
	// ExecPath 本地 Chrome 可执行文件，为空时由 chromedp 自动查找
	ExecPath     string
	Headless     bool
	UserAgent    string
	Timeout      time.Duration // 单次导航超时
	WaitSelector string
	WaitTimeout  time.Duration
	MaxSessions  int
}

// ChromePool 持有一个长期存活的浏览器，每次借出都打开独立的浏览上下文
type ChromePool struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	sem           *semaphore.Weighted
	timeout       time.Duration
	waitSelector  string
	waitTimeout   time.Duration
}

var _ search.Pool = (*ChromePool)(nil)

// NewChromePool 启动浏览器
func NewChromePool(cfg ChromeConfig) (*ChromePool, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 4
	}

	p := &ChromePool{
		sem:          semaphore.NewWeighted(int64(cfg.MaxSessions)),
		timeout:      cfg.Timeout,
		waitSelector: cfg.WaitSelector,
		waitTimeout:  cfg.WaitTimeout,
	}

	var allocCtx context.Context
	if cfg.RemoteURL != "" {
		allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		logger.Log.Infof("连接远程浏览器: %s", cfg.RemoteURL)
	} else {
		// 复制默认参数，避免修改包级切片
		opts := make([]chromedp.ExecAllocatorOption, len(chromedp.DefaultExecAllocatorOptions))
		copy(opts, chromedp.DefaultExecAllocatorOptions[:])
		opts = append(opts,
			chromedp.Flag("headless", cfg.Headless),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-setuid-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-blink-features", "AutomationControlled"),
			chromedp.WindowSize(1920, 1080),
		)
		if cfg.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
		}
		if cfg.UserAgent != "" {
			opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
		}
		allocCtx, p.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
		logger.Log.Infof("启动本地浏览器 (headless=%v)", cfg.Headless)
	}

	p.browserCtx, p.browserCancel = chromedp.NewContext(allocCtx)

	// 第一次 Run 会绑定浏览器会话，不能使用派生的超时 context
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(p.browserCtx) }()
	select {
	case err := <-started:
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("start browser: %w", err)
		}
	case <-time.After(cfg.Timeout):
		p.Close()
		return nil, fmt.Errorf("start browser: timed out after %v", cfg.Timeout)
	}

	logger.Log.Info("浏览器已启动")
	return p, nil
}

func (p *ChromePool) Acquire(ctx context.Context) (search.Session, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}
	tab, cancel := chromedp.NewContext(p.browserCtx, chromedp.WithNewBrowserContext())
	if err := chromedp.Run(tab); err != nil {
		cancel()
		p.sem.Release(1)
		return nil, fmt.Errorf("open browser context: %w", err)
	}
	return &chromeSession{pool: p, tab: tab, cancel: cancel}, nil
}

func (p *ChromePool) Release(sess search.Session) {
	s, ok := sess.(*chromeSession)
	if !ok || s.cancel == nil {
		return
	}
	// 取消 tab context 即关闭标签页及其浏览上下文
	s.cancel()
	s.cancel = nil
	p.sem.Release(1)
}

// Close 关闭浏览器，进程退出时调用
func (p *ChromePool) Close() {
	if p.browserCancel != nil {
		p.browserCancel()
	}
	if p.allocCancel != nil {
		p.allocCancel()
	}
	logger.Log.Info("浏览器已关闭")
}

type chromeSession struct {
	pool   *ChromePool
	tab    context.Context
	cancel context.CancelFunc
}

func (s *chromeSession) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	tctx, cancel := context.WithTimeout(s.tab, s.pool.timeout)
	defer cancel()
	// 调用方取消时放弃正在进行的导航
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	resp, err := chromedp.RunResponse(tctx, chromedp.Navigate(rawURL))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("navigate %s: %w", rawURL, ctx.Err())
		}
		return nil, fmt.Errorf("navigate %s: %w", rawURL, err)
	}
	if resp != nil && (resp.Status < 200 || resp.Status >= 300) {
		return nil, &StatusError{StatusCode: int(resp.Status), Body: resp.StatusText}
	}

	if s.pool.waitSelector != "" {
		wctx, wcancel := context.WithTimeout(tctx, s.pool.waitTimeout)
		if err := chromedp.Run(wctx, chromedp.WaitReady(s.pool.waitSelector, chromedp.ByQuery)); err != nil {
			// 没有结果容器不代表失败，交给解析阶段处理
			logger.Log.Warnf("未等到结果容器 [%s]: %v", s.pool.waitSelector, err)
		}
		wcancel()
	}

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read document %s: %w", rawURL, err)
	}
	return []byte(html), nil
}
