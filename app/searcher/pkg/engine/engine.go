package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iWorld-y/custom_search/app/searcher/pkg/config"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/logger"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search"
	"github.com/iWorld-y/custom_search/app/searcher/pkg/search/factory"
)

// ErrRawUnsupported 当前后端不提供原始响应
var ErrRawUnsupported = errors.New("backend does not expose raw responses")

// rawBackend 可以返回未经处理响应的后端，目前只有 SearXNG
type rawBackend interface {
	Raw(ctx context.Context, sess search.Session, text string) (json.RawMessage, error)
}

// Engine 搜索编排：校验、调用后端、规范化、分页并组装响应
type Engine struct {
	backend search.Backend
	pool    search.Pool
	timeout time.Duration
}

// New 使用已构造好的后端和会话池创建引擎，timeout 为 0 时不额外限时
func New(backend search.Backend, pool search.Pool, timeout time.Duration) *Engine {
	return &Engine{
		backend: backend,
		pool:    pool,
		timeout: timeout,
	}
}

// NewEngine 根据配置创建引擎，返回的 cleanup 负责关闭会话池
func NewEngine(cfg *config.Config) (*Engine, func(), error) {
	cfg = cfg.WithDefaults()
	backend, pool, cleanup, err := factory.NewBackend(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("搜索后端初始化失败: %w", err)
	}
	return New(backend, pool, time.Duration(cfg.Search.Timeout)*time.Second), cleanup, nil
}

// Backend 当前使用的后端
func (e *Engine) Backend() search.Backend { return e.backend }

// Search 执行一次查询。没有结果时返回 items 为空的正常响应。
func (e *Engine) Search(ctx context.Context, q search.Query) (*search.Envelope, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	name := e.backend.Name()
	logger.Log.Debugf("查询 [%s] 已分派到 %s (start=%d, count=%d)", q.Text, name, q.Start, q.Count)

	batch, elapsed, err := e.dispatch(ctx, q)
	if err != nil {
		logger.Log.Warnf("查询 [%s] 失败: %v", q.Text, err)
		return nil, search.ErrBackendUnavailable(name, err)
	}

	items := make([]search.Item, 0, len(batch.Records))
	dropped := 0
	for _, raw := range batch.Records {
		item, ok := search.Normalize(raw)
		if !ok {
			dropped++
			continue
		}
		items = append(items, item)
	}
	if dropped > 0 {
		logger.Log.Warnf("查询 [%s] 丢弃 %d 条无效记录", q.Text, dropped)
	}

	items = search.Window(items, q, e.backend.Addressing())
	nav := search.Navigate(q, len(items))

	logger.Log.Debugf("查询 [%s] 成功: %d 条结果，耗时 %v", q.Text, len(items), elapsed)
	return search.Assemble(items, batch.TotalEstimate, q, elapsed, nav), nil
}

// dispatch 借出会话并调用后端，返回后端调用耗时
func (e *Engine) dispatch(ctx context.Context, q search.Query) (*search.Batch, time.Duration, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	sess, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer e.pool.Release(sess)

	start := time.Now()
	batch, err := e.backend.Fetch(ctx, sess, q)
	elapsed := time.Since(start)
	if err != nil {
		return nil, elapsed, err
	}
	if batch == nil {
		batch = &search.Batch{}
	}
	return batch, elapsed, nil
}

// Raw 返回后端的原始响应，仅 SearXNG 支持
func (e *Engine) Raw(ctx context.Context, text string) (json.RawMessage, error) {
	rb, ok := e.backend.(rawBackend)
	if !ok {
		return nil, ErrRawUnsupported
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	sess, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, search.ErrBackendUnavailable(e.backend.Name(), err)
	}
	defer e.pool.Release(sess)

	raw, err := rb.Raw(ctx, sess, text)
	if err != nil {
		return nil, search.ErrBackendUnavailable(e.backend.Name(), err)
	}
	return raw, nil
}
