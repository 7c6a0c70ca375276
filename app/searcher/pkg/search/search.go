package search

import "context"

// Addressing 后端对 (start, count) 窗口的寻址方式
type Addressing int

const (
	// AddressFullPage 后端一次返回整页结果，由调用方按窗口切片
	AddressFullPage Addressing = iota
	// AddressPaged 后端按页码请求，页大小与 count 对齐
	AddressPaged
)

func (a Addressing) String() string {
	switch a {
	case AddressFullPage:
		return "full-page"
	case AddressPaged:
		return "paged"
	default:
		return "unknown"
	}
}

// Backend 定义通用的搜索后端接口
type Backend interface {
	// Name 返回后端标识，例如 "duckduckgo"、"searxng"
	Name() string
	// Addressing 返回后端的寻址方式
	Addressing() Addressing
	// Fetch 使用会话执行一次查询。没有结果不是错误，返回空的 Records。
	Fetch(ctx context.Context, sess Session, q Query) (*Batch, error)
}

// Session 一次后端调用期间持有的会话句柄
type Session interface {
	// Fetch 获取 URL 对应的文档正文
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Pool 管理共享的浏览器或 HTTP 资源，必须支持并发借出
type Pool interface {
	Acquire(ctx context.Context) (Session, error)
	Release(sess Session)
}

// Batch 后端返回的原始记录及总数估计
type Batch struct {
	Records       []RawRecord
	TotalEstimate int64
}

// RawRecord 后端原生的单条结果
type RawRecord struct {
	URL     string
	Title   string
	Snippet string

	// 以下字段依后端而定，可能为空
	Engine    string
	Thumbnail string
	Published string
	Image     *Image
}
