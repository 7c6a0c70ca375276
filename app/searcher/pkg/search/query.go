package search

import (
	"regexp"
	"strings"
)

const (
	// MaxCount 单次请求最多返回的条数
	MaxCount = 10
	// MaxStart 可寻址的最大起始序号
	MaxStart = 91

	DefaultCount = 10
	DefaultStart = 1
)

// SafeLevel 安全搜索级别
type SafeLevel string

const (
	SafeOff      SafeLevel = "off"
	SafeModerate SafeLevel = "moderate"
	SafeStrict   SafeLevel = "strict"
)

// ParseSafeLevel 兼容 Custom Search 的 safe 取值 (off/medium/high/active)
func ParseSafeLevel(s string) (SafeLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "off":
		return SafeOff, nil
	case "medium", "moderate", "active":
		return SafeModerate, nil
	case "high", "strict":
		return SafeStrict, nil
	default:
		return "", ErrInvalidQuery("unsupported safe level %q", s)
	}
}

var dateRestrictRe = regexp.MustCompile(`^[dwmy][0-9]+$`)

// Query 一次逻辑搜索请求，构造后不再修改
type Query struct {
	Text         string
	Count        int
	Start        int
	Language     string // 例如 lang_en
	Safe         SafeLevel
	DateRestrict string // 例如 d7、w2、m1、y1
}

// Option 设置 Query 的可选字段
type Option func(*Query)

func WithCount(n int) Option { return func(q *Query) { q.Count = n } }

func WithStart(n int) Option { return func(q *Query) { q.Start = n } }

func WithLanguage(lr string) Option { return func(q *Query) { q.Language = strings.TrimSpace(lr) } }

func WithSafe(level SafeLevel) Option { return func(q *Query) { q.Safe = level } }

func WithDateRestrict(dr string) Option {
	return func(q *Query) { q.DateRestrict = strings.TrimSpace(dr) }
}

// NewQuery 创建并校验查询
func NewQuery(text string, opts ...Option) (Query, error) {
	q := Query{
		Text:  strings.TrimSpace(text),
		Count: DefaultCount,
		Start: DefaultStart,
		Safe:  SafeOff,
	}
	for _, opt := range opts {
		opt(&q)
	}
	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

// Validate 校验查询是否可以交给后端
func (q Query) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return ErrInvalidQuery("query text must not be empty")
	}
	if q.Count < 1 || q.Count > MaxCount {
		return ErrInvalidQuery("num must be between 1 and %d, got %d", MaxCount, q.Count)
	}
	if q.Start < 1 || q.Start > MaxStart {
		return ErrInvalidQuery("start must be between 1 and %d, got %d", MaxStart, q.Start)
	}
	switch q.Safe {
	case SafeOff, SafeModerate, SafeStrict:
	default:
		return ErrInvalidQuery("unsupported safe level %q", q.Safe)
	}
	if q.DateRestrict != "" && !dateRestrictRe.MatchString(q.DateRestrict) {
		return ErrInvalidQuery("invalid dateRestrict %q", q.DateRestrict)
	}
	return nil
}

// LanguageCode 将 lang_en 这类限制转换为 en
func (q Query) LanguageCode() string {
	return strings.TrimPrefix(strings.ToLower(q.Language), "lang_")
}
