package search

import (
	"fmt"

	"github.com/go-kratos/kratos/v2/errors"
)

const (
	// ReasonInvalidQuery 查询参数校验失败，不会到达后端
	ReasonInvalidQuery = "INVALID_QUERY"
	// ReasonBackendUnavailable 网络、导航、超时或非 2xx 响应
	ReasonBackendUnavailable = "BACKEND_UNAVAILABLE"
)

// ErrInvalidQuery 构造 InvalidQuery 错误
func ErrInvalidQuery(format string, args ...any) *errors.Error {
	return errors.BadRequest(ReasonInvalidQuery, fmt.Sprintf(format, args...))
}

// ErrBackendUnavailable 将后端错误包装为 BackendUnavailable
func ErrBackendUnavailable(backend string, cause error) *errors.Error {
	msg := fmt.Sprintf("backend %s unavailable", backend)
	if cause != nil {
		msg = fmt.Sprintf("backend %s unavailable: %v", backend, cause)
	}
	return errors.ServiceUnavailable(ReasonBackendUnavailable, msg).
		WithCause(cause).
		WithMetadata(map[string]string{"backend": backend})
}

func IsInvalidQuery(err error) bool {
	return errors.Reason(err) == ReasonInvalidQuery
}

func IsBackendUnavailable(err error) bool {
	return errors.Reason(err) == ReasonBackendUnavailable
}
