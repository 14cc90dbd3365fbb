package embedding

import (
	"errors"
	"fmt"
)

// 定义基础错误类型
var (
	ErrProviderRequestFailed = errors.New("嵌入服务请求失败")
	ErrProviderBadResponse   = errors.New("嵌入服务响应异常")
	ErrDimensionMismatch     = errors.New("向量维度不符合预期")
	ErrEmptyInput            = errors.New("嵌入输入为空")
)

// ProviderError 包含详细信息的嵌入服务错误
type ProviderError struct {
	Provider   string
	Op         string
	StatusCode int
	BaseErr    error
	Detail     string
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (提供方:%s, 操作:%s, 状态码:%d): %s", e.BaseErr, e.Provider, e.Op, e.StatusCode, e.Detail)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s (提供方:%s, 操作:%s): %s", e.BaseErr, e.Provider, e.Op, e.Detail)
	}
	return fmt.Sprintf("%s (提供方:%s, 操作:%s)", e.BaseErr, e.Provider, e.Op)
}

func (e *ProviderError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *ProviderError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewRequestError 构造请求阶段的提供方错误
func NewRequestError(provider, op, detail string) error {
	return &ProviderError{
		Provider: provider,
		Op:       op,
		BaseErr:  ErrProviderRequestFailed,
		Detail:   detail,
	}
}

// NewResponseError 构造响应阶段的提供方错误
func NewResponseError(provider, op string, statusCode int, detail string) error {
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: statusCode,
		BaseErr:    ErrProviderBadResponse,
		Detail:     detail,
	}
}
