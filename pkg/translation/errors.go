package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

// 预定义错误
var (
	// ErrNoProvider 翻译提供商未设置
	ErrNoProvider = errors.New("translation provider not configured")

	// ErrEmptyText 空文本错误
	ErrEmptyText = errors.New("empty text provided")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidChunkSize 块大小不合法（<=0 或不大于页面分隔标记长度）
	ErrInvalidChunkSize = errors.New("invalid max chunk size")

	// ErrChunkIndex 块索引越界
	ErrChunkIndex = errors.New("chunk index out of range")

	// ErrTimeout 超时错误
	ErrTimeout = errors.New("translation timeout")

	// ErrRateLimited 速率限制错误
	ErrRateLimited = errors.New("rate limited")
)

// TranslationError 翻译错误
type TranslationError struct {
	Code       string // 错误代码
	Message    string // 错误消息
	Cause      error  // 原因
	ChunkIndex int    // 出错的块索引，-1 表示与块无关
	Retry      bool   // 是否可重试
}

// Error 实现error接口
func (e *TranslationError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.ChunkIndex >= 0 {
		msg = fmt.Sprintf("[%s] chunk %d: %s", e.Code, e.ChunkIndex+1, e.Message)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap 返回原因错误
func (e *TranslationError) Unwrap() error {
	return e.Cause
}

// IsRetryable 是否可重试
func (e *TranslationError) IsRetryable() bool {
	return e.Retry
}

// NewTranslationError 创建翻译错误
func NewTranslationError(code, message string, cause error) *TranslationError {
	return &TranslationError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		ChunkIndex: -1,
		Retry:      isRetryableError(cause),
	}
}

// NewChunkError 创建块级错误
func NewChunkError(index int, cause error) *TranslationError {
	return &TranslationError{
		Code:       ErrCodeChunk,
		Message:    "translation failed",
		Cause:      cause,
		ChunkIndex: index,
		Retry:      isRetryableError(cause),
	}
}

// 错误代码常量
const (
	ErrCodeConfig     = "CONFIG_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeProvider   = "PROVIDER_ERROR"
	ErrCodeChunk      = "CHUNK_ERROR"
	ErrCodeCache      = "CACHE_ERROR"
	ErrCodeUnknown    = "UNKNOWN_ERROR"
)

// WrapError 包装错误
func WrapError(err error, code, message string) *TranslationError {
	if err == nil {
		return nil
	}

	// 已经是TranslationError，保留原有信息
	var te *TranslationError
	if errors.As(err, &te) {
		return &TranslationError{
			Code:       te.Code,
			Message:    message + ": " + te.Message,
			Cause:      te.Cause,
			ChunkIndex: te.ChunkIndex,
			Retry:      te.Retry,
		}
	}

	return &TranslationError{
		Code:       code,
		Message:    message,
		Cause:      err,
		ChunkIndex: -1,
		Retry:      isRetryableError(err),
	}
}

// ChunkIndexOf 返回错误关联的块索引
func ChunkIndexOf(err error) (int, bool) {
	var te *TranslationError
	if errors.As(err, &te) && te.ChunkIndex >= 0 {
		return te.ChunkIndex, true
	}
	return -1, false
}

// isRetryableError 判断错误是否可重试
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var pe *providers.Error
	if errors.As(err, &pe) {
		return pe.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"temporary failure",
		"rate limit",
		"429",
		"503",
		"504",
		"no such host",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}
