package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/retry"
)

// BaseConfig 基础配置
type BaseConfig struct {
	// API配置
	APIKey      string `json:"api_key,omitempty"`
	APIEndpoint string `json:"api_endpoint,omitempty"`

	// 超时和重试
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay"`

	// 自定义头部
	Headers map[string]string `json:"headers,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() BaseConfig {
	return BaseConfig{
		Timeout:    60 * time.Second,
		MaxRetries: 3,
		RetryDelay: 500 * time.Millisecond,
		Headers:    make(map[string]string),
	}
}

// NewRetrier 根据基础配置创建网络重试器
func (c BaseConfig) NewRetrier() *retry.NetworkRetrier {
	cfg := retry.DefaultRetryConfig()
	cfg.MaxRetries = c.MaxRetries
	if c.RetryDelay > 0 {
		cfg.InitialDelay = c.RetryDelay
	}
	return retry.NewNetworkRetrier(cfg)
}

// TranslationProvider 提供商基础接口
type TranslationProvider interface {
	// Translate 执行翻译
	Translate(ctx context.Context, req *ProviderRequest) (*ProviderResponse, error)

	// GetName 获取提供商名称
	GetName() string

	// SupportsSteps 是否支持多步骤翻译
	SupportsSteps() bool
}

// Provider 提供商接口（扩展 TranslationProvider）
type Provider interface {
	TranslationProvider

	// Configure 配置提供商
	Configure(config interface{}) error

	// GetCapabilities 获取提供商能力
	GetCapabilities() Capabilities

	// HealthCheck 健康检查
	HealthCheck(ctx context.Context) error
}

// Capabilities 提供商能力
type Capabilities struct {
	// 支持的语言
	SupportedLanguages []Language `json:"supported_languages"`

	// 单次请求最大文本长度
	MaxTextLength int `json:"max_text_length"`

	// 是否需要API密钥
	RequiresAPIKey bool `json:"requires_api_key"`

	// 速率限制
	RateLimit *RateLimit `json:"rate_limit,omitempty"`
}

// Language 语言信息
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// RateLimit 速率限制
type RateLimit struct {
	RequestsPerMinute int `json:"requests_per_minute"`
	CharactersPerDay  int `json:"characters_per_day"`
}

// 错误代码
const (
	ErrCodeAuth        = "auth"
	ErrCodeRateLimit   = "rate_limit"
	ErrCodeTimeout     = "timeout"
	ErrCodeServer      = "server_error"
	ErrCodeInvalid     = "invalid_request"
	ErrCodeQuota       = "quota_exceeded"
	ErrCodeUnsupported = "unsupported_language"
	ErrCodeNetwork     = "network"
	ErrCodeUnknown     = "unknown"
)

// Error 提供商错误
type Error struct {
	Provider string                 `json:"provider,omitempty"`
	Code     string                 `json:"code"`
	Message  string                 `json:"message"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s", e.Provider, e.Message)
	}
	return e.Message
}

// IsRetryable 判断错误是否可重试
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeServer, ErrCodeNetwork:
		return true
	default:
		return false
	}
}

// NewError 创建提供商错误
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// NewErrorWithDetails 创建带详情的错误
func NewErrorWithDetails(code, message string, details map[string]interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// StatusCode 将 HTTP 状态码映射为错误代码
func StatusCode(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrCodeAuth
	case status == http.StatusTooManyRequests:
		return ErrCodeRateLimit
	case status == 456: // DeepL 配额耗尽
		return ErrCodeQuota
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrCodeTimeout
	case status >= 500:
		return ErrCodeServer
	case status >= 400:
		return ErrCodeInvalid
	default:
		return ErrCodeUnknown
	}
}

// HTTPError 根据 HTTP 状态构造提供商错误
func HTTPError(provider string, status int, message string) *Error {
	return &Error{
		Provider: provider,
		Code:     StatusCode(status),
		Message:  message,
		Details:  map[string]interface{}{"status": status},
	}
}

// WrapTransportError 转换重试器返回的错误
func WrapTransportError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var se *retry.StatusError
	if errors.As(err, &se) {
		return HTTPError(provider, se.StatusCode, se.Error())
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: provider, Code: ErrCodeTimeout, Message: err.Error()}
	}
	return &Error{Provider: provider, Code: ErrCodeNetwork, Message: err.Error()}
}

// ProviderRequest 提供商请求
type ProviderRequest struct {
	Text           string                 `json:"text"`
	SourceLanguage string                 `json:"source_language,omitempty"`
	TargetLanguage string                 `json:"target_language,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// ProviderResponse 提供商响应
type ProviderResponse struct {
	Text       string                 `json:"text"`
	SourceLang string                 `json:"source_lang,omitempty"`
	TargetLang string                 `json:"target_lang,omitempty"`
	Model      string                 `json:"model,omitempty"`
	TokensIn   int                    `json:"tokens_in,omitempty"`
	TokensOut  int                    `json:"tokens_out,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
