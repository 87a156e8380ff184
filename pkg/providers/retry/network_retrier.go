package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	goretry "github.com/sethvargo/go-retry"
)

// RetryConfig 重试配置
type RetryConfig struct {
	// MaxRetries 最大重试次数（不含首次请求）
	MaxRetries int `json:"max_retries"`

	// InitialDelay 初始退避时间
	InitialDelay time.Duration `json:"initial_delay"`

	// MaxDelay 单次退避上限
	MaxDelay time.Duration `json:"max_delay"`
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
	}
}

// ErrorType 错误类型枚举
type ErrorType int

const (
	ErrorTypeNone          ErrorType = iota
	ErrorTypeNetwork                 // 网络瞬时错误
	ErrorTypeRetryableHTTP           // 429
	ErrorTypeClientError             // 4xx
	ErrorTypeServerError             // 5xx
	ErrorTypePermanent               // 永久性错误
)

// StatusError 重试耗尽后仍然失败的 HTTP 响应
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, body)
}

// NetworkRetrier 网络重试器，对网络错误、429 和 5xx 做指数退避
type NetworkRetrier struct {
	config RetryConfig
}

// NewNetworkRetrier 创建网络重试器
func NewNetworkRetrier(config RetryConfig) *NetworkRetrier {
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultRetryConfig().InitialDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = DefaultRetryConfig().MaxDelay
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	return &NetworkRetrier{config: config}
}

// RetryableFunc 可重试的函数类型，每次调用都必须构造新请求
type RetryableFunc func(ctx context.Context) (*http.Response, error)

// ExecuteWithRetry 执行带重试的请求。
// 2xx 和不可重试的 4xx 直接返回响应，由调用方检查状态码；
// 可重试错误耗尽后返回 *StatusError 或最后一次网络错误。
func (nr *NetworkRetrier) ExecuteWithRetry(ctx context.Context, fn RetryableFunc) (*http.Response, error) {
	backoff := goretry.NewExponential(nr.config.InitialDelay)
	backoff = goretry.WithCappedDuration(nr.config.MaxDelay, backoff)
	backoff = goretry.WithMaxRetries(uint64(nr.config.MaxRetries), backoff)

	var result *http.Response
	err := goretry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := fn(ctx)
		switch nr.classifyError(err, resp) {
		case ErrorTypeNone, ErrorTypeClientError:
			result = resp
			return nil
		case ErrorTypeNetwork:
			return goretry.RetryableError(err)
		case ErrorTypeServerError, ErrorTypeRetryableHTTP:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
			resp.Body.Close()
			return goretry.RetryableError(&StatusError{StatusCode: resp.StatusCode, Body: body})
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// classifyError 分类错误
func (nr *NetworkRetrier) classifyError(err error, resp *http.Response) ErrorType {
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return ErrorTypePermanent
		}
		if isNetworkError(err) {
			return ErrorTypeNetwork
		}
		return ErrorTypePermanent
	}

	if resp == nil {
		return ErrorTypePermanent
	}

	switch {
	case resp.StatusCode >= 500:
		return ErrorTypeServerError
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrorTypeRetryableHTTP
	case resp.StatusCode >= 400:
		return ErrorTypeClientError
	}
	return ErrorTypeNone
}

// isNetworkError 判断是否为网络错误
func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"temporary failure",
		"no such host",
		"broken pipe",
		"eof",
	} {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// RetryableHTTPClient 可重试的HTTP客户端
type RetryableHTTPClient struct {
	client  *http.Client
	retrier *NetworkRetrier
}

// WrapHTTPClient 包装HTTP客户端，添加重试功能
func (nr *NetworkRetrier) WrapHTTPClient(client *http.Client) *RetryableHTTPClient {
	return &RetryableHTTPClient{
		client:  client,
		retrier: nr,
	}
}

// Do 执行HTTP请求（带重试）。带 Body 的请求需要设置 GetBody
func (rc *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return rc.retrier.ExecuteWithRetry(req.Context(), func(ctx context.Context) (*http.Response, error) {
		cloned := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			cloned.Body = body
		}
		return rc.client.Do(cloned)
	})
}
