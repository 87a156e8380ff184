package stats

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

// StatisticsMiddleware 记录调用统计的提供商包装器
type StatisticsMiddleware struct {
	next         providers.Provider
	statsManager *StatsManager
	providerName string
	modelName    string
}

var _ providers.Provider = (*StatisticsMiddleware)(nil)

// NewStatisticsMiddleware 创建统计中间件
func NewStatisticsMiddleware(next providers.Provider, statsManager *StatsManager, providerName, modelName string) *StatisticsMiddleware {
	if providerName == "" {
		providerName = next.GetName()
	}
	return &StatisticsMiddleware{
		next:         next,
		statsManager: statsManager,
		providerName: providerName,
		modelName:    modelName,
	}
}

// Translate 执行翻译并记录结果
func (sm *StatisticsMiddleware) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	start := time.Now()
	resp, err := sm.next.Translate(ctx, req)

	result := RequestResult{
		Success: err == nil,
		Latency: time.Since(start),
	}
	if err != nil {
		result.ErrorType = classifyError(err)
	} else if resp != nil {
		result.TokensIn = resp.TokensIn
		result.TokensOut = resp.TokensOut
		result.Characters = utf8.RuneCountInString(req.Text)
	}

	model := sm.modelName
	if model == "" && resp != nil {
		model = resp.Model
	}
	sm.statsManager.RecordRequest(sm.providerName, model, result)

	return resp, err
}

// classifyError 错误分类
func classifyError(err error) string {
	var pe *providers.Error
	switch {
	case errors.As(err, &pe):
		return pe.Code
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return providers.ErrCodeTimeout
	default:
		return providers.ErrCodeUnknown
	}
}

func (sm *StatisticsMiddleware) GetName() string {
	return sm.next.GetName()
}

func (sm *StatisticsMiddleware) SupportsSteps() bool {
	return sm.next.SupportsSteps()
}

func (sm *StatisticsMiddleware) Configure(config interface{}) error {
	return sm.next.Configure(config)
}

func (sm *StatisticsMiddleware) GetCapabilities() providers.Capabilities {
	return sm.next.GetCapabilities()
}

func (sm *StatisticsMiddleware) HealthCheck(ctx context.Context) error {
	return sm.next.HealthCheck(ctx)
}
