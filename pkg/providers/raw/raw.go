package raw

import (
	"context"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

// Provider 直通提供商，原样返回文本，用于演练和测试
type Provider struct{}

var _ providers.Provider = (*Provider)(nil)

// New 创建直通提供商
func New() *Provider {
	return &Provider{}
}

// Configure 不需要配置
func (p *Provider) Configure(interface{}) error {
	return nil
}

// Translate 直接返回原文
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &providers.ProviderResponse{
		Text:       req.Text,
		SourceLang: req.SourceLanguage,
		TargetLang: req.TargetLanguage,
		Model:      "raw",
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "raw"
}

// SupportsSteps 直通无所谓步骤
func (p *Provider) SupportsSteps() bool {
	return true
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{{Code: "*", Name: "All Languages"}},
	}
}

// HealthCheck 总是健康
func (p *Provider) HealthCheck(context.Context) error {
	return nil
}
