package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

const systemPrompt = "You are a professional document translator. Translate the user's text accurately, " +
	"preserving meaning, tone and paragraph breaks. Reply with the translation only."

// Config OpenAI 兼容接口配置（使用官方SDK）
type Config struct {
	providers.BaseConfig
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		BaseConfig:  providers.DefaultConfig(),
		Model:       "gpt-4o-mini",
		Temperature: 0.3,
		MaxTokens:   4096,
	}
}

// Provider OpenAI提供商
type Provider struct {
	config Config
	client openai.Client
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的OpenAI提供商，APIEndpoint 可以指向任意兼容服务
func New(config Config) *Provider {
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(config.MaxRetries),
	}
	if config.APIEndpoint != "" {
		opts = append(opts, option.WithBaseURL(config.APIEndpoint))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(config.Timeout))
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &Provider{
		config: config,
		client: openai.NewClient(opts...),
	}
}

// Configure 配置提供商
func (p *Provider) Configure(config interface{}) error {
	cfg, ok := config.(Config)
	if !ok {
		return fmt.Errorf("invalid config type: expected openai.Config")
	}
	*p = *New(cfg)
	return nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(buildPrompt(req)),
		},
		Model: openai.ChatModel(p.config.Model),
	}
	if p.config.Temperature > 0 {
		params.Temperature = openai.Float(p.config.Temperature)
	}
	if p.config.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(p.config.MaxTokens))
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, p.wrapError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, providers.NewError(providers.ErrCodeUnknown, "openai: no choices returned")
	}

	return &providers.ProviderResponse{
		Text:       strings.TrimSpace(completion.Choices[0].Message.Content),
		SourceLang: req.SourceLanguage,
		TargetLang: req.TargetLanguage,
		Model:      completion.Model,
		TokensIn:   int(completion.Usage.PromptTokens),
		TokensOut:  int(completion.Usage.CompletionTokens),
		Metadata: map[string]interface{}{
			"finish_reason": string(completion.Choices[0].FinishReason),
			"id":            completion.ID,
		},
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "openai"
}

// SupportsSteps 支持多步骤翻译
func (p *Provider) SupportsSteps() bool {
	return true
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{{Code: "*", Name: "All Languages"}},
		MaxTextLength:      p.config.MaxTokens * 3,
		RequiresAPIKey:     true,
	}
}

// HealthCheck 列出模型
func (p *Provider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Models.Get(ctx, p.config.Model); err != nil {
		return p.wrapError(err)
	}
	return nil
}

func (p *Provider) wrapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return providers.HTTPError(p.GetName(), apiErr.StatusCode, apiErr.Error())
	}
	return providers.WrapTransportError(p.GetName(), err)
}

// buildPrompt 构造用户消息
func buildPrompt(req *providers.ProviderRequest) string {
	target := languageName(req.TargetLanguage)
	if req.SourceLanguage == "" {
		return fmt.Sprintf("Translate the following text to %s:\n\n%s", target, req.Text)
	}
	return fmt.Sprintf("Translate the following text from %s to %s:\n\n%s",
		languageName(req.SourceLanguage), target, req.Text)
}

// languageName 把语言代码转换为英文名称，如 "tr" -> "Turkish (tr)"
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	name := display.English.Tags().Name(tag)
	if name == "" {
		return code
	}
	return fmt.Sprintf("%s (%s)", name, code)
}
