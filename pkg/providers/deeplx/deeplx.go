package deeplx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/retry"
)

const defaultEndpoint = "http://localhost:1188/translate"

// Config DeepLX配置
type Config struct {
	providers.BaseConfig
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = defaultEndpoint
	return config
}

// Provider DeepLX 自托管代理提供商
type Provider struct {
	config  Config
	client  *http.Client
	retrier *retry.NetworkRetrier
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的DeepLX提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}
	return &Provider{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		retrier: config.NewRetrier(),
	}
}

// Configure 配置提供商
func (p *Provider) Configure(config interface{}) error {
	cfg, ok := config.(Config)
	if !ok {
		return fmt.Errorf("invalid config type: expected deeplx.Config")
	}
	*p = *New(cfg)
	return nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	source := normalizeLanguageCode(req.SourceLanguage)
	if source == "" {
		source = "auto"
	}

	payload, err := json.Marshal(TranslateRequest{
		Text:       req.Text,
		SourceLang: source,
		TargetLang: normalizeLanguageCode(req.TargetLanguage),
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.retrier.ExecuteWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIEndpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if p.config.APIKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
		}
		return p.client.Do(httpReq)
	})
	if err != nil {
		return nil, providers.WrapTransportError(p.GetName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, providers.HTTPError(p.GetName(), resp.StatusCode, resp.Status)
	}

	var result TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("deeplx: failed to decode response: %w", err)
	}
	if result.Code != http.StatusOK {
		return nil, providers.HTTPError(p.GetName(), result.Code, result.Message)
	}

	return &providers.ProviderResponse{
		Text:       result.Data,
		SourceLang: result.SourceLang,
		TargetLang: req.TargetLanguage,
		Model:      "deeplx",
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deeplx"
}

// SupportsSteps 不支持多步骤翻译
func (p *Provider) SupportsSteps() bool {
	return false
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			{Code: "DE", Name: "German"},
			{Code: "EN", Name: "English"},
			{Code: "ES", Name: "Spanish"},
			{Code: "FR", Name: "French"},
			{Code: "JA", Name: "Japanese"},
			{Code: "TR", Name: "Turkish"},
			{Code: "ZH", Name: "Chinese"},
		},
		MaxTextLength: 5000,
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{Text: "Hello", TargetLanguage: "de"})
	return err
}

func normalizeLanguageCode(lang string) string {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if code == "AUTO" {
		return ""
	}
	code, _, _ = strings.Cut(code, "-")
	return code
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Text       string `json:"text"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Code       int    `json:"code"`
	Message    string `json:"message,omitempty"`
	Data       string `json:"data"`
	SourceLang string `json:"source_lang,omitempty"`
}
