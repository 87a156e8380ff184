package deepl

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/retry"
)

const (
	proEndpoint  = "https://api.deepl.com/v2"
	freeEndpoint = "https://api-free.deepl.com/v2"
)

// Config DeepL配置
type Config struct {
	providers.BaseConfig
	UseFreeAPI bool `json:"use_free_api"` // 是否使用免费API
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	config := Config{
		BaseConfig: providers.DefaultConfig(),
	}
	config.APIEndpoint = proEndpoint
	return config
}

// Provider DeepL提供商
type Provider struct {
	config  Config
	client  *http.Client
	retrier *retry.NetworkRetrier
}

// 确保 Provider 实现 providers.Provider 接口
var _ providers.Provider = (*Provider)(nil)

// New 创建新的DeepL提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = proEndpoint
		if config.UseFreeAPI || strings.HasSuffix(config.APIKey, ":fx") {
			config.APIEndpoint = freeEndpoint
		}
	}
	config.APIEndpoint = strings.TrimRight(config.APIEndpoint, "/")

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
		return fmt.Errorf("invalid config type: expected deepl.Config")
	}
	*p = *New(cfg)
	return nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	params.Set("text", req.Text)
	params.Set("target_lang", normalizeLanguageCode(req.TargetLanguage, false))
	if req.SourceLanguage != "" {
		params.Set("source_lang", normalizeLanguageCode(req.SourceLanguage, true))
	}
	if formality, ok := req.Metadata["formality"].(string); ok {
		params.Set("formality", formality)
	}

	resp, err := p.do(ctx, http.MethodPost, "/translate", params.Encode())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("deepl: failed to decode response: %w", err)
	}
	if len(result.Translations) == 0 {
		return nil, providers.NewError(providers.ErrCodeUnknown, "deepl: no translation returned")
	}

	return &providers.ProviderResponse{
		Text:       result.Translations[0].Text,
		SourceLang: result.Translations[0].DetectedSourceLanguage,
		TargetLang: req.TargetLanguage,
		Model:      "deepl",
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "deepl"
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
			{Code: "EN-GB", Name: "English (British)"},
			{Code: "EN-US", Name: "English (American)"},
			{Code: "ES", Name: "Spanish"},
			{Code: "FR", Name: "French"},
			{Code: "IT", Name: "Italian"},
			{Code: "JA", Name: "Japanese"},
			{Code: "KO", Name: "Korean"},
			{Code: "PT-BR", Name: "Portuguese (Brazilian)"},
			{Code: "RU", Name: "Russian"},
			{Code: "TR", Name: "Turkish"},
			{Code: "ZH", Name: "Chinese"},
		},
		MaxTextLength:  130000,
		RequiresAPIKey: true,
		RateLimit: &providers.RateLimit{
			CharactersPerDay: 500000,
		},
	}
}

// HealthCheck 查询用量接口
func (p *Provider) HealthCheck(ctx context.Context) error {
	resp, err := p.do(ctx, http.MethodGet, "/usage", "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// do 发送请求，非 2xx 响应转换为提供商错误
func (p *Provider) do(ctx context.Context, method, path, body string) (*http.Response, error) {
	resp, err := p.retrier.ExecuteWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, method, p.config.APIEndpoint+path, reader)
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", "DeepL-Auth-Key "+p.config.APIKey)
		if body != "" {
			httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
		for k, v := range p.config.Headers {
			httpReq.Header.Set(k, v)
		}
		return p.client.Do(httpReq)
	})
	if err != nil {
		return nil, providers.WrapTransportError(p.GetName(), err)
	}

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		var apiErr struct {
			Message string `json:"message"`
		}
		data, _ := io.ReadAll(resp.Body)
		msg := resp.Status
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return nil, providers.HTTPError(p.GetName(), resp.StatusCode, msg)
	}
	return resp, nil
}

// normalizeLanguageCode DeepL 使用大写代码，源语言不带地区
func normalizeLanguageCode(lang string, isSource bool) string {
	code := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if isSource {
		code, _, _ = strings.Cut(code, "-")
		return code
	}

	switch code {
	case "EN":
		return "EN-US"
	case "PT":
		return "PT-BR"
	case "ZH-CN", "ZH-TW":
		return "ZH"
	}
	return code
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}
