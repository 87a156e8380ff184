package libretranslate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/retry"
)

const defaultEndpoint = "https://libretranslate.com"

// Config LibreTranslate配置
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

// Provider LibreTranslate提供商，可指向自建实例
type Provider struct {
	config  Config
	client  *http.Client
	retrier *retry.NetworkRetrier
}

var _ providers.Provider = (*Provider)(nil)

// New 创建新的LibreTranslate提供商
func New(config Config) *Provider {
	if config.APIEndpoint == "" {
		config.APIEndpoint = defaultEndpoint
	}
	config.APIEndpoint = strings.TrimSuffix(strings.TrimRight(config.APIEndpoint, "/"), "/translate")

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
		return fmt.Errorf("invalid config type: expected libretranslate.Config")
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
		Q:      req.Text,
		Source: source,
		Target: normalizeLanguageCode(req.TargetLanguage),
		Format: "text",
		APIKey: p.config.APIKey,
	})
	if err != nil {
		return nil, err
	}

	resp, err := p.retrier.ExecuteWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIEndpoint+"/translate", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		for k, v := range p.config.Headers {
			httpReq.Header.Set(k, v)
		}
		return p.client.Do(httpReq)
	})
	if err != nil {
		return nil, providers.WrapTransportError(p.GetName(), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, providers.WrapTransportError(p.GetName(), err)
	}

	var result TranslateResponse
	if err := json.Unmarshal(data, &result); err != nil {
		if resp.StatusCode >= 300 {
			return nil, providers.HTTPError(p.GetName(), resp.StatusCode, resp.Status)
		}
		return nil, fmt.Errorf("libretranslate: failed to decode response: %w", err)
	}
	if resp.StatusCode >= 300 || result.Error != "" {
		return nil, providers.HTTPError(p.GetName(), resp.StatusCode, result.Error)
	}

	out := &providers.ProviderResponse{
		Text:       result.TranslatedText,
		TargetLang: req.TargetLanguage,
		Model:      "libretranslate",
	}
	if result.DetectedLanguage != nil {
		out.SourceLang = result.DetectedLanguage.Language
	}
	return out, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "libretranslate"
}

// SupportsSteps 不支持多步骤翻译
func (p *Provider) SupportsSteps() bool {
	return false
}

// GetCapabilities 获取提供商能力
func (p *Provider) GetCapabilities() providers.Capabilities {
	return providers.Capabilities{
		SupportedLanguages: []providers.Language{
			{Code: "ar", Name: "Arabic"},
			{Code: "de", Name: "German"},
			{Code: "en", Name: "English"},
			{Code: "es", Name: "Spanish"},
			{Code: "fr", Name: "French"},
			{Code: "it", Name: "Italian"},
			{Code: "ja", Name: "Japanese"},
			{Code: "ko", Name: "Korean"},
			{Code: "pt", Name: "Portuguese"},
			{Code: "ru", Name: "Russian"},
			{Code: "tr", Name: "Turkish"},
			{Code: "zh", Name: "Chinese"},
		},
		MaxTextLength:  5000,
		RequiresAPIKey: false,
	}
}

// HealthCheck 获取语言列表
func (p *Provider) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.APIEndpoint+"/languages", nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return providers.WrapTransportError(p.GetName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return providers.HTTPError(p.GetName(), resp.StatusCode, resp.Status)
	}
	return nil
}

// normalizeLanguageCode LibreTranslate 只使用基础语言代码
func normalizeLanguageCode(lang string) string {
	lang = strings.ToLower(strings.ReplaceAll(strings.TrimSpace(lang), "_", "-"))
	if lang == "auto" {
		return ""
	}
	base, _, _ := strings.Cut(lang, "-")
	return base
}

// TranslateRequest 翻译请求
type TranslateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	TranslatedText   string `json:"translatedText"`
	Error            string `json:"error,omitempty"`
	DetectedLanguage *struct {
		Confidence float64 `json:"confidence"`
		Language   string  `json:"language"`
	} `json:"detectedLanguage,omitempty"`
}
