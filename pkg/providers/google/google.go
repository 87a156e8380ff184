package google

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/retry"
)

const defaultEndpoint = "https://translation.googleapis.com/language/translate/v2"

// Config Google Cloud Translation v2 配置
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

// Provider Google Translate提供商
type Provider struct {
	config  Config
	client  *http.Client
	retrier *retry.NetworkRetrier
}

// New 创建新的Google Translate提供商
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
		return fmt.Errorf("invalid config type: expected google.Config")
	}
	*p = *New(cfg)
	return nil
}

// Translate 执行翻译
func (p *Provider) Translate(ctx context.Context, req *providers.ProviderRequest) (*providers.ProviderResponse, error) {
	params := url.Values{}
	params.Set("key", p.config.APIKey)
	params.Set("q", req.Text)
	params.Set("target", normalizeLanguageCode(req.TargetLanguage))
	params.Set("format", "text")
	if req.SourceLanguage != "" {
		params.Set("source", normalizeLanguageCode(req.SourceLanguage))
	}
	body := params.Encode()

	resp, err := p.retrier.ExecuteWithRetry(ctx, func(ctx context.Context) (*http.Response, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.APIEndpoint, strings.NewReader(body))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		for k, v := range p.config.Headers {
			httpReq.Header.Set(k, v)
		}
		return p.client.Do(httpReq)
	})
	if err != nil {
		return nil, providers.WrapTransportError(p.GetName(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		var apiErr APIError
		msg := resp.Status
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		return nil, providers.HTTPError(p.GetName(), resp.StatusCode, msg)
	}

	var translateResp TranslateResponse
	if err := json.NewDecoder(resp.Body).Decode(&translateResp); err != nil {
		return nil, fmt.Errorf("google: failed to decode response: %w", err)
	}
	if len(translateResp.Data.Translations) == 0 {
		return nil, providers.NewError(providers.ErrCodeUnknown, "google: no translation returned")
	}

	first := translateResp.Data.Translations[0]
	return &providers.ProviderResponse{
		// v2 接口返回 HTML 实体
		Text:       html.UnescapeString(first.TranslatedText),
		SourceLang: first.DetectedSourceLanguage,
		TargetLang: req.TargetLanguage,
		Model:      "google-translate-v2",
	}, nil
}

// GetName 获取提供商名称
func (p *Provider) GetName() string {
	return "google"
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
			{Code: "zh-CN", Name: "Chinese (Simplified)"},
			{Code: "zh-TW", Name: "Chinese (Traditional)"},
		},
		MaxTextLength:  30000,
		RequiresAPIKey: true,
		RateLimit: &providers.RateLimit{
			RequestsPerMinute: 600,
		},
	}
}

// HealthCheck 健康检查
func (p *Provider) HealthCheck(ctx context.Context) error {
	_, err := p.Translate(ctx, &providers.ProviderRequest{
		Text:           "Hello",
		SourceLanguage: "en",
		TargetLanguage: "es",
	})
	return err
}

// normalizeLanguageCode 标准化语言代码，zh-cn -> zh-CN
func normalizeLanguageCode(lang string) string {
	lang = strings.ReplaceAll(strings.TrimSpace(lang), "_", "-")
	if base, region, ok := strings.Cut(lang, "-"); ok {
		return strings.ToLower(base) + "-" + strings.ToUpper(region)
	}
	return strings.ToLower(lang)
}

// TranslateResponse 翻译响应
type TranslateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText         string `json:"translatedText"`
			DetectedSourceLanguage string `json:"detectedSourceLanguage,omitempty"`
		} `json:"translations"`
	} `json:"data"`
}

// APIError API错误
type APIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
