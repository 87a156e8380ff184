package factory

import (
	"fmt"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/deepl"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/deeplx"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/google"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/libretranslate"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/openai"
	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers/raw"
)

// ProviderFactory 提供商工厂
type ProviderFactory struct {
	registry *providers.Registry
}

// New 创建新的提供商工厂，并注册内置提供商
func New() *ProviderFactory {
	f := &ProviderFactory{
		registry: providers.NewRegistry(),
	}

	builtins := map[string]providers.Constructor{
		"openai":         newOpenAI,
		"deepl":          newDeepL,
		"deeplx":         newDeepLX,
		"google":         newGoogle,
		"libretranslate": newLibreTranslate,
		"raw":            newRaw,
		"none":           newRaw,
	}
	for name, ctor := range builtins {
		// 内置名称不会重复
		_ = f.registry.Register(name, ctor)
	}
	return f
}

// Registry 返回底层注册表，可用于注册自定义提供商
func (f *ProviderFactory) Registry() *providers.Registry {
	return f.registry
}

// CreateProvider 根据配置创建提供商
func (f *ProviderFactory) CreateProvider(providerType string, pc config.ProviderConfig) (providers.Provider, error) {
	provider, err := f.registry.Create(providerType, toSettings(pc))
	if err != nil {
		return nil, fmt.Errorf("unsupported provider type: %w", err)
	}
	return provider, nil
}

// GetSupportedProviders 获取支持的提供商列表
func (f *ProviderFactory) GetSupportedProviders() []string {
	return f.registry.List()
}

// IsLLMProvider 判断是否是 LLM 提供商
func IsLLMProvider(providerType string) bool {
	switch providerType {
	case "openai":
		return true
	default:
		return false
	}
}

func toSettings(pc config.ProviderConfig) providers.Settings {
	s := providers.NewSettings().WithTimeout(pc.Timeout)
	s.APIKey = pc.APIKey
	s.APIEndpoint = pc.BaseURL
	// 0 沿用默认值，负数关闭重试
	switch {
	case pc.MaxRetries > 0:
		s.MaxRetries = pc.MaxRetries
	case pc.MaxRetries < 0:
		s.MaxRetries = 0
	}
	s.Model = pc.Model
	s.Temperature = pc.Temperature
	s.MaxTokens = pc.MaxTokens
	s.UseFreeAPI = pc.UseFreeAPI
	return s
}

func newOpenAI(s providers.Settings) (providers.Provider, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("openai: api key is required")
	}
	cfg := openai.DefaultConfig()
	cfg.BaseConfig = s.BaseConfig
	if s.Model != "" {
		cfg.Model = s.Model
	}
	if s.Temperature > 0 {
		cfg.Temperature = s.Temperature
	}
	if s.MaxTokens > 0 {
		cfg.MaxTokens = s.MaxTokens
	}
	return openai.New(cfg), nil
}

func newDeepL(s providers.Settings) (providers.Provider, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("deepl: api key is required")
	}
	cfg := deepl.DefaultConfig()
	cfg.BaseConfig = s.BaseConfig
	cfg.UseFreeAPI = s.UseFreeAPI
	return deepl.New(cfg), nil
}

func newDeepLX(s providers.Settings) (providers.Provider, error) {
	cfg := deeplx.DefaultConfig()
	cfg.BaseConfig = s.BaseConfig
	return deeplx.New(cfg), nil
}

func newGoogle(s providers.Settings) (providers.Provider, error) {
	if s.APIKey == "" {
		return nil, fmt.Errorf("google: api key is required")
	}
	cfg := google.DefaultConfig()
	cfg.BaseConfig = s.BaseConfig
	return google.New(cfg), nil
}

func newLibreTranslate(s providers.Settings) (providers.Provider, error) {
	cfg := libretranslate.DefaultConfig()
	cfg.BaseConfig = s.BaseConfig
	return libretranslate.New(cfg), nil
}

func newRaw(providers.Settings) (providers.Provider, error) {
	return raw.New(), nil
}

// DefaultFactory 全局工厂实例
var DefaultFactory = New()

// CreateProvider 使用默认工厂创建提供商
func CreateProvider(providerType string, pc config.ProviderConfig) (providers.Provider, error) {
	return DefaultFactory.CreateProvider(providerType, pc)
}
