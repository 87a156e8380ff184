package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

// 存储与队列后端
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendFirestore = "firestore"
)

// ProviderConfig 单个翻译提供商的配置
type ProviderConfig struct {
	APIKey      string        `mapstructure:"api_key" toml:"api_key"`
	BaseURL     string        `mapstructure:"base_url" toml:"base_url"`
	Model       string        `mapstructure:"model" toml:"model"`
	Temperature float64       `mapstructure:"temperature" toml:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens" toml:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout" toml:"timeout"`
	MaxRetries  int           `mapstructure:"max_retries" toml:"max_retries"`
	UseFreeAPI  bool          `mapstructure:"use_free_api" toml:"use_free_api"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Addr            string        `mapstructure:"addr" toml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" toml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" toml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" toml:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" toml:"max_body_bytes"`
	CORSOrigins     []string      `mapstructure:"cors_origins" toml:"cors_origins"`

	// RateLimit ulule/limiter 格式，如 "30-M"，空表示不限流
	RateLimit string `mapstructure:"rate_limit" toml:"rate_limit"`
}

// TranslationConfig 翻译流程配置
type TranslationConfig struct {
	Provider       string        `mapstructure:"provider" toml:"provider"`
	SourceLanguage string        `mapstructure:"source_language" toml:"source_language"`
	MaxChunkSize   int           `mapstructure:"max_chunk_size" toml:"max_chunk_size"`
	ChunkDelay     time.Duration `mapstructure:"chunk_delay" toml:"chunk_delay"`
	UseCache       bool          `mapstructure:"use_cache" toml:"use_cache"`
	CacheDir       string        `mapstructure:"cache_dir" toml:"cache_dir"`
}

// NormalizerConfig 文本规范化配置
type NormalizerConfig struct {
	PreserveParagraphs bool `mapstructure:"preserve_paragraphs" toml:"preserve_paragraphs"`
}

// StoreConfig 任务记录存储配置
type StoreConfig struct {
	Backend           string `mapstructure:"backend" toml:"backend"`
	RedisURL          string `mapstructure:"redis_url" toml:"redis_url"`
	ProjectID         string `mapstructure:"project_id" toml:"project_id"`
	CredentialsFile   string `mapstructure:"credentials_file" toml:"credentials_file"`
	CredentialsBase64 string `mapstructure:"credentials_base64" toml:"credentials_base64"`
}

// QueueConfig 任务队列配置
type QueueConfig struct {
	Backend    string `mapstructure:"backend" toml:"backend"`
	RedisURL   string `mapstructure:"redis_url" toml:"redis_url"`
	Name       string `mapstructure:"name" toml:"name"`
	Workers    int    `mapstructure:"workers" toml:"workers"`
	BufferSize int    `mapstructure:"buffer_size" toml:"buffer_size"`
}

// RenderConfig PDF 生成配置
type RenderConfig struct {
	FontsDir  string `mapstructure:"fonts_dir" toml:"fonts_dir"`
	PageLabel string `mapstructure:"page_label" toml:"page_label"`
}

// Config 保存服务的所有配置
type Config struct {
	AppID   string `mapstructure:"app_id" toml:"app_id"`
	Debug   bool   `mapstructure:"debug" toml:"debug"`
	Verbose bool   `mapstructure:"verbose" toml:"verbose"`

	Server      ServerConfig              `mapstructure:"server" toml:"server"`
	Translation TranslationConfig         `mapstructure:"translation" toml:"translation"`
	Providers   map[string]ProviderConfig `mapstructure:"providers" toml:"providers"`
	Normalizer  NormalizerConfig          `mapstructure:"normalizer" toml:"normalizer"`
	Store       StoreConfig               `mapstructure:"store" toml:"store"`
	Queue       QueueConfig               `mapstructure:"queue" toml:"queue"`
	Render      RenderConfig              `mapstructure:"render" toml:"render"`
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("app_id must not be empty")
	}

	if _, err := translation.NewPageChunker(c.Translation.MaxChunkSize); err != nil {
		return fmt.Errorf("translation.max_chunk_size: %w", err)
	}
	if c.Translation.ChunkDelay < 0 {
		return fmt.Errorf("translation.chunk_delay must not be negative")
	}
	if c.Translation.Provider == "" {
		return fmt.Errorf("translation.provider must be specified")
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			return fmt.Errorf("store.redis_url is required for the redis backend")
		}
	case BackendFirestore:
		if c.Store.ProjectID == "" {
			return fmt.Errorf("store.project_id is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Queue.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Queue.RedisURL == "" {
			return fmt.Errorf("queue.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown queue backend %q", c.Queue.Backend)
	}

	if c.Queue.Workers <= 0 {
		return fmt.Errorf("queue.workers must be positive, got %d", c.Queue.Workers)
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	return nil
}

// Provider 获取指定提供商配置，不存在时返回零值
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

// TranslationServiceConfig 转换为翻译服务配置
func (c *Config) TranslationServiceConfig() *translation.Config {
	cfg := translation.DefaultConfig()
	cfg.SourceLanguage = c.Translation.SourceLanguage
	cfg.MaxChunkSize = c.Translation.MaxChunkSize
	cfg.ChunkDelay = c.Translation.ChunkDelay
	cfg.EnableCache = c.Translation.UseCache
	cfg.CacheDir = c.Translation.CacheDir
	return cfg
}

// Redacted 返回隐藏密钥后的副本
func (c *Config) Redacted() *Config {
	clone := *c
	clone.Providers = make(map[string]ProviderConfig, len(c.Providers))
	for name, pc := range c.Providers {
		pc.APIKey = mask(pc.APIKey)
		clone.Providers[name] = pc
	}
	clone.Store.CredentialsBase64 = mask(c.Store.CredentialsBase64)
	clone.Store.RedisURL = maskURL(c.Store.RedisURL)
	clone.Queue.RedisURL = maskURL(c.Queue.RedisURL)
	return &clone
}

// WriteTOML 以 TOML 格式输出（密钥已隐藏）
func (c *Config) WriteTOML(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c.Redacted())
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "****" + s[len(s)-2:]
}

// maskURL 隐藏 URL 中的密码
func maskURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	userinfo, host, ok := strings.Cut(rest, "@")
	if !ok {
		return raw
	}
	if user, _, hasPass := strings.Cut(userinfo, ":"); hasPass {
		return scheme + "://" + user + ":****@" + host
	}
	return raw
}
