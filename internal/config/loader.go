package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/translation"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "PDFT"

// 兼容旧部署使用的环境变量名
var legacyEnv = map[string][]string{
	"app_id":                        {"CANVAS_APP_ID"},
	"store.redis_url":               {"REDIS_BROKER_URL"},
	"queue.redis_url":               {"REDIS_BROKER_URL"},
	"store.project_id":              {"FIRESTORE_PROJECT_ID"},
	"store.credentials_base64":      {"FIREBASE_SERVICE_ACCOUNT_KEY_BASE64"},
	"store.credentials_file":        {"GOOGLE_APPLICATION_CREDENTIALS"},
	"providers.google.api_key":      {"GOOGLE_TRANSLATE_API_KEY"},
	"providers.deepl.api_key":       {"DEEPL_API_KEY"},
	"providers.openai.api_key":      {"OPENAI_API_KEY"},
	"providers.openai.base_url":     {"OPENAI_BASE_URL"},
	"providers.libretranslate.api_key": {"LIBRETRANSLATE_API_KEY"},
}

// knownProviders 预置配置段的提供商，保证环境变量可以覆盖
var knownProviders = []string{"google", "deepl", "deeplx", "libretranslate", "openai", "raw"}

// LoadDotEnv 加载 .env 文件，已存在的环境变量不会被覆盖
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// LoadConfig 从文件、环境变量和默认值加载配置
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.SetConfigName(".pdf-translator")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		envs := append([]string{EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// 找不到配置文件时使用默认值
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if config.Translation.CacheDir == "" && config.Translation.UseCache {
		config.Translation.CacheDir = defaultCacheDir()
	}

	return &config, nil
}

// NewDefaultConfig 返回只包含默认值的配置
func NewDefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_id", "default-app-id")
	v.SetDefault("debug", false)
	v.SetDefault("verbose", false)

	v.SetDefault("server.addr", ":5000")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.max_body_bytes", int64(64<<20))
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", "30-M")

	v.SetDefault("translation.provider", "google")
	v.SetDefault("translation.source_language", "auto")
	v.SetDefault("translation.max_chunk_size", translation.DefaultMaxChunkSize)
	v.SetDefault("translation.chunk_delay", translation.DefaultChunkDelay)
	v.SetDefault("translation.use_cache", false)
	v.SetDefault("translation.cache_dir", "")

	for _, name := range knownProviders {
		prefix := "providers." + name + "."
		v.SetDefault(prefix+"api_key", "")
		v.SetDefault(prefix+"base_url", "")
		v.SetDefault(prefix+"timeout", 60*time.Second)
		v.SetDefault(prefix+"max_retries", 3)
	}
	v.SetDefault("providers.openai.model", "gpt-4o-mini")
	v.SetDefault("providers.openai.temperature", 0.3)
	v.SetDefault("providers.openai.max_tokens", 4096)
	v.SetDefault("providers.deepl.use_free_api", false)

	v.SetDefault("normalizer.preserve_paragraphs", false)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.redis_url", "")
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.credentials_file", "")
	v.SetDefault("store.credentials_base64", "")

	v.SetDefault("queue.backend", BackendMemory)
	v.SetDefault("queue.redis_url", "")
	v.SetDefault("queue.name", "pdf-translator:jobs")
	v.SetDefault("queue.workers", 2)
	v.SetDefault("queue.buffer_size", 64)

	v.SetDefault("render.fonts_dir", "fonts")
	v.SetDefault("render.page_label", "Page")
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "pdf-translator")
	}
	return filepath.Join(os.TempDir(), "pdf-translator-cache")
}
