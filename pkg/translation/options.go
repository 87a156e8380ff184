package translation

import (
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

// Option 服务配置选项函数
type Option func(*serviceOptions)

// serviceOptions 服务内部选项
type serviceOptions struct {
	provider providers.TranslationProvider
	cache    Cache
	chunker  Chunker
	logger   *zap.Logger
}

// WithProvider 设置翻译提供商
func WithProvider(provider providers.TranslationProvider) Option {
	return func(o *serviceOptions) {
		o.provider = provider
	}
}

// WithCache 设置缓存
func WithCache(cache Cache) Option {
	return func(o *serviceOptions) {
		o.cache = cache
	}
}

// WithChunker 设置文本分块器
func WithChunker(chunker Chunker) Option {
	return func(o *serviceOptions) {
		o.chunker = chunker
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}
