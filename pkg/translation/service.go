package translation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/nerdneilsfield/go-pdf-translator/pkg/providers"
)

// service 翻译服务实现
type service struct {
	config  *Config
	options serviceOptions
	pacer   *rate.Limiter
}

// New 创建新的翻译服务
func New(config *Config, opts ...Option) (Service, error) {
	if config == nil {
		return nil, WrapError(ErrInvalidConfig, ErrCodeConfig, "config is nil")
	}

	if err := config.Validate(); err != nil {
		return nil, WrapError(err, ErrCodeConfig, "invalid configuration")
	}

	options := serviceOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.provider == nil {
		return nil, ErrNoProvider
	}
	if options.logger == nil {
		options.logger = zap.NewNop()
	}
	if options.chunker == nil {
		chunker, err := NewPageChunker(config.MaxChunkSize)
		if err != nil {
			return nil, err
		}
		options.chunker = chunker
	}

	// 突发为1：第一次调用立即执行，之后每次间隔 ChunkDelay
	limit := rate.Inf
	if config.ChunkDelay > 0 {
		limit = rate.Every(config.ChunkDelay)
	}

	return &service{
		config:  config.Clone(),
		options: options,
		pacer:   rate.NewLimiter(limit, 1),
	}, nil
}

// GetConfig 获取当前配置
func (s *service) GetConfig() *Config {
	return s.config.Clone()
}

// Chunk 对规范化文本分块
func (s *service) Chunk(text string) []string {
	return s.options.chunker.Chunk(text)
}

// TranslateChunks 按顺序逐块翻译
func (s *service) TranslateChunks(ctx context.Context, chunks []string, targetLanguage string, progress ProgressFunc) ([]string, error) {
	translated := make([]string, 0, len(chunks))

	for i, chunk := range chunks {
		start := time.Now()
		text, cached, err := s.translate(ctx, i, chunk, targetLanguage)
		if err != nil {
			s.options.logger.Error("chunk translation failed",
				zap.Int("chunk", i+1),
				zap.Int("total", len(chunks)),
				zap.Error(err))
			return translated, err
		}
		translated = append(translated, text)

		s.options.logger.Debug("chunk translated",
			zap.Int("chunk", i+1),
			zap.Int("total", len(chunks)),
			zap.Bool("cached", cached),
			zap.Duration("elapsed", time.Since(start)))

		if progress != nil {
			p := Progress{
				Index:      i,
				Total:      len(chunks),
				Translated: text,
				Cached:     cached,
				Elapsed:    time.Since(start),
			}
			if err := progress(ctx, p); err != nil {
				return translated, err
			}
		}
	}

	return translated, nil
}

// TranslateChunk 翻译单个块
func (s *service) TranslateChunk(ctx context.Context, index int, chunk, targetLanguage string) (string, error) {
	if index < 0 {
		return "", NewChunkError(index, ErrChunkIndex)
	}
	text, _, err := s.translate(ctx, index, chunk, targetLanguage)
	return text, err
}

// TranslateText 分块、翻译并拼接
func (s *service) TranslateText(ctx context.Context, text, targetLanguage string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	translated, err := s.TranslateChunks(ctx, s.Chunk(text), targetLanguage, nil)
	if err != nil {
		return "", err
	}
	return strings.Join(translated, "\n\n"), nil
}

// translate 调用提供商翻译一个块，返回是否命中缓存
func (s *service) translate(ctx context.Context, index int, chunk, targetLanguage string) (string, bool, error) {
	if targetLanguage == "" {
		targetLanguage = s.config.TargetLanguage
	}
	if targetLanguage == "" {
		return "", false, NewChunkError(index, fmt.Errorf("%w: target language is required", ErrInvalidConfig))
	}

	sourceLanguage := s.config.SourceLanguage
	if sourceLanguage == "auto" {
		sourceLanguage = ""
	}

	var key string
	if s.options.cache != nil {
		key = GenerateCacheKey(CacheKeyComponents{
			Provider:   s.options.provider.GetName(),
			SourceLang: sourceLanguage,
			TargetLang: targetLanguage,
			Text:       chunk,
		})
		if value, ok := s.options.cache.Get(key); ok {
			return value, true, nil
		}
	}

	if err := s.pacer.Wait(ctx); err != nil {
		return "", false, NewChunkError(index, err)
	}

	resp, err := s.options.provider.Translate(ctx, &providers.ProviderRequest{
		Text:           chunk,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		Metadata: map[string]interface{}{
			"chunk_index": index,
		},
	})
	if err != nil {
		return "", false, NewChunkError(index, err)
	}
	if resp == nil {
		return "", false, NewChunkError(index, fmt.Errorf("%s: empty response", s.options.provider.GetName()))
	}

	if s.options.cache != nil {
		if err := s.options.cache.Set(key, resp.Text); err != nil {
			s.options.logger.Warn("failed to write translation cache", zap.Error(err))
		}
	}

	return resp.Text, false, nil
}
