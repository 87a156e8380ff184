package translation

import (
	"context"
)

// Service 高层翻译服务接口
type Service interface {
	// Chunk 对规范化文本分块
	Chunk(text string) []string

	// TranslateChunks 按顺序逐块翻译。失败时返回已完成的前缀译文和带块索引的错误
	TranslateChunks(ctx context.Context, chunks []string, targetLanguage string, progress ProgressFunc) ([]string, error)

	// TranslateChunk 翻译单个块，用于失败块的重试
	TranslateChunk(ctx context.Context, index int, chunk, targetLanguage string) (string, error)

	// TranslateText 分块、翻译并以段落分隔拼接
	TranslateText(ctx context.Context, text, targetLanguage string) (string, error)

	// GetConfig 获取当前配置
	GetConfig() *Config
}

// Chunker 文本分块器接口
type Chunker interface {
	// Chunk 将规范化文本切分为有序的非空块
	Chunk(text string) []string

	// MaxSize 块大小上限
	MaxSize() int
}
