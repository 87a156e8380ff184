package translation

import (
	"fmt"
	"time"
)

// DefaultChunkDelay 相邻两次翻译调用之间的间隔
const DefaultChunkDelay = 500 * time.Millisecond

// Config 翻译服务配置，不依赖外部配置框架
type Config struct {
	// 语言配置，SourceLanguage 为 "auto" 或空表示自动检测
	SourceLanguage string `json:"source_language"`
	TargetLanguage string `json:"target_language"`

	// 分块配置
	MaxChunkSize int `json:"max_chunk_size"`

	// ChunkDelay 调用节奏控制，0 表示不限速
	ChunkDelay time.Duration `json:"chunk_delay"`

	// 缓存配置
	EnableCache bool   `json:"enable_cache"`
	CacheDir    string `json:"cache_dir"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		SourceLanguage: "auto",
		MaxChunkSize:   DefaultMaxChunkSize,
		ChunkDelay:     DefaultChunkDelay,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("%w: max chunk size must be positive, got %d", ErrInvalidChunkSize, c.MaxChunkSize)
	}
	if _, err := NewPageChunker(c.MaxChunkSize); err != nil {
		return err
	}
	if c.ChunkDelay < 0 {
		return fmt.Errorf("%w: chunk delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Clone 克隆配置
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
