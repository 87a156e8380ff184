package translation

import (
	"crypto/md5"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Cache 翻译结果缓存接口
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string) error
	Delete(key string) error
	Clear() error
	Stats() CacheStats
}

// CacheStats 缓存统计
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int64 `json:"size"`
}

// cacheEntry 缓存条目
type cacheEntry struct {
	Value     string        `json:"value"`
	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl,omitempty"`
}

func (e cacheEntry) expired() bool {
	return e.TTL > 0 && time.Since(e.Timestamp) > e.TTL
}

// MemoryCache 内存缓存实现
type MemoryCache struct {
	data  map[string]cacheEntry
	mutex sync.Mutex
	stats CacheStats
}

// NewMemoryCache 创建内存缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get 获取缓存
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.data[key]
	if !exists || entry.expired() {
		delete(c.data, key)
		c.stats.Misses++
		c.stats.Size = int64(len(c.data))
		return "", false
	}

	c.stats.Hits++
	return entry.Value, true
}

// Set 设置缓存
func (c *MemoryCache) Set(key string, value string) error {
	return c.SetWithTTL(key, value, 0)
}

// SetWithTTL 设置带过期时间的缓存
func (c *MemoryCache) SetWithTTL(key string, value string, ttl time.Duration) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheEntry{
		Value:     value,
		Timestamp: time.Now(),
		TTL:       ttl,
	}
	c.stats.Size = int64(len(c.data))
	return nil
}

// Delete 删除缓存
func (c *MemoryCache) Delete(key string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
	c.stats.Size = int64(len(c.data))
	return nil
}

// Clear 清除所有缓存
func (c *MemoryCache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data = make(map[string]cacheEntry)
	c.stats = CacheStats{}
	return nil
}

// Stats 获取缓存统计信息
func (c *MemoryCache) Stats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.stats
}

// FileCache 文件缓存，内存作为一级缓存
type FileCache struct {
	basePath string
	memory   *MemoryCache
	mutex    sync.Mutex
	stats    CacheStats
}

// NewFileCache 创建文件缓存
func NewFileCache(basePath string) (*FileCache, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create cache dir: %w", ErrInvalidConfig, err)
	}

	return &FileCache{
		basePath: basePath,
		memory:   NewMemoryCache(),
	}, nil
}

func (c *FileCache) path(key string) string {
	return filepath.Join(c.basePath, fmt.Sprintf("%x.cache", md5.Sum([]byte(key))))
}

// Get 获取缓存
func (c *FileCache) Get(key string) (string, bool) {
	if value, ok := c.memory.Get(key); ok {
		return value, true
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		c.stats.Misses++
		return "", false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil || entry.expired() {
		_ = os.Remove(c.path(key))
		c.stats.Misses++
		return "", false
	}

	_ = c.memory.SetWithTTL(key, entry.Value, entry.TTL)
	c.stats.Hits++
	return entry.Value, true
}

// Set 设置缓存
func (c *FileCache) Set(key string, value string) error {
	if err := c.memory.Set(key, value); err != nil {
		return err
	}

	data, err := json.Marshal(cacheEntry{Value: value, Timestamp: time.Now()})
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.WriteFile(c.path(key), data, 0o644); err != nil {
		return fmt.Errorf("%s: %w", ErrCodeCache, err)
	}
	c.stats.Size++
	return nil
}

// Delete 删除缓存
func (c *FileCache) Delete(key string) error {
	_ = c.memory.Delete(key)

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if err := os.Remove(c.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	if c.stats.Size > 0 {
		c.stats.Size--
	}
	return nil
}

// Clear 清除所有缓存
func (c *FileCache) Clear() error {
	_ = c.memory.Clear()

	files, err := filepath.Glob(filepath.Join(c.basePath, "*.cache"))
	if err != nil {
		return err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	for _, file := range files {
		_ = os.Remove(file)
	}
	c.stats = CacheStats{}
	return nil
}

// Stats 获取缓存统计信息，命中数包含内存层
func (c *FileCache) Stats() CacheStats {
	memStats := c.memory.Stats()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	return CacheStats{
		Hits:   c.stats.Hits + memStats.Hits,
		Misses: c.stats.Misses,
		Size:   c.stats.Size,
	}
}

// CacheKeyComponents 缓存key组件
type CacheKeyComponents struct {
	Provider   string // 提供商名称
	SourceLang string // 源语言
	TargetLang string // 目标语言
	Text       string // 待翻译文本
}

// GenerateCacheKey 生成缓存key
func GenerateCacheKey(components CacheKeyComponents) string {
	keyData := fmt.Sprintf("provider:%s|src:%s|tgt:%s|text:%s",
		components.Provider,
		components.SourceLang,
		components.TargetLang,
		components.Text,
	)
	return fmt.Sprintf("%x", md5.Sum([]byte(keyData)))
}

// NewCache 根据配置创建缓存实例，未启用时返回 nil
func NewCache(useCache bool, cacheDir string) (Cache, error) {
	if !useCache {
		return nil, nil
	}

	if cacheDir != "" {
		fc, err := NewFileCache(cacheDir)
		if err != nil {
			return nil, err
		}
		return fc, nil
	}

	return NewMemoryCache(), nil
}
