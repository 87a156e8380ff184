package providers

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// ErrProviderNotFound 未注册的提供商
var ErrProviderNotFound = errors.New("provider not found")

// Settings 构造提供商所需的通用参数
type Settings struct {
	BaseConfig

	// LLM 提供商参数
	Model       string
	Temperature float64
	MaxTokens   int

	// DeepL 免费接口
	UseFreeAPI bool
}

// NewSettings 返回带默认值的参数
func NewSettings() Settings {
	return Settings{BaseConfig: DefaultConfig()}
}

// WithTimeout 覆盖超时时间
func (s Settings) WithTimeout(d time.Duration) Settings {
	if d > 0 {
		s.Timeout = d
	}
	return s
}

// Constructor 提供商构造函数
type Constructor func(settings Settings) (Provider, error)

// Registry 提供商注册表
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry 创建新的注册表
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
	}
}

// Register 注册提供商
func (r *Registry) Register(name string, ctor Constructor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[name]; exists {
		return fmt.Errorf("provider %s already registered", name)
	}

	r.constructors[name] = ctor
	return nil
}

// Create 根据名称创建提供商
func (r *Registry) Create(name string, settings Settings) (Provider, error) {
	r.mu.RLock()
	ctor, exists := r.constructors[name]
	r.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return ctor(settings)
}

// Has 是否已注册
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.constructors[name]
	return exists
}

// List 列出所有提供商（已排序）
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
