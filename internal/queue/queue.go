package queue

import (
	"fmt"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
)

// New 根据配置创建队列
func New(cfg config.QueueConfig) (Queue, error) {
	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryQueue(cfg.BufferSize), nil
	case config.BackendRedis:
		q, err := NewRedisQueueFromURL(cfg.RedisURL, cfg.Name)
		if err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}
