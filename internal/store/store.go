package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
)

// New 根据配置创建任务存储
func New(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (TaskStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Backend {
	case config.BackendMemory, "":
		return NewMemoryStore(), nil
	case config.BackendRedis:
		s, err := NewRedisStoreFromURL(cfg.RedisURL, WithRedisLogger(logger))
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.BackendFirestore:
		s, err := NewFirestoreStore(ctx, cfg.ProjectID, FirestoreCredentials{
			File:   cfg.CredentialsFile,
			Base64: cfg.CredentialsBase64,
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
