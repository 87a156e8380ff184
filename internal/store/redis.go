package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	goretry "github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultKeyPrefix = "pdf-translator"
	maxTxAttempts    = 5
)

// RedisStore 以 JSON 文档形式把任务记录保存在 Redis 中
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	owned  bool
	logger *zap.Logger
	now    func() time.Time
}

var _ TaskStore = (*RedisStore)(nil)

// RedisOption Redis 存储选项
type RedisOption func(*RedisStore)

// WithKeyPrefix 设置键前缀
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisLogger 设置日志记录器
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// NewRedisStore 使用已有客户端创建存储，Close 不会关闭该客户端
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: defaultKeyPrefix,
		logger: zap.NewNop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewRedisStoreFromURL 根据 redis:// URL 创建存储
func NewRedisStoreFromURL(url string, opts ...RedisOption) (*RedisStore, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	s := NewRedisStore(redis.NewClient(options), opts...)
	s.owned = true
	return s, nil
}

func (s *RedisStore) key(ref TaskRef) string {
	return s.prefix + ":" + ref.Path()
}

func (s *RedisStore) Create(ctx context.Context, ref TaskRef, task *Task) error {
	if err := ref.Validate(); err != nil {
		return err
	}

	stored := task.Clone()
	stored.ID = ref.TaskID
	stored.UserID = ref.UserID
	if stored.Timestamp.IsZero() {
		stored.Timestamp = s.now()
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	created, err := s.client.SetNX(ctx, s.key(ref), data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	if !created {
		return ErrTaskExists
	}
	return nil
}

// Update 使用 WATCH/MULTI 乐观锁合并字段，冲突时重试
func (s *RedisStore) Update(ctx context.Context, ref TaskRef, fields Fields) error {
	key := s.key(ref)

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrTaskNotFound
		}
		if err != nil {
			return err
		}

		var task Task
		if err := json.Unmarshal(data, &task); err != nil {
			return fmt.Errorf("failed to decode task: %w", err)
		}
		if err := applyFields(&task, fields, s.now()); err != nil {
			return err
		}
		updated, err := json.Marshal(&task)
		if err != nil {
			return fmt.Errorf("failed to encode task: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		return err
	}

	backoff := goretry.WithMaxRetries(maxTxAttempts-1, goretry.NewExponential(5*time.Millisecond))
	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("task update conflict, retrying", zap.String("key", key))
			return goretry.RetryableError(err)
		}
		return err
	})
}

func (s *RedisStore) Get(ctx context.Context, ref TaskRef) (*Task, error) {
	data, err := s.client.Get(ctx, s.key(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %w", err)
	}

	var task Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return &task, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.client.Close()
}
