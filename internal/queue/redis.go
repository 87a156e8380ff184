package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

const pollInterval = time.Second

// RedisQueue 基于 LPUSH/BRPOP 的 Redis 列表队列
type RedisQueue struct {
	client redis.UniversalClient
	name   string
	owned  bool
	closed atomic.Bool
}

var _ Queue = (*RedisQueue)(nil)

// NewRedisQueue 使用已有客户端创建队列
func NewRedisQueue(client redis.UniversalClient, name string) *RedisQueue {
	return &RedisQueue{client: client, name: name}
}

// NewRedisQueueFromURL 根据 redis:// URL 创建队列
func NewRedisQueueFromURL(url, name string) (*RedisQueue, error) {
	options, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	q := NewRedisQueue(redis.NewClient(options), name)
	q.owned = true
	return q, nil
}

func (q *RedisQueue) Enqueue(ctx context.Context, job *Job) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}
	if err := q.client.LPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job: %w", err)
	}
	return nil
}

// Dequeue 以固定间隔轮询 BRPOP，便于及时响应 ctx 取消和关闭
func (q *RedisQueue) Dequeue(ctx context.Context) (*Job, error) {
	for {
		if q.closed.Load() {
			return nil, ErrQueueClosed
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := q.client.BRPop(ctx, pollInterval, q.name).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to dequeue job: %w", err)
		}

		// res = [key, value]
		var job Job
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return nil, fmt.Errorf("failed to decode job: %w", err)
		}
		return &job, nil
	}
}

// Len 当前排队的作业数
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.name).Result()
}

func (q *RedisQueue) Close() error {
	if q.closed.Swap(true) || !q.owned {
		return nil
	}
	return q.client.Close()
}
