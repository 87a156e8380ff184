package server

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

const limiterPrefix = "pdf-translator:ratelimit"

// NewRedisLimiterStore 在多个服务实例之间共享限流计数
func NewRedisLimiterStore(client *redis.Client) (limiter.Store, error) {
	st, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{
		Prefix: limiterPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limit store: %w", err)
	}
	return st, nil
}
