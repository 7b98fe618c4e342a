// internal/service/order/internal/infrastructure/redis_cache.go
package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain/port"
)

const orderCacheKeyPrefix = "orderflow:order:"

// cachedOrder is the JSON form stored in redis.
type cachedOrder struct {
	ID          uint64     `json:"id"`
	Email       string     `json:"email"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}

// RedisOrderCache 是 port.OrderCache 的 Redis 实现。
type RedisOrderCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisOrderCache 创建一个缓存适配器，ttl <= 0 表示不过期。
func NewRedisOrderCache(client redis.Cmdable, ttl time.Duration) *RedisOrderCache {
	return &RedisOrderCache{client: client, ttl: ttl}
}

func orderCacheKey(id uint64) string {
	return fmt.Sprintf("%s%d", orderCacheKeyPrefix, id)
}

func (c *RedisOrderCache) Get(ctx context.Context, id uint64) (*domain.Order, error) {
	raw, err := c.client.Get(ctx, orderCacheKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, port.ErrCacheMiss
		}
		return nil, pkgerrors.Wrapf(err, "redis get order %d", id)
	}
	return decodeCachedOrder(raw)
}

func (c *RedisOrderCache) Set(ctx context.Context, order *domain.Order) error {
	raw, err := encodeCachedOrder(order)
	if err != nil {
		return err
	}
	ttl := c.ttl
	if ttl < 0 {
		ttl = 0
	}
	return pkgerrors.Wrapf(c.client.Set(ctx, orderCacheKey(order.ID), raw, ttl).Err(), "redis set order %d", order.ID)
}

func (c *RedisOrderCache) Invalidate(ctx context.Context, id uint64) error {
	return pkgerrors.Wrapf(c.client.Del(ctx, orderCacheKey(id)).Err(), "redis del order %d", id)
}

func encodeCachedOrder(o *domain.Order) ([]byte, error) {
	raw, err := json.Marshal(cachedOrder{
		ID:          o.ID,
		Email:       o.Email,
		Amount:      o.Amount,
		Description: o.Description,
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	})
	return raw, pkgerrors.Wrap(err, "encode cached order")
}

func decodeCachedOrder(raw []byte) (*domain.Order, error) {
	var c cachedOrder
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, pkgerrors.Wrap(err, "decode cached order")
	}
	return &domain.Order{
		ID:          c.ID,
		Email:       c.Email,
		Amount:      c.Amount,
		Description: c.Description,
		Status:      domain.Status(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}, nil
}
