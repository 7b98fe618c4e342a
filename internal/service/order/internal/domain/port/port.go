// internal/service/order/internal/domain/port/port.go
package port

import (
	"context"
	"errors"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// ErrCacheMiss is returned by OrderCache.Get when nothing is cached for the id.
var ErrCacheMiss = errors.New("order cache miss")

// OrderCache 是读路径缓存的出站端口。缓存只是优化，任何失败都不能改变操作结果。
type OrderCache interface {
	Get(ctx context.Context, id uint64) (*domain.Order, error)
	Set(ctx context.Context, order *domain.Order) error
	Invalidate(ctx context.Context, id uint64) error
}

// StatusEventPublisher 是状态变更事件的出站端口。
type StatusEventPublisher interface {
	PublishStatusChanged(ctx context.Context, event domain.OrderStatusChanged) error
}
