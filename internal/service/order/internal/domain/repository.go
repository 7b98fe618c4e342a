// internal/service/order/internal/domain/repository.go
package domain

import (
	"context"
	"time"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
)

// OrderRepository 定义了订单聚合的持久化接口。
// 它位于领域层，但由基础设施层实现。
type OrderRepository interface {
	// Create 保存一个新订单，并把存储分配的 ID 写回 order.ID。
	Create(ctx context.Context, order *Order) error

	// FindByID 返回 ErrOrderNotFound 表示不存在。
	FindByID(ctx context.Context, id uint64) (*Order, error)

	// FindPage returns one page in the requested order plus the total number of orders.
	FindPage(ctx context.Context, req pagination.Request) ([]*Order, int64, error)

	// UpdateStatus sets status to `to` only if the stored status is still `from`.
	// It reports whether the row was changed; false means another writer got there first
	// or the order does not exist.
	UpdateStatus(ctx context.Context, id uint64, from, to Status, at time.Time) (bool, error)
}
