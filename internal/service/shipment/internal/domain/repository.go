// internal/service/shipment/internal/domain/repository.go
package domain

import (
	"context"
	"time"

	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
)

// ShipmentRepository 定义了运单的持久化接口。
type ShipmentRepository interface {
	Create(ctx context.Context, s *Shipment) error
	// FindByID 返回 ErrShipmentNotFound 表示不存在。
	FindByID(ctx context.Context, id uint64) (*Shipment, error)
	FindPage(ctx context.Context, req pagination.Request) ([]*Shipment, int64, error)
	// UpdateStatus is a compare-and-swap on the stored status.
	UpdateStatus(ctx context.Context, id uint64, from, to Status, at time.Time) (bool, error)
}
