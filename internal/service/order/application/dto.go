// internal/service/order/application/dto.go
package application

import (
	"time"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// Status is the order status as exposed to callers; it marshals as its name.
type Status = domain.Status

const (
	StatusPending   = domain.StatusPending
	StatusConfirmed = domain.StatusConfirmed
	StatusShipped   = domain.StatusShipped
	StatusDelivered = domain.StatusDelivered
	StatusCancelled = domain.StatusCancelled
)

// Operation names a lifecycle transition.
type Operation = domain.Operation

const (
	OperationConfirm = domain.OperationConfirm
	OperationShip    = domain.OperationShip
	OperationDeliver = domain.OperationDeliver
	OperationCancel  = domain.OperationCancel
)

// ParseOperation accepts confirm, ship, deliver and cancel.
func ParseOperation(raw string) (Operation, bool) {
	return domain.ParseOperation(raw)
}

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	Email       string  `json:"email" validate:"required,max=254,email"`
	Amount      float64 `json:"amount" validate:"required,gt=0,lte=9999999999.99,decimals=2"`
	Description string  `json:"description" validate:"max=500"`
}

// OrderResponse 是订单用例的输出数据，它从不与内部记录共享内存
type OrderResponse struct {
	ID          uint64     `json:"id"`
	Email       string     `json:"email"`
	Amount      float64    `json:"amount"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt"`
}
