// internal/service/order/internal/domain/order.go
package domain

import (
	"errors"
	"time"
)

// ErrOrderNotFound 由仓储在记录不存在时返回，应用层把它转换为"不存在"的查询结果。
var ErrOrderNotFound = errors.New("order not found")

// Order 是订单聚合的根实体，只在订单模块内部流转。
type Order struct {
	ID          uint64
	Email       string
	Amount      float64
	Description string
	Status      Status
	CreatedAt   time.Time
	// UpdatedAt 在第一次状态变更之前为 nil
	UpdatedAt *time.Time
}

// NewOrder 创建一个处于初始状态的订单，ID 由存储分配。
func NewOrder(email string, amount float64, description string, now time.Time) *Order {
	return &Order{
		Email:       email,
		Amount:      amount,
		Description: description,
		Status:      Lifecycle.Initial(),
		CreatedAt:   now,
	}
}

// Plan evaluates op against the order's current status without mutating it.
func (o *Order) Plan(op Operation) (Status, error) {
	return Lifecycle.Next(o.Status, op)
}

// MarkTransitioned applies a status change that storage has already accepted.
func (o *Order) MarkTransitioned(to Status, at time.Time) {
	o.Status = to
	o.UpdatedAt = &at
}
