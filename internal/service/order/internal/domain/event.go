// internal/service/order/internal/domain/event.go
package domain

import "time"

// OrderStatusChanged 在一次状态变更提交之后发布
type OrderStatusChanged struct {
	EventID    string    `json:"eventId"`
	OrderID    uint64    `json:"orderId"`
	From       Status    `json:"from"`
	To         Status    `json:"to"`
	Operation  Operation `json:"operation"`
	OccurredAt time.Time `json:"occurredAt"`
}
