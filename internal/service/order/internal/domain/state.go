// internal/service/order/internal/domain/state.go
package domain

import (
	"github.com/wangyingjie930/orderflow/internal/pkg/lifecycle"
)

// Status 定义了订单的生命周期状态
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}

// Operation is a named request to move an order to another status.
type Operation string

const (
	OperationConfirm Operation = "confirm"
	OperationShip    Operation = "ship"
	OperationDeliver Operation = "deliver"
	OperationCancel  Operation = "cancel"
)

var Operations = []Operation{OperationConfirm, OperationShip, OperationDeliver, OperationCancel}

// Lifecycle is the order transition table. Anything not listed is rejected, including
// re-applying an operation whose target status is already reached.
var Lifecycle = lifecycle.NewMachine[Status, Operation]("order", StatusPending, map[Operation]lifecycle.Rule[Status]{
	OperationConfirm: {From: []Status{StatusPending}, To: StatusConfirmed},
	OperationShip:    {From: []Status{StatusConfirmed}, To: StatusShipped},
	OperationDeliver: {From: []Status{StatusShipped}, To: StatusDelivered},
	OperationCancel:  {From: []Status{StatusPending, StatusConfirmed}, To: StatusCancelled},
})

// ParseOperation accepts the lowercase operation names used on the wire.
func ParseOperation(raw string) (Operation, bool) {
	op := Operation(raw)
	return op, Lifecycle.Supports(op)
}
