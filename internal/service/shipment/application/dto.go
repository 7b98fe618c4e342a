package application

import (
	"context"
	"time"

	orderapp "github.com/wangyingjie930/orderflow/internal/service/order/application"
	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/domain"
)

// OrderLifecycle is everything the shipment module may do with orders. It is satisfied by the
// in-process order engine and by the remote HTTP client.
type OrderLifecycle interface {
	FindByID(ctx context.Context, id uint64) (orderapp.OrderResponse, bool, error)
	Transition(ctx context.Context, id uint64, op orderapp.Operation) (orderapp.OrderResponse, error)
}

type Status = domain.Status

const (
	StatusInTransit = domain.StatusInTransit
	StatusDelivered = domain.StatusDelivered
)

type Operation = domain.Operation

const OperationDeliver = domain.OperationDeliver

func ParseOperation(raw string) (Operation, bool) {
	op := Operation(raw)
	return op, domain.Lifecycle.Supports(op)
}

type CreateShipmentRequest struct {
	OrderID        uint64 `json:"orderId" validate:"required,gt=0"`
	Carrier        string `json:"carrier" validate:"required,max=64"`
	TrackingNumber string `json:"trackingNumber" validate:"required,max=128"`
}

type ShipmentResponse struct {
	ID             uint64     `json:"id"`
	OrderID        uint64     `json:"orderId"`
	Carrier        string     `json:"carrier"`
	TrackingNumber string     `json:"trackingNumber"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      *time.Time `json:"updatedAt"`
}
