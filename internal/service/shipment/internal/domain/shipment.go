// internal/service/shipment/internal/domain/shipment.go
package domain

import (
	"errors"
	"time"

	"github.com/wangyingjie930/orderflow/internal/pkg/lifecycle"
)

var ErrShipmentNotFound = errors.New("shipment not found")

// Status 定义了运单的生命周期状态
type Status string

const (
	StatusInTransit Status = "IN_TRANSIT"
	StatusDelivered Status = "DELIVERED"
)

type Operation string

const OperationDeliver Operation = "deliver"

var Lifecycle = lifecycle.NewMachine[Status, Operation]("shipment", StatusInTransit, map[Operation]lifecycle.Rule[Status]{
	OperationDeliver: {From: []Status{StatusInTransit}, To: StatusDelivered},
})

// Shipment 记录一个订单的发货信息。
type Shipment struct {
	ID             uint64
	OrderID        uint64
	Carrier        string
	TrackingNumber string
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

func NewShipment(orderID uint64, carrier, trackingNumber string, now time.Time) *Shipment {
	return &Shipment{
		OrderID:        orderID,
		Carrier:        carrier,
		TrackingNumber: trackingNumber,
		Status:         Lifecycle.Initial(),
		CreatedAt:      now,
	}
}

func (s *Shipment) Plan(op Operation) (Status, error) {
	return Lifecycle.Next(s.Status, op)
}

func (s *Shipment) MarkTransitioned(to Status, at time.Time) {
	s.Status = to
	s.UpdatedAt = &at
}
