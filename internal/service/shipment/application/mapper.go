package application

import (
	"time"

	"github.com/wangyingjie930/orderflow/internal/service/shipment/internal/domain"
)

func newShipmentRecord(req CreateShipmentRequest, now time.Time) *domain.Shipment {
	return domain.NewShipment(req.OrderID, req.Carrier, req.TrackingNumber, now)
}

func toShipmentResponse(s *domain.Shipment) ShipmentResponse {
	resp := ShipmentResponse{
		ID:             s.ID,
		OrderID:        s.OrderID,
		Carrier:        s.Carrier,
		TrackingNumber: s.TrackingNumber,
		Status:         s.Status,
		CreatedAt:      s.CreatedAt,
	}
	if s.UpdatedAt != nil {
		at := *s.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}
