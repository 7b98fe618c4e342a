package application

import (
	"time"

	"github.com/wangyingjie930/orderflow/internal/service/order/internal/domain"
)

// newOrderRecord builds a record in the initial status. The status is never taken from input.
func newOrderRecord(req CreateOrderRequest, now time.Time) *domain.Order {
	return domain.NewOrder(req.Email, req.Amount, req.Description, now)
}

func toOrderResponse(o *domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		Email:       o.Email,
		Amount:      o.Amount,
		Description: o.Description,
		Status:      o.Status,
		CreatedAt:   o.CreatedAt,
	}
	if o.UpdatedAt != nil {
		at := *o.UpdatedAt
		resp.UpdatedAt = &at
	}
	return resp
}
