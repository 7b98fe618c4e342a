package interfaces

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/wangyingjie930/orderflow/internal/pkg/apperr"
	"github.com/wangyingjie930/orderflow/internal/pkg/clock"
	"github.com/wangyingjie930/orderflow/internal/pkg/pagination"
	"github.com/wangyingjie930/orderflow/internal/pkg/web"
	"github.com/wangyingjie930/orderflow/internal/service/order/application"
)

// OrderEngine is what the HTTP layer needs from the order lifecycle engine.
type OrderEngine interface {
	Create(ctx context.Context, req application.CreateOrderRequest) (application.OrderResponse, error)
	FindByID(ctx context.Context, id uint64) (application.OrderResponse, bool, error)
	FindAll(ctx context.Context, req pagination.Request) (pagination.Page[application.OrderResponse], error)
	Transition(ctx context.Context, id uint64, op application.Operation) (application.OrderResponse, error)
	Paging() pagination.Defaults
}

// OrderHandler 封装了订单服务的 HTTP 处理器
type OrderHandler struct {
	service   OrderEngine
	validator *web.Validator
	clock     clock.Clock
}

// NewOrderHandler 创建一个新的 HTTP 处理器实例
func NewOrderHandler(service OrderEngine, validator *web.Validator, clk clock.Clock) *OrderHandler {
	return &OrderHandler{service: service, validator: validator, clock: clk}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/order", h.create)
	mux.HandleFunc("GET /api/v1/order", h.list)
	mux.HandleFunc("GET /api/v1/order/{id}", h.get)
	mux.HandleFunc("PATCH /api/v1/order/{id}/{operation}", h.transition)
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if err := web.DecodeJSON(w, r, &req); err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}

	resp, err := h.service.Create(r.Context(), req)
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/v1/order/%d", resp.ID))
	web.WriteJSON(w, r, http.StatusCreated, resp)
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "id")
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}

	resp, ok, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	if !ok {
		web.WriteError(w, r, h.clock, apperr.NotFound("Order", id))
		return
	}
	web.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	req, err := pagination.ParseRequest(r.URL.Query(), h.service.Paging())
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}

	page, err := h.service.FindAll(r.Context(), req)
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	web.WriteJSON(w, r, http.StatusOK, page)
}

func (h *OrderHandler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "id")
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	raw := r.PathValue("operation")
	op, ok := application.ParseOperation(strings.ToLower(raw))
	if !ok {
		web.WriteError(w, r, h.clock, apperr.Validation(map[string]string{
			"operation": fmt.Sprintf("unsupported operation %q, expected one of confirm, ship, deliver, cancel", raw),
		}))
		return
	}

	resp, err := h.service.Transition(r.Context(), id, op)
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	web.WriteJSON(w, r, http.StatusOK, resp)
}
