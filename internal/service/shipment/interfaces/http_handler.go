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
	"github.com/wangyingjie930/orderflow/internal/service/shipment/application"
)

type ShipmentEngine interface {
	Create(ctx context.Context, req application.CreateShipmentRequest) (application.ShipmentResponse, error)
	FindByID(ctx context.Context, id uint64) (application.ShipmentResponse, bool, error)
	FindAll(ctx context.Context, req pagination.Request) (pagination.Page[application.ShipmentResponse], error)
	Transition(ctx context.Context, id uint64, op application.Operation) (application.ShipmentResponse, error)
	Paging() pagination.Defaults
}

// ShipmentHandler 封装了运单服务的 HTTP 处理器
type ShipmentHandler struct {
	service   ShipmentEngine
	validator *web.Validator
	clock     clock.Clock
}

func NewShipmentHandler(service ShipmentEngine, validator *web.Validator, clk clock.Clock) *ShipmentHandler {
	return &ShipmentHandler{service: service, validator: validator, clock: clk}
}

func (h *ShipmentHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/shipment", h.create)
	mux.HandleFunc("GET /api/v1/shipment", h.list)
	mux.HandleFunc("GET /api/v1/shipment/{id}", h.get)
	mux.HandleFunc("PATCH /api/v1/shipment/{id}/{operation}", h.transition)
}

func (h *ShipmentHandler) create(w http.ResponseWriter, r *http.Request) {
	var req application.CreateShipmentRequest
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
	w.Header().Set("Location", fmt.Sprintf("/api/v1/shipment/%d", resp.ID))
	web.WriteJSON(w, r, http.StatusCreated, resp)
}

func (h *ShipmentHandler) get(w http.ResponseWriter, r *http.Request) {
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
		web.WriteError(w, r, h.clock, apperr.NotFound("Shipment", id))
		return
	}
	web.WriteJSON(w, r, http.StatusOK, resp)
}

func (h *ShipmentHandler) list(w http.ResponseWriter, r *http.Request) {
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

func (h *ShipmentHandler) transition(w http.ResponseWriter, r *http.Request) {
	id, err := web.PathID(r, "id")
	if err != nil {
		web.WriteError(w, r, h.clock, err)
		return
	}
	raw := r.PathValue("operation")
	op, ok := application.ParseOperation(strings.ToLower(raw))
	if !ok {
		web.WriteError(w, r, h.clock, apperr.Validation(map[string]string{
			"operation": fmt.Sprintf("unsupported operation %q, expected deliver", raw),
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
